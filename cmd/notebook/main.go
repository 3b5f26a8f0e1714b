package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
