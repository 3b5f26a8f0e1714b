package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"notebookllm/internal/client"
)

const defaultServer = "http://localhost:8080"

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Chat with your documents",
	Long: `notebook is the terminal client for the notebookllm server.

Index pasted text and PDFs, then ask questions answered from the most
relevant passages of what you indexed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", serverFromEnv(), "notebookllm server URL")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func serverFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("NOTEBOOK_SERVER")); v != "" {
		return v
	}
	return defaultServer
}

func newClient() *client.Client {
	return client.New(serverURL)
}
