package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"notebookllm/internal/loader"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file.pdf...]",
	Short: "Upload and index PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	c := newClient()
	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		if !loader.IsPDF(name, data) {
			cmd.Printf("%s: Unsupported Format\n", name)
			failed++
			continue
		}
		res, err := c.UploadPDF(cmd.Context(), name, data)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", name, err)
			failed++
			continue
		}
		cmd.Printf("%s: %d pages, %d chunks (document %s)\n", res.Filename, res.Pages, res.Chunks, res.DocumentID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files not indexed", failed, len(args))
	}
	return nil
}
