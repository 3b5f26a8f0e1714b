package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	ingestName  string
	ingestText  string
	ingestAsync bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|-]",
	Short: "Index plain text",
	Long: `Indexes text from a file, from stdin ("-") or from --text.
The text is split into overlapping chunks, embedded and stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "display name for the document")
	ingestCmd.Flags().StringVarP(&ingestText, "text", "t", "", "text to index")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "index through the background workflow")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	text, name, err := ingestInput(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to index")
	}
	c := newClient()
	if ingestAsync {
		res, err := c.IngestTextAsync(cmd.Context(), name, text)
		if err != nil {
			return fmt.Errorf("start indexing: %w", err)
		}
		cmd.Printf("Indexing started: document %s (workflow %s)\n", res.DocumentID, res.WorkflowID)
		return nil
	}
	res, err := c.IngestText(cmd.Context(), name, text)
	if err != nil {
		return fmt.Errorf("index text: %w", err)
	}
	cmd.Printf("%s: %d chunks, %d characters (document %s)\n", res.Message, res.Chunks, res.TextLength, res.DocumentID)
	if res.DuplicateOf != "" {
		cmd.Printf("Same content was already indexed as %s\n", res.DuplicateOf)
	}
	return nil
}

func ingestInput(cmd *cobra.Command, args []string) (text, name string, err error) {
	name = ingestName
	switch {
	case ingestText != "":
		return ingestText, name, nil
	case len(args) == 0 || args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), name, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", args[0], err)
	}
	if name == "" {
		name = filepath.Base(args[0])
	}
	return string(data), name, nil
}
