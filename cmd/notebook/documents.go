package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List indexed documents",
	Args:    cobra.NoArgs,
	RunE:    runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a document and its indexing progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document and purge its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	documentsCmd.AddCommand(documentsShowCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	docs, err := newClient().ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("%s  %-8s %-11s %4d chunks  %s\n", d.ID, d.Kind, d.Status, d.Chunks, d.Name)
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	c := newClient()
	doc, err := c.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	cmd.Printf("ID:      %s\n", doc.ID)
	cmd.Printf("Name:    %s\n", doc.Name)
	cmd.Printf("Kind:    %s\n", doc.Kind)
	cmd.Printf("Status:  %s\n", doc.Status)
	cmd.Printf("Chunks:  %d\n", doc.Chunks)
	if doc.Pages > 0 {
		cmd.Printf("Pages:   %d\n", doc.Pages)
	}
	if doc.FailReason != "" {
		cmd.Printf("Failure: %s\n", doc.FailReason)
	}
	prog, err := c.Progress(cmd.Context(), args[0])
	if err != nil {
		return nil
	}
	if len(prog.Steps) > 0 {
		steps := make([]string, 0, len(prog.Steps))
		for _, name := range []string{"chunk_text", "index_chunks"} {
			if st, ok := prog.Steps[name]; ok {
				steps = append(steps, name+"="+st)
			}
		}
		cmd.Printf("Steps:   %s (current: %s)\n", strings.Join(steps, " "), prog.CurrentStep)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	res, err := newClient().DeleteDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	cmd.Printf("Deleted %s (%d vectors removed)\n", res.Deleted, res.VectorsRemoved)
	return nil
}
