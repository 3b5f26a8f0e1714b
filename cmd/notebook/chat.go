package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notebookllm/internal/rag"
	"notebookllm/internal/util"
)

var chatJSON bool

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the passages most similar to the question and asks the
language model to answer from them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output the raw response as JSON")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	res, err := newClient().Chat(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	if chatJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printAnswer(cmd, res)
	return nil
}

func printAnswer(cmd *cobra.Command, res rag.ChatResult) {
	cmd.Println(res.Response)
	if len(res.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range res.Sources {
		label := s.Source
		if label == "" {
			label = s.DocumentID
		}
		if s.Page != "" {
			label += " p." + s.Page
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, label, s.Score)
		if s.Snippet != "" {
			cmd.Printf("      %s\n", util.Snippet(s.Snippet, 160))
		}
	}
}
