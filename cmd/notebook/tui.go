package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"notebookllm/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat",
	Long: `Launch the interactive terminal chat.

Commands typed in the input line:
  /paste TEXT   - Index pasted text
  /upload PATH  - Upload a PDF
  /remove N     - Remove entry N from the local document list
  anything else - Ask a question
  Ctrl+C        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	c := newClient()
	p := tea.NewProgram(tui.New(c, c.BaseURL()), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
