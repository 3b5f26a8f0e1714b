// Package tui is the terminal chat client: a local document panel, a chat
// transcript and a single input line.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notebookllm/internal/client"
	"notebookllm/internal/loader"
	"notebookllm/internal/models"
	"notebookllm/internal/rag"
	"notebookllm/internal/util"
)

// ChatErrorMessage replaces the assistant turn when a chat request fails.
const ChatErrorMessage = "Sorry, I encountered an error while processing your request. Please try again."

const requestTimeout = 2 * time.Minute

// Backend is the subset of the HTTP client the TUI drives.
type Backend interface {
	IngestText(ctx context.Context, name, text string) (client.IndexResult, error)
	UploadPDF(ctx context.Context, filename string, data []byte) (client.UploadResult, error)
	Chat(ctx context.Context, message string) (rag.ChatResult, error)
}

type transcriptEntry struct {
	msg     models.ChatMessage
	sources []rag.Source
}

type Model struct {
	backend    Backend
	input      textinput.Model
	viewport   viewport.Model
	documents  documentList
	transcript []transcriptEntry
	status     string
	loading    bool
	ready      bool
	width      int
	now        func() time.Time
}

func New(backend Backend, endpoint string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents, or /paste TEXT, /upload PATH, /remove N"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		backend:  backend,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Connected to " + endpoint + ". Upload documents or paste text to get started.",
		now:      time.Now,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

type chatReplyMsg struct {
	result rag.ChatResult
	err    error
}

type ingestedMsg struct {
	doc localDocument
	err error
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		vh := msg.Height - 2 - ih - th - 1
		m.viewport.Width = max(20, msg.Width-docsWidth(msg.Width)-4)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil
	case chatReplyMsg:
		m.loading = false
		entry := transcriptEntry{msg: models.ChatMessage{Role: models.RoleAssistant, Timestamp: m.now()}}
		if msg.err != nil {
			entry.msg.Content = ChatErrorMessage
			m.status = "Error: " + msg.err.Error()
		} else {
			entry.msg.Content = msg.result.Response
			entry.sources = msg.result.Sources
			m.status = fmt.Sprintf("%d document chunks used.", msg.result.DocumentsFound)
		}
		m.transcript = append(m.transcript, entry)
		m.refresh()
		return m, nil
	case ingestedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error indexing " + msg.doc.Name + ": " + msg.err.Error()
			return m, nil
		}
		d := m.documents.add(msg.doc)
		m.status = fmt.Sprintf("%s: %s (%d chunks)", d.Name, statusText(d.Status), d.Chunks)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.loading {
		return m, nil
	}
	m.input.SetValue("")

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/paste":
		if arg == "" {
			m.status = "Nothing to paste."
			return m, nil
		}
		m.loading = true
		m.status = "Indexing pasted text..."
		return m, ingestTextCmd(m.backend, m.documents.pastedName(), arg)
	case "/upload":
		return m.upload(arg)
	case "/remove":
		id, err := strconv.Atoi(arg)
		if err != nil || !m.documents.remove(id) {
			m.status = "No document " + strconv.Quote(arg) + " in the list."
			return m, nil
		}
		m.status = "Removed document " + arg + " from the list."
		return m, nil
	}

	m.transcript = append(m.transcript, transcriptEntry{msg: models.ChatMessage{Role: models.RoleUser, Content: line, Timestamp: m.now()}})
	m.loading = true
	m.status = "Thinking..."
	m.refresh()
	return m, chatCmd(m.backend, line)
}

func (m Model) upload(path string) (tea.Model, tea.Cmd) {
	if path == "" {
		m.status = "Usage: /upload PATH"
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.status = "Error reading " + path + ": " + err.Error()
		return m, nil
	}
	name := filepath.Base(path)
	if !loader.IsPDF(name, data) {
		d := m.documents.add(localDocument{Name: name, Kind: models.DocumentKind(strings.TrimPrefix(filepath.Ext(name), ".")), Size: int64(len(data)), Status: statusUnsupported})
		m.status = d.Name + ": " + statusText(d.Status)
		return m, nil
	}
	m.loading = true
	m.status = "Uploading " + name + "..."
	return m, uploadCmd(m.backend, name, data)
}

func ingestTextCmd(b Backend, name, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		doc := localDocument{Name: name, Kind: models.KindText, Size: int64(len([]rune(text))), Status: statusIndexed}
		res, err := b.IngestText(ctx, name, text)
		doc.DocumentID = res.DocumentID
		doc.Chunks = res.Chunks
		return ingestedMsg{doc: doc, err: err}
	}
}

func uploadCmd(b Backend, name string, data []byte) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		doc := localDocument{Name: name, Kind: models.KindPDF, Size: int64(len(data)), Status: statusUploaded}
		res, err := b.UploadPDF(ctx, name, data)
		doc.DocumentID = res.DocumentID
		doc.Chunks = res.Chunks
		return ingestedMsg{doc: doc, err: err}
	}
}

func chatCmd(b Backend, message string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := b.Chat(ctx, message)
		return chatReplyMsg{result: res, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("AI Document Chat")
	docs := docsStyle.Width(docsWidth(m.width)).Render(m.renderDocuments())
	chat := transcriptStyle.Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, docs, chat)
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderDocuments() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Documents"))
	b.WriteString("\n")
	if len(m.documents.docs) == 0 {
		b.WriteString(mutedStyle.Render("No documents yet."))
		return b.String()
	}
	for _, d := range m.documents.docs {
		fmt.Fprintf(&b, "[%d] %s\n", d.ID, d.Name)
		line := d.sizeLabel() + "  " + statusText(d.Status)
		if d.Chunks > 0 {
			line += fmt.Sprintf("  %d chunks", d.Chunks)
		}
		b.WriteString(mutedStyle.Render("    "+line) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return mutedStyle.Render("Start a conversation about your documents.")
	}
	var b strings.Builder
	for _, e := range m.transcript {
		who := userStyle.Render("You")
		if e.msg.Role == models.RoleAssistant {
			who = assistantStyle.Render("Assistant")
		}
		fmt.Fprintf(&b, "%s %s\n%s\n", who, mutedStyle.Render(e.msg.Timestamp.Format("15:04")), e.msg.Content)
		for i, s := range e.sources {
			label := s.Source
			if label == "" {
				label = s.DocumentID
			}
			if s.Page != "" {
				label += " p." + s.Page
			}
			fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("  [%d] %s (%.2f) %s", i+1, label, s.Score, util.Snippet(s.Snippet, 80))))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func docsWidth(total int) int {
	return max(24, total/3)
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	sectionStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	docsStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
