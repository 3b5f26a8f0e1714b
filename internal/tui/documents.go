package tui

import (
	"fmt"
	"math"
	"strconv"

	"notebookllm/internal/models"
)

// localStatus is the status shown in the document panel. It is kept on the
// client only; removing an entry never touches the server.
type localStatus string

const (
	statusUploaded    localStatus = "uploaded"
	statusIndexed     localStatus = "indexed"
	statusUnsupported localStatus = "unsupported"
)

type localDocument struct {
	ID         int
	DocumentID string
	Name       string
	Kind       models.DocumentKind
	Size       int64
	Status     localStatus
	Chunks     int
}

func (d localDocument) sizeLabel() string {
	if d.Kind == models.KindText {
		return fmt.Sprintf("%d chars", d.Size)
	}
	return formatFileSize(d.Size)
}

func statusText(s localStatus) string {
	switch s {
	case statusUploaded:
		return "Uploaded & Indexed"
	case statusIndexed:
		return "Indexed"
	case statusUnsupported:
		return "Unsupported Format"
	default:
		return "Processing"
	}
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// formatFileSize renders bytes in 1024-based units rounded to two decimals,
// without trailing zeros.
func formatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

type documentList struct {
	docs   []localDocument
	nextID int
}

// pastedName numbers pasted texts by how many text entries the list holds.
func (l *documentList) pastedName() string {
	n := 0
	for _, d := range l.docs {
		if d.Kind == models.KindText {
			n++
		}
	}
	return fmt.Sprintf("Pasted Text %d", n+1)
}

func (l *documentList) add(d localDocument) localDocument {
	l.nextID++
	d.ID = l.nextID
	l.docs = append(l.docs, d)
	return d
}

// remove drops the entry with the given local id and reports whether one
// was found.
func (l *documentList) remove(id int) bool {
	for i, d := range l.docs {
		if d.ID == id {
			l.docs = append(l.docs[:i], l.docs[i+1:]...)
			return true
		}
	}
	return false
}
