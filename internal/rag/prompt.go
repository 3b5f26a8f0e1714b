package rag

import (
	"strings"

	"notebookllm/internal/models"
)

// NoInformationAnswer is returned without calling the completion provider
// when retrieval finds nothing.
const NoInformationAnswer = "I couldn't find any relevant information in the uploaded documents. Please upload a PDF or add some text first, then ask again."

const systemInstruction = `You are a helpful assistant that answers questions based on the provided documents.
Answer using only the information in the context below.
If the context does not contain enough information to answer, say explicitly that you don't know based on the provided documents.`

// BuildContext joins chunk texts in rank order, separated by a blank line.
func BuildContext(res models.RetrievalResult) string {
	parts := make([]string, 0, res.Len())
	for _, c := range res.Chunks {
		t := strings.TrimSpace(c.Chunk.Text)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n\n")
}

// BuildSystemPrompt embeds the context block after the answering rules.
func BuildSystemPrompt(contextBlock string) string {
	return systemInstruction + "\n\nContext:\n" + contextBlock
}
