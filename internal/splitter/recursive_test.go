package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func assertCoverage(t *testing.T, text string, spans []Span, size, overlap int) {
	t.Helper()
	runes := []rune(text)
	require.NotEmpty(t, spans)
	require.Equal(t, 0, spans[0].Start)
	require.Equal(t, len(runes), spans[len(spans)-1].End)
	for i, s := range spans {
		require.LessOrEqual(t, s.Len(), size, "chunk %d too long", i)
		require.Equal(t, string(runes[s.Start:s.End]), s.Text)
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		require.Greater(t, s.Start, prev.Start, "chunk %d does not advance", i)
		require.LessOrEqual(t, s.Start, prev.End, "gap before chunk %d", i)
		require.LessOrEqual(t, prev.End-s.Start, overlap, "chunk %d overlaps too much", i)
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	r := NewRecursive(1000, 200)
	spans := r.Split("Paris is the capital of France.")
	require.Len(t, spans, 1)
	require.Equal(t, "Paris is the capital of France.", spans[0].Text)
}

func TestSplitEmpty(t *testing.T) {
	require.Empty(t, NewRecursive(1000, 200).Split(""))
}

func TestSplitProseRespectsSizeAndOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%10 == 9 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()
	r := NewRecursive(1000, 200)
	spans := r.Split(text)
	require.Greater(t, len(spans), 1)
	assertCoverage(t, text, spans, 1000, 200)
}

func TestSplitConsecutiveChunksShareText(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 200)
	spans := NewRecursive(300, 60).Split(text)
	require.Greater(t, len(spans), 2)
	for i := 1; i < len(spans); i++ {
		require.Less(t, spans[i].Start, spans[i-1].End, "chunk %d has no overlap", i)
	}
	assertCoverage(t, text, spans, 300, 60)
}

func TestSplitHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 2500)
	spans := NewRecursive(1000, 200).Split(text)
	require.Len(t, spans, 3)
	assertCoverage(t, text, spans, 1000, 200)
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 1000)
	spans := NewRecursive(1000, 200).Split(text)
	require.Len(t, spans, 1)
	require.Equal(t, 1000, spans[0].Len())
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("One line here.\nAnother line there.\n\n", 80)
	r := NewRecursive(250, 50)
	require.Equal(t, r.Split(text), r.Split(text))
}

func TestNewRecursiveClampsInvalidSettings(t *testing.T) {
	r := NewRecursive(0, -1)
	require.Equal(t, DefaultChunkSize, r.ChunkSize())
	require.Equal(t, DefaultChunkOverlap, r.Overlap())

	r = NewRecursive(100, 100)
	require.Equal(t, 100, r.ChunkSize())
	require.Less(t, r.Overlap(), 100)
}

func TestIsBlank(t *testing.T) {
	require.True(t, IsBlank(" \n\t"))
	require.False(t, IsBlank(" a "))
}
