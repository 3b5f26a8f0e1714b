// Package splitter cuts document text into overlapping chunks for embedding.
package splitter

import "unicode"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Span is a half-open rune range [Start, End) of the split text.
type Span struct {
	Start int
	End   int
	Text  string
}

func (s Span) Len() int { return s.End - s.Start }

// Splitter returns chunk spans covering text in document order.
type Splitter interface {
	Split(text string) []Span
}

// defaultLevels orders boundaries from coarsest to finest: paragraph, line,
// sentence, word. Below the last level the splitter cuts at rune granularity.
var defaultLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? ", ".\t", "!\t", "?\t"},
	{" ", "\t"},
}

// Recursive splits on the coarsest boundary that yields pieces no longer than
// the chunk size, then greedily merges pieces into chunks that share a tail of
// at most overlap runes with their predecessor.
type Recursive struct {
	chunkSize int
	overlap   int
	levels    [][][]rune
}

func NewRecursive(chunkSize, overlap int) *Recursive {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	levels := make([][][]rune, 0, len(defaultLevels))
	for _, seps := range defaultLevels {
		lvl := make([][]rune, 0, len(seps))
		for _, s := range seps {
			lvl = append(lvl, []rune(s))
		}
		levels = append(levels, lvl)
	}
	return &Recursive{chunkSize: chunkSize, overlap: overlap, levels: levels}
}

func (r *Recursive) ChunkSize() int { return r.chunkSize }
func (r *Recursive) Overlap() int   { return r.overlap }

func (r *Recursive) Split(text string) []Span {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	pieces := r.pieces(runes, 0, len(runes), 0, nil)
	return r.merge(runes, pieces)
}

type piece struct{ start, end int }

func (p piece) len() int { return p.end - p.start }

func (r *Recursive) pieces(text []rune, start, end, level int, out []piece) []piece {
	if end-start <= r.chunkSize {
		return append(out, piece{start, end})
	}
	if level >= len(r.levels) {
		for s := start; s < end; s += r.chunkSize {
			e := s + r.chunkSize
			if e > end {
				e = end
			}
			out = append(out, piece{s, e})
		}
		return out
	}
	cuts := boundaries(text, start, end, r.levels[level])
	if len(cuts) == 0 {
		return r.pieces(text, start, end, level+1, out)
	}
	prev := start
	for _, c := range cuts {
		out = r.pieces(text, prev, c, level+1, out)
		prev = c
	}
	return r.pieces(text, prev, end, level+1, out)
}

// boundaries returns the positions right after every separator occurrence in
// text[start:end], excluding end itself. Separators stay with the left piece.
func boundaries(text []rune, start, end int, seps [][]rune) []int {
	var cuts []int
	i := start
	for i < end {
		matched := 0
		for _, sep := range seps {
			if hasPrefixAt(text, i, end, sep) {
				matched = len(sep)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		i += matched
		// Runs of the same separator stay in one piece.
		for {
			extended := false
			for _, sep := range seps {
				if hasPrefixAt(text, i, end, sep) {
					i += len(sep)
					extended = true
					break
				}
			}
			if !extended {
				break
			}
		}
		if i < end {
			cuts = append(cuts, i)
		}
	}
	return cuts
}

func hasPrefixAt(text []rune, at, end int, sep []rune) bool {
	if at+len(sep) > end {
		return false
	}
	for k, r := range sep {
		if text[at+k] != r {
			return false
		}
	}
	return true
}

func (r *Recursive) merge(text []rune, pieces []piece) []Span {
	var (
		out    []Span
		window []piece
		total  int
	)
	emit := func() {
		s, e := window[0].start, window[len(window)-1].end
		out = append(out, Span{Start: s, End: e, Text: string(text[s:e])})
	}
	for _, p := range pieces {
		l := p.len()
		if len(window) > 0 && total+l > r.chunkSize {
			emit()
			for len(window) > 0 && (total > r.overlap || total+l > r.chunkSize) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, p)
		total += l
	}
	if len(window) > 0 {
		emit()
	}
	return out
}

// IsBlank reports whether s has no printable content worth embedding.
func IsBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
