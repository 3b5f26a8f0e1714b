package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const defaultSnippetRunes = 420

var (
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {},
	"why": {}, "who": {}, "which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {},
	"from": {}, "does": {}, "did": {}, "can": {}, "about": {}, "into": {}, "there": {},
}

// Snippet collapses whitespace and cuts s to at most maxRunes runes on a
// word boundary, appending "..." when cut.
func Snippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultSnippetRunes
	}
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

// EvidenceSnippet picks the sentence of text that shares the most words
// with query, plus the next best one when it also matches, in text order.
// Without any overlap it falls back to the start of text.
func EvidenceSnippet(text, query string, maxRunes int) string {
	terms := queryTerms(query)
	sentences := sentenceRe.FindAllString(strings.Join(strings.Fields(SanitizeText(text)), " "), -1)
	if len(terms) == 0 || len(sentences) < 2 {
		return Snippet(text, maxRunes)
	}

	best, second := -1, -1
	bestScore, secondScore := 0, 0
	for i, s := range sentences {
		score := overlap(terms, s)
		switch {
		case score > bestScore:
			second, secondScore = best, bestScore
			best, bestScore = i, score
		case score > secondScore:
			second, secondScore = i, score
		}
	}
	if best < 0 {
		return Snippet(text, maxRunes)
	}
	picked := []int{best}
	if second >= 0 {
		if second < best {
			picked = []int{second, best}
		} else {
			picked = append(picked, second)
		}
	}
	parts := make([]string, 0, len(picked))
	for _, i := range picked {
		parts = append(parts, strings.TrimSpace(sentences[i]))
	}
	return Snippet(strings.Join(parts, " "), maxRunes)
}

func queryTerms(query string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(terms map[string]struct{}, sentence string) int {
	seen := map[string]struct{}{}
	score := 0
	for _, w := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := terms[w]; ok {
			score++
		}
	}
	return score
}
