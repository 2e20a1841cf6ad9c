package chunking

import (
	"strings"
	"unicode"

	"github.com/voidtrace/ragcore/ttsfilter"
)

const (
	minChunkChars     = 20
	minAlphaWords     = 5
	maxDotToWordRatio = 2.0
	maxDigitRatio     = 0.3
	minAvgWordLength  = 2.5
)

// IsValidChunk rejects chunks that look like tables of contents, index
// pages, or numeric tables rather than prose: too short, too few
// alphabetic words, too many dots relative to words, too many digits, or
// an implausibly low average word length.
func IsValidChunk(text string) bool {
	if len(text) < minChunkChars {
		return false
	}

	words := strings.Fields(text)
	alphaWords := 0
	totalWordLen := 0
	for _, w := range words {
		hasAlpha := false
		for _, r := range w {
			if unicode.IsLetter(r) {
				hasAlpha = true
				break
			}
		}
		if hasAlpha {
			alphaWords++
		}
		totalWordLen += len([]rune(w))
	}
	if alphaWords < minAlphaWords {
		return false
	}

	dotCount := strings.Count(text, ".")
	if len(words) > 0 && float64(dotCount) > maxDotToWordRatio*float64(len(words)) {
		return false
	}

	digitCount := 0
	totalChars := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		totalChars++
		if unicode.IsDigit(r) {
			digitCount++
		}
	}
	if totalChars > 0 && float64(digitCount)/float64(totalChars) > maxDigitRatio {
		return false
	}

	if len(words) > 0 && float64(totalWordLen)/float64(len(words)) < minAvgWordLength {
		return false
	}

	return true
}

// CleanForEmbedding collapses runs of dots and whitespace, strips
// standalone page-number lines, and normalizes problematic Unicode
// punctuation to ASCII so the result is safe for both the embedder and
// downstream TTS.
func CleanForEmbedding(text string) string {
	text = ttsfilter.Clean(text)
	text = stripStandalonePageNumbers(text)
	text = collapseRuns(text, '.', 3)
	text = collapseWhitespace(text)
	return strings.TrimSpace(text)
}

func collapseRuns(text string, r rune, minRun int) string {
	var b strings.Builder
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		if runes[i] == r {
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			if j-i >= minRun {
				b.WriteRune(r)
				b.WriteRune(r)
				b.WriteRune(r)
			} else {
				for k := i; k < j; k++ {
					b.WriteRune(r)
				}
			}
			i = j
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func collapseWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

func stripStandalonePageNumbers(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isStandaloneNumber(trimmed) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isStandaloneNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
