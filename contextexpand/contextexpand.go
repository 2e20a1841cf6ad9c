// Package contextexpand widens a retrieved chunk's character span outward
// to neighboring sentence boundaries in its source document, up to a
// token budget, and marks the original boundaries explicitly.
package contextexpand

import "strings"

var boundaries = []string{". ", "? ", "! ", "\n\n", "\n"}

const charsPerToken = 4

// Expand widens [charStart, charEnd) in docText outward by up to
// expandTokens tokens on each side, snapping outward to the nearest
// sentence boundary, then wraps the result with markers around the
// original chunk span. The combined output never exceeds
// safeCharLimit; if the original span alone exceeds it, the original
// span is truncated to fit and returned without a hard failure.
func Expand(docText string, charStart, charEnd, expandTokens, safeCharLimit int) string {
	if charStart < 0 {
		charStart = 0
	}
	if charEnd > len(docText) {
		charEnd = len(docText)
	}
	if charStart >= charEnd {
		return ""
	}

	original := docText[charStart:charEnd]
	if len(original) >= safeCharLimit {
		return truncate(original, safeCharLimit)
	}

	expandChars := expandTokens * charsPerToken

	leftBound := charStart - expandChars
	if leftBound < 0 {
		leftBound = 0
	}
	leftBound = snapOutwardLeft(docText, leftBound, charStart)

	rightBound := charEnd + expandChars
	if rightBound > len(docText) {
		rightBound = len(docText)
	}
	rightBound = snapOutwardRight(docText, charEnd, rightBound)

	before := docText[leftBound:charStart]
	after := docText[charEnd:rightBound]

	var b strings.Builder
	b.WriteString(before)
	b.WriteString("[[CHUNK_START]]")
	b.WriteString(original)
	b.WriteString("[[CHUNK_END]]")
	b.WriteString(after)

	result := b.String()
	if len(result) > safeCharLimit {
		return truncate(result, safeCharLimit)
	}
	return result
}

// snapOutwardLeft returns the earliest boundary-aligned offset at or
// before searchFrom that is >= lowerBound, so the expansion widens to
// include the whole adjacent sentence rather than cutting mid-sentence.
// The start of the document counts as a boundary.
func snapOutwardLeft(text string, lowerBound, searchFrom int) int {
	if lowerBound == 0 || lowerBound >= searchFrom {
		return lowerBound
	}
	window := text[lowerBound:searchFrom]

	best := -1
	for _, sep := range boundaries {
		if idx := strings.Index(window, sep); idx >= 0 {
			candidate := idx + len(sep)
			if best == -1 || candidate < best {
				best = candidate
			}
		}
	}
	if best == -1 {
		return lowerBound
	}
	return lowerBound + best
}

// snapOutwardRight returns the latest boundary-aligned offset at or
// before upperBound that is >= searchFrom.
func snapOutwardRight(text string, searchFrom, upperBound int) int {
	if searchFrom >= upperBound {
		return upperBound
	}
	window := text[searchFrom:upperBound]

	best := -1
	for _, sep := range boundaries {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			candidate := idx + len(sep)
			if candidate > best {
				best = candidate
			}
		}
	}
	if best == -1 {
		return upperBound
	}
	return searchFrom + best
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
