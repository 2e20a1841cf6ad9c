// Package ttsfilter enforces the TTS-safe character whitelist required on
// every text field returned from a query: ASCII plus a small set of
// explicitly allowed symbols, with problematic Unicode normalized to
// ASCII equivalents before the final check.
package ttsfilter

import "strings"

// replacements maps specific Unicode punctuation that commonly appears in
// extracted document text to its ASCII equivalent.
var replacements = map[rune]string{
	' ': " ",  // non-breaking space
	'–': "-",  // en dash
	'—': "-",  // em dash
	'‘': "'",  // left single quote
	'’': "'",  // right single quote
	'“': "\"", // left double quote
	'”': "\"", // right double quote
	'…': "...", // ellipsis
	'­': "",   // soft hyphen
	'ﬁ': "fi", // ligature fi
	'ﬂ': "fl", // ligature fl
}

// allowedHigh is the explicit symbol whitelist. Both entries, € (U+20AC)
// and • (U+2022), lie below U+3000, so the high-codepoint ban would not
// reject them either.
var allowedHigh = map[rune]bool{
	'€': true, // €
	'•': true, // •
}

// Clean normalizes known problematic Unicode to ASCII equivalents. It is
// applied before embedding and before returning text from a query so the
// downstream embedder and TTS engine both see the same safe text.
func Clean(text string) string {
	var b strings.Builder
	for _, r := range text {
		if rep, ok := replacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsSafe reports whether text contains no CJK, no emoji, and no Unicode
// codepoint >= U+3000 other than the whitelisted € and •.
func IsSafe(text string) bool {
	for _, r := range text {
		if r >= 0x3000 && !allowedHigh[r] {
			return false
		}
	}
	return true
}

// Filter returns a TTS-safe version of text: Clean is applied, then any
// remaining disallowed codepoints are dropped outright.
func Filter(text string) string {
	cleaned := Clean(text)
	var b strings.Builder
	for _, r := range cleaned {
		if r >= 0x3000 && !allowedHigh[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
