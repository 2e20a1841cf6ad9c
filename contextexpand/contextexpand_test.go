package contextexpand

import (
	"strings"
	"testing"
)

func TestExpandIncludesMarkers(t *testing.T) {
	doc := "First sentence here. Second sentence is the chunk. Third sentence follows after."
	chunkStart := strings.Index(doc, "Second")
	chunkEnd := chunkStart + len("Second sentence is the chunk.")

	out := Expand(doc, chunkStart, chunkEnd, 50, 1000)
	if !strings.Contains(out, "[[CHUNK_START]]") || !strings.Contains(out, "[[CHUNK_END]]") {
		t.Errorf("expected chunk markers in output: %q", out)
	}
	if !strings.Contains(out, "First sentence") {
		t.Errorf("expected left expansion to include prior sentence: %q", out)
	}
	if !strings.Contains(out, "Third sentence") {
		t.Errorf("expected right expansion to include following sentence: %q", out)
	}
}

func TestExpandRespectsSafeLimit(t *testing.T) {
	doc := strings.Repeat("word ", 2000)
	out := Expand(doc, 0, 10, 500, 50)
	if len(out) > 50 {
		t.Errorf("expected output truncated to safe limit, got length %d", len(out))
	}
}

func TestExpandHandlesOutOfRangeOffsets(t *testing.T) {
	doc := "short document"
	out := Expand(doc, -5, 1000, 10, 1000)
	if out == "" {
		t.Error("expected clamped offsets to still produce output")
	}
}

func TestExpandEmptySpan(t *testing.T) {
	doc := "some text"
	out := Expand(doc, 5, 5, 10, 1000)
	if out != "" {
		t.Errorf("expected empty output for empty span, got %q", out)
	}
}
