package qagen

import (
	"fmt"
	"strings"
	"testing"
)

func TestNeedsSplitThreshold(t *testing.T) {
	small := strings.Repeat("word ", 100)
	if NeedsSplit(small) {
		t.Error("expected small text not to need splitting")
	}
	large := strings.Repeat("word ", 50000)
	if !NeedsSplit(large) {
		t.Error("expected large text to need splitting")
	}
}

func TestSplitByPages(t *testing.T) {
	pages := make([]string, 10)
	for i := range pages {
		pages[i] = strings.Repeat("sentence text here. ", 1000)
	}
	windows := Split(strings.Join(pages, ""), pages)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	for _, w := range windows {
		if w.StartPage == 0 || w.EndPage == 0 {
			t.Errorf("expected page attribution on window, got start=%d end=%d", w.StartPage, w.EndPage)
		}
	}
}

func TestSplitByParagraphsWithoutPages(t *testing.T) {
	var paras []string
	for i := 0; i < 50; i++ {
		paras = append(paras, strings.Repeat("word ", 500))
	}
	text := strings.Join(paras, "\n\n")
	windows := Split(text, nil)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows without page info, got %d", len(windows))
	}
}

func TestSplitProducesOverlap(t *testing.T) {
	var paras []string
	// Distinct ~400-token paragraphs, each small enough to fit within
	// WindowOverlapTokens.
	for i := 0; i < 30; i++ {
		paras = append(paras, strings.Repeat(fmt.Sprintf("p%02d ", i), 400))
	}
	text := strings.Join(paras, "\n\n")
	windows := Split(text, nil)
	if len(windows) < 2 {
		t.Fatal("expected multiple windows to check overlap")
	}
	// Overlap means window 1 begins with the last section of window 0.
	prev := strings.Split(windows[0].Text, "\n\n")
	tail := prev[len(prev)-1]
	if !strings.HasPrefix(windows[1].Text, tail) {
		t.Error("expected overlapping content carried into next window")
	}
}
