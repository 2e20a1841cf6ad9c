package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// LegacyDOCExtractor extracts best-effort plain text from legacy binary
// .doc files by reading the WordDocument stream out of the OLE compound
// file container and recovering runs of UTF-16LE text. It does not parse
// the FIB/piece table, so formatting and exact paragraph boundaries are
// not reconstructed; this is adequate for a retrieval corpus where only
// the words matter.
type LegacyDOCExtractor struct{}

func (e *LegacyDOCExtractor) SupportedFormats() []string { return []string{"doc"} }

func (e *LegacyDOCExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening DOC: %w", err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, fmt.Errorf("extract: reading compound file: %w", err)
	}

	var wordStream []byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "WordDocument" {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := doc.Read(buf); err != nil {
			return nil, fmt.Errorf("extract: reading WordDocument stream: %w", err)
		}
		wordStream = buf
		break
	}

	if wordStream == nil {
		return nil, fmt.Errorf("extract: no WordDocument stream found in %s", path)
	}

	text := recoverUTF16Text(wordStream)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract: no recoverable text in DOC: %s", path)
	}

	return &Result{Pages: []Page{{Content: text}}, Method: "native"}, nil
}

// recoverUTF16Text scans raw bytes for runs of plausible UTF-16LE text
// (printable runes separated by the usual 0x00 high byte) and joins them
// with whitespace, discarding everything else in the stream.
func recoverUTF16Text(data []byte) string {
	var b strings.Builder
	var run []uint16

	flush := func() {
		if len(run) < 3 {
			run = run[:0]
			return
		}
		decoded := utf16.Decode(run)
		b.WriteString(string(decoded))
		b.WriteRune(' ')
		run = run[:0]
	}

	for i := 0; i+1 < len(data); i += 2 {
		lo, hi := data[i], data[i+1]
		if hi != 0 {
			flush()
			continue
		}
		r := rune(lo)
		if unicode.IsPrint(r) || r == '\n' {
			run = append(run, uint16(lo))
		} else {
			flush()
		}
	}
	flush()

	return b.String()
}
