package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXExtractor extracts paragraph text from a DOCX's word/document.xml.
type DOCXExtractor struct{}

func (e *DOCXExtractor) SupportedFormats() []string { return []string{"docx"} }

func (e *DOCXExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("extract: word/document.xml not found in DOCX: %s", path)
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("extract: opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extract: reading document.xml: %w", err)
	}

	text, err := extractDocxParagraphs(data)
	if err != nil {
		return nil, fmt.Errorf("extract: parsing document.xml: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("extract: no text content in DOCX: %s", path)
	}

	return &Result{Pages: []Page{{Content: text}}, Method: "native"}, nil
}

// docxText models the WordprocessingML <w:t> run-text element, the only
// element whose content extractDocxParagraphs keeps.
type docxText struct {
	XMLName xml.Name `xml:"t"`
	Text    string   `xml:",chardata"`
}

// extractDocxParagraphs walks the raw XML token stream and joins <w:t>
// run text, inserting a newline at each </w:p> paragraph close.
func extractDocxParagraphs(data []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	var b strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				var dt docxText
				if err := dec.DecodeElement(&dt, &t); err == nil {
					b.WriteString(dt.Text)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}

	return b.String(), nil
}
