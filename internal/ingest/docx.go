package ingest

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"
)

// extractWordText pulls the visible text out of a word-processor document:
// first every paragraph, then every table cell in row-major order, one unit
// per line. Units that are empty after trimming are skipped.
func extractWordText(raw []byte, filename string) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", &DecodeError{Filename: filename, Err: err}
	}

	var units []string
	addUnit := func(s string) {
		if strings.TrimSpace(s) != "" {
			units = append(units, s)
		}
	}

	var tables []*docx.Table
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			addUnit(it.String())
		case *docx.Table:
			tables = append(tables, it)
		}
	}

	for _, table := range tables {
		for _, row := range table.TableRows {
			for _, cell := range row.TableCells {
				var parts []string
				for _, p := range cell.Paragraphs {
					if s := strings.TrimSpace(p.String()); s != "" {
						parts = append(parts, s)
					}
				}
				addUnit(strings.Join(parts, "\n"))
			}
		}
	}

	return strings.Join(units, "\n"), nil
}
