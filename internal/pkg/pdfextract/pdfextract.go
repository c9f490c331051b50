package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("pdf document is empty")

// Page is the plain text of one PDF page. Num is 1-based.
type Page struct {
	Num  int
	Text string
}

// ExtractPages returns the text of every page that has any. Pages without
// extractable text are skipped.
func ExtractPages(data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d failed: %w", i, err)
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		pages = append(pages, Page{Num: i, Text: text})
	}
	return pages, nil
}
