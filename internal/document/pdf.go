package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource yields the plain text of numbered pages (1-based)
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfPages struct {
	reader *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.reader.NumPage() }

func (p pdfPages) PageText(num int) (string, error) {
	page := p.reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// parsePDF returns every page's text followed by a newline.
// The pdf library panics on some malformed inputs, so panics become errors.
func parsePDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	return joinPages(pdfPages{reader: reader})
}

func joinPages(src pageSource) (string, error) {
	var sb strings.Builder
	total := src.NumPage()
	for num := 1; num <= total; num++ {
		text, err := src.PageText(num)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", num, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
