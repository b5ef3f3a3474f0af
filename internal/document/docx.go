package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// WordprocessingML and markup-compatibility names
const (
	wordNamespace   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	compatNamespace = "http://schemas.openxmlformats.org/markup-compatibility/2006"

	elemParagraph = "p"
	elemRun       = "r"
	elemText      = "t"
	elemTab       = "tab"
	elemBreak     = "br"
	elemCarriage  = "cr"
	elemParaProps = "pPr"
	elemRunProps  = "rPr"
	elemFallback  = "Fallback"
)

// parseDOCX returns every paragraph's text followed by a newline
func parseDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX container: %w", err)
	}

	for _, file := range archive.File {
		if file.Name != docxBodyPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
		}
		defer func() { _ = rc.Close() }()
		return paragraphsText(rc)
	}

	return "", fmt.Errorf("%s not found in DOCX container", docxBodyPart)
}

// paragraphFrame is one open w:p. Paragraphs nested inside it (text boxes)
// are kept in nested and written after the frame's own line.
type paragraphFrame struct {
	text   strings.Builder
	nested []string
	runs   int
}

// paragraphsText streams the document body and writes one line per w:p.
// Only w:t, w:tab, w:br and w:cr inside a run contribute text; property
// subtrees and mc:Fallback copies are skipped.
func paragraphsText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		stack  []*paragraphFrame
		inText bool
	)
	top := func() *paragraphFrame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	inRun := func() bool {
		f := top()
		return f != nil && f.runs > 0
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if isCompatElement(t.Name) && t.Name.Local == elemFallback {
				if err := decoder.Skip(); err != nil {
					return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
				}
				continue
			}
			if !isWordElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case elemParaProps, elemRunProps:
				if err := decoder.Skip(); err != nil {
					return "", fmt.Errorf("failed to parse %s: %w", docxBodyPart, err)
				}
			case elemParagraph:
				stack = append(stack, &paragraphFrame{})
			case elemRun:
				if f := top(); f != nil {
					f.runs++
				}
			case elemText:
				inText = inRun()
			case elemTab:
				if inRun() {
					top().text.WriteString("\t")
				}
			case elemBreak, elemCarriage:
				if inRun() {
					top().text.WriteString("\n")
				}
			}
		case xml.EndElement:
			if !isWordElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case elemText:
				inText = false
			case elemRun:
				if f := top(); f != nil && f.runs > 0 {
					f.runs--
				}
			case elemParagraph:
				f := top()
				if f == nil {
					continue
				}
				stack = stack[:len(stack)-1]
				lines := append([]string{f.text.String()}, f.nested...)
				if parent := top(); parent != nil {
					parent.nested = append(parent.nested, lines...)
					continue
				}
				for _, line := range lines {
					sb.WriteString(line)
					sb.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText && inRun() {
				top().text.Write(t)
			}
		}
	}

	return sb.String(), nil
}

func isCompatElement(name xml.Name) bool {
	return name.Space == compatNamespace || name.Space == "mc"
}

// isWordElement accepts the main namespace, plus bare or undeclared "w" names from hand-built files
func isWordElement(name xml.Name) bool {
	return name.Space == wordNamespace || name.Space == "" || name.Space == "w"
}
