package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxDocumentPath = "word/document.xml"

// WordprocessingML subset needed for body text. Element names are matched
// without namespace, so w:p, w:r and w:t map directly.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Content []docxRunContent `xml:",any"`
}

type docxRunContent struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

func (p docxParagraph) text() string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, item := range run.Content {
			switch item.XMLName.Local {
			case "t":
				b.WriteString(item.Text)
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// extractDOCX reads the paragraphs of the main document part. Empty
// paragraphs are dropped and the rest are joined with blank lines.
func extractDOCX(data []byte) (rawDocument, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return rawDocument{}, fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	var documentFile *zip.File
	for _, f := range archive.File {
		if f.Name == docxDocumentPath {
			documentFile = f
			break
		}
	}
	if documentFile == nil {
		return rawDocument{}, fmt.Errorf("invalid DOCX: %s not found", docxDocumentPath)
	}

	rc, err := documentFile.Open()
	if err != nil {
		return rawDocument{}, fmt.Errorf("failed to open %s: %w", docxDocumentPath, err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return rawDocument{}, fmt.Errorf("failed to read %s: %w", docxDocumentPath, err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return rawDocument{}, fmt.Errorf("failed to parse %s: %w", docxDocumentPath, err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		if text := p.text(); strings.TrimSpace(text) != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return rawDocument{
		text:     strings.Join(paragraphs, "\n\n"),
		metadata: map[string]string{MetaParagraphs: itoa(len(paragraphs))},
	}, nil
}
