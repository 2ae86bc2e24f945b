package extract

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// errNoPages is returned for PDFs whose page tree is empty. The message is
// surfaced to callers verbatim.
var errNoPages = stderrors.New("No pages in PDF") //nolint:staticcheck // user-facing message

// extractPDF decodes page content streams one by one. Pages without content
// or without visible text are skipped; a scanned PDF therefore succeeds with
// empty text.
func extractPDF(data []byte) (rawDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return rawDocument{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages <= 0 {
		return rawDocument{}, errNoPages
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return rawDocument{}, fmt.Errorf("failed to read PDF page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	metadata := map[string]string{
		MetaPages:         itoa(numPages),
		MetaPagesWithText: itoa(len(pages)),
	}
	if title := pdfTitle(reader); title != "" {
		metadata[MetaTitle] = title
	}

	return rawDocument{
		text:     strings.Join(pages, "\n\n"),
		metadata: metadata,
	}, nil
}

func pdfTitle(reader *pdf.Reader) string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}
