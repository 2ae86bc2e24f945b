package extract

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv"
)

// docconvPDF converts through docconv, which shells out to poppler's
// pdftotext. It only runs when the built-in PDF reader has failed.
func docconvPDF(data []byte) (rawDocument, error) {
	body, meta, err := docconv.ConvertPDF(bytes.NewReader(data))
	if err != nil {
		return rawDocument{}, fmt.Errorf("docconv PDF conversion failed: %w", err)
	}
	return rawDocument{text: body, metadata: docconvMetadata(meta)}, nil
}

func docconvDOCX(data []byte) (rawDocument, error) {
	body, meta, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return rawDocument{}, fmt.Errorf("docconv DOCX conversion failed: %w", err)
	}
	return rawDocument{text: body, metadata: docconvMetadata(meta)}, nil
}

// docconvMetadata keeps the document title if docconv found one
func docconvMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string)
	if title := meta["Title"]; title != "" {
		out[MetaTitle] = title
	}
	return out
}
