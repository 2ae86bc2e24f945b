package extract

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// extractTXT decodes plain text permissively. A byte order mark selects
// UTF-8 or UTF-16; anything else is read as UTF-8 with invalid sequences
// replaced by U+FFFD.
func extractTXT(data []byte) (rawDocument, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return rawDocument{}, fmt.Errorf("failed to decode text: %w", err)
	}
	return rawDocument{
		text:     string(text),
		metadata: map[string]string{MetaEncoding: detectEncoding(data)},
	}, nil
}

func detectEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		return "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		return "utf-16be"
	default:
		return "utf-8"
	}
}
