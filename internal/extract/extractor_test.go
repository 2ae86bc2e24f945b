package extract

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"

	"golang.org/x/text/encoding/unicode"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

func newTestExtractor(fallback bool) *Extractor {
	return New(config.ExtractionConfig{MaxFileSize: DefaultMaxFileSize, Fallback: fallback}, testLogger)
}

// checkInvariants verifies the shape every ExtractionResult must have
func checkInvariants(t *testing.T, r types.ExtractionResult) {
	t.Helper()
	if !r.Success {
		if r.Text != "" {
			t.Errorf("failed result must have empty text, got %q", r.Text)
		}
		if r.Error == "" {
			t.Error("failed result must carry an error message")
		}
	} else if r.Error != "" {
		t.Errorf("successful result must not carry an error, got %q", r.Error)
	}
	if r.WordCount != len(strings.Fields(r.Text)) {
		t.Errorf("word count %d does not match text %q", r.WordCount, r.Text)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		filename  string
		format    string
		supported bool
	}{
		{"lebenslauf.pdf", "pdf", true},
		{"CV.PDF", "pdf", true},
		{"cv.DocX", "docx", true},
		{"old.doc", "doc", true},
		{"notes.txt", "txt", true},
		{"cv.rtf", "rtf", false},
		{"archive.tar.gz", "gz", false},
		{"README", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			format, ok := FormatOf(tt.filename)
			if format != tt.format || ok != tt.supported {
				t.Errorf("FormatOf(%q) = (%q, %v), want (%q, %v)", tt.filename, format, ok, tt.format, tt.supported)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	e := newTestExtractor(false)

	tests := []struct {
		filename string
		message  string
	}{
		{"lebenslauf.RTF", "Nicht unterstütztes Dateiformat: .rtf"},
		{"photo.jpg", "Nicht unterstütztes Dateiformat: .jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			for _, result := range []types.ExtractionResult{
				e.ExtractBytes([]byte("irrelevant"), tt.filename),
				e.Extract(filepath.Join(t.TempDir(), tt.filename)),
			} {
				checkInvariants(t, result)
				if result.Success {
					t.Fatal("expected failure")
				}
				if result.Error != tt.message {
					t.Errorf("Error = %q, want %q", result.Error, tt.message)
				}
				if result.ErrorCode != errors.ErrCodeUnsupportedFormat {
					t.Errorf("ErrorCode = %q", result.ErrorCode)
				}
			}
		})
	}
}

func TestExtractPDF(t *testing.T) {
	e := newTestExtractor(false)

	t.Run("two pages with title", func(t *testing.T) {
		data := buildPDF(t, []string{textPage("Hello World"), textPage("Second Page")}, "Lebenslauf")
		result := e.ExtractBytes(data, "cv.pdf")
		checkInvariants(t, result)

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		if result.Text != "Hello World Second Page" {
			t.Errorf("Text = %q", result.Text)
		}
		if result.WordCount != 4 {
			t.Errorf("WordCount = %d, want 4", result.WordCount)
		}
		if result.Format != FormatPDF {
			t.Errorf("Format = %q", result.Format)
		}
		if result.Metadata[MetaPages] != "2" || result.Metadata[MetaPagesWithText] != "2" {
			t.Errorf("unexpected page metadata: %v", result.Metadata)
		}
		if result.Metadata[MetaTitle] != "Lebenslauf" {
			t.Errorf("title = %q", result.Metadata[MetaTitle])
		}
		if result.Metadata[MetaExtractor] != ExtractorPrimary {
			t.Errorf("extractor = %q", result.Metadata[MetaExtractor])
		}
	})

	t.Run("pages without text are skipped", func(t *testing.T) {
		data := buildPDF(t, []string{"BT ET", noContents, textPage("Only Text")}, "")
		result := e.ExtractBytes(data, "cv.pdf")
		checkInvariants(t, result)

		if !result.Success || result.Text != "Only Text" {
			t.Fatalf("got success=%v text=%q error=%q", result.Success, result.Text, result.Error)
		}
		if result.Metadata[MetaPages] != "3" || result.Metadata[MetaPagesWithText] != "1" {
			t.Errorf("unexpected page metadata: %v", result.Metadata)
		}
		if _, ok := result.Metadata[MetaTitle]; ok {
			t.Error("title must be absent without an Info dictionary")
		}
	})

	t.Run("scanned document succeeds with empty text", func(t *testing.T) {
		data := buildPDF(t, []string{"BT ET"}, "")
		result := e.ExtractBytes(data, "scan.pdf")
		checkInvariants(t, result)

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		if result.Text != "" || result.WordCount != 0 {
			t.Errorf("expected empty text, got %q", result.Text)
		}
	})

	t.Run("zero pages", func(t *testing.T) {
		result := e.ExtractBytes(buildPDF(t, nil, ""), "empty.pdf")
		checkInvariants(t, result)

		if result.Success {
			t.Fatal("expected failure")
		}
		if result.Error != "No pages in PDF" {
			t.Errorf("Error = %q", result.Error)
		}
		if result.ErrorCode != errors.ErrCodeExtractionFailed {
			t.Errorf("ErrorCode = %q", result.ErrorCode)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		result := e.ExtractBytes([]byte("this is not a pdf"), "broken.pdf")
		checkInvariants(t, result)

		if result.Success {
			t.Fatal("expected failure")
		}
		if !strings.Contains(result.Error, "failed to open PDF") {
			t.Errorf("Error = %q", result.Error)
		}
	})
}

func TestExtractDOCX(t *testing.T) {
	e := newTestExtractor(false)

	t.Run("paragraphs tabs and breaks", func(t *testing.T) {
		data := buildDOCX(t,
			`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Max Mustermann</w:t></w:r></w:p>`,
			`<w:p></w:p>`,
			`<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r><w:r><w:t xml:space="preserve"> und Python</w:t><w:br/><w:t>Köln</w:t></w:r></w:p>`,
		)
		result := e.ExtractBytes(data, "cv.docx")
		checkInvariants(t, result)

		if !result.Success {
			t.Fatalf("expected success, got error %q", result.Error)
		}
		want := "Max Mustermann Skills: Go und Python Köln"
		if result.Text != want {
			t.Errorf("Text = %q, want %q", result.Text, want)
		}
		if result.Metadata[MetaParagraphs] != "2" {
			t.Errorf("paragraphs = %q", result.Metadata[MetaParagraphs])
		}
	})

	t.Run("paragraph text", func(t *testing.T) {
		p := docxParagraph{Runs: []docxRun{{Content: []docxRunContent{
			{XMLName: xmlName("t"), Text: "a"},
			{XMLName: xmlName("tab")},
			{XMLName: xmlName("t"), Text: "b"},
			{XMLName: xmlName("br")},
			{XMLName: xmlName("t"), Text: "c"},
		}}}}
		if got := p.text(); got != "a\tb\nc" {
			t.Errorf("text() = %q", got)
		}
	})

	t.Run("missing document part", func(t *testing.T) {
		data := zipFiles(t, map[string]string{"word/other.xml": "<x/>"})
		result := e.ExtractBytes(data, "cv.docx")
		checkInvariants(t, result)
		if result.Success || !strings.Contains(result.Error, "word/document.xml not found") {
			t.Errorf("got success=%v error=%q", result.Success, result.Error)
		}
	})

	t.Run("not a zip archive", func(t *testing.T) {
		result := e.ExtractBytes([]byte("plain bytes"), "cv.docx")
		checkInvariants(t, result)
		if result.Success || result.ErrorCode != errors.ErrCodeExtractionFailed {
			t.Errorf("got success=%v code=%q", result.Success, result.ErrorCode)
		}
	})
}

func TestExtractDOC(t *testing.T) {
	result := newTestExtractor(true).ExtractBytes([]byte{0xD0, 0xCF, 0x11, 0xE0}, "alt.DOC")
	checkInvariants(t, result)

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	want := "Die Extraktion aus DOC-Dateien erfordert zusätzliche Libraries. Bitte konvertieren Sie die Datei in DOCX oder PDF."
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
	if result.Format != FormatDOC {
		t.Errorf("Format = %q", result.Format)
	}
}

func TestExtractTXT(t *testing.T) {
	e := newTestExtractor(false)

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("Jürgen Müller\r\nEntwickler")
	if err != nil {
		t.Fatalf("failed to encode UTF-16 fixture: %v", err)
	}

	tests := []struct {
		name     string
		data     []byte
		want     string
		encoding string
	}{
		{
			name:     "utf-8",
			data:     []byte("Jürgen Müller\n\n  Softwareentwickler\t"),
			want:     "Jürgen Müller Softwareentwickler",
			encoding: "utf-8",
		},
		{
			name:     "utf-8 with bom",
			data:     append([]byte{0xEF, 0xBB, 0xBF}, []byte("Straße")...),
			want:     "Straße",
			encoding: "utf-8-bom",
		},
		{
			name:     "utf-16le with bom",
			data:     []byte(utf16),
			want:     "Jürgen Müller Entwickler",
			encoding: "utf-16le",
		},
		{
			name:     "invalid bytes are dropped",
			data:     []byte("Go\xffEntwickler"),
			want:     "GoEntwickler",
			encoding: "utf-8",
		},
		{
			name:     "page breaks",
			data:     []byte("Seite eins\fSeite zwei"),
			want:     "Seite eins\n\nSeite zwei",
			encoding: "utf-8",
		},
		{
			name:     "whitespace only",
			data:     []byte(" \n\t "),
			want:     "",
			encoding: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.ExtractBytes(tt.data, "notes.txt")
			checkInvariants(t, result)

			if !result.Success {
				t.Fatalf("expected success, got error %q", result.Error)
			}
			if result.Text != tt.want {
				t.Errorf("Text = %q, want %q", result.Text, tt.want)
			}
			if result.Metadata[MetaEncoding] != tt.encoding {
				t.Errorf("encoding = %q, want %q", result.Metadata[MetaEncoding], tt.encoding)
			}
		})
	}
}

func TestExtractFromPath(t *testing.T) {
	dir := t.TempDir()
	e := newTestExtractor(false)

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(dir, "Lebenslauf.TXT")
		if err := os.WriteFile(path, []byte("Erfahrung in Go"), 0600); err != nil {
			t.Fatal(err)
		}
		result := e.Extract(path)
		checkInvariants(t, result)
		if !result.Success || result.Text != "Erfahrung in Go" || result.WordCount != 3 {
			t.Errorf("got %+v", result)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		result := e.Extract(filepath.Join(dir, "missing.pdf"))
		checkInvariants(t, result)
		if result.Success || result.ErrorCode != errors.ErrCodeFileNotFound {
			t.Errorf("got success=%v code=%q", result.Success, result.ErrorCode)
		}
	})

	t.Run("file too large", func(t *testing.T) {
		small := New(config.ExtractionConfig{MaxFileSize: 8}, nil)
		path := filepath.Join(dir, "big.txt")
		if err := os.WriteFile(path, []byte("more than eight bytes"), 0600); err != nil {
			t.Fatal(err)
		}
		result := small.Extract(path)
		checkInvariants(t, result)
		if result.Success || result.ErrorCode != errors.ErrCodeFileTooLarge {
			t.Errorf("got success=%v code=%q", result.Success, result.ErrorCode)
		}
		if !strings.Contains(result.Error, "exceeds limit") {
			t.Errorf("Error = %q", result.Error)
		}

		bytesResult := small.ExtractBytes([]byte("more than eight bytes"), "big.txt")
		if bytesResult.ErrorCode != errors.ErrCodeFileTooLarge {
			t.Errorf("ExtractBytes code = %q", bytesResult.ErrorCode)
		}
		readerResult := small.ExtractReader(strings.NewReader("more than eight bytes"), "big.txt")
		if readerResult.ErrorCode != errors.ErrCodeFileTooLarge {
			t.Errorf("ExtractReader code = %q", readerResult.ErrorCode)
		}
	})
}

func TestFallback(t *testing.T) {
	stub := func(calls *int) strategy {
		return func([]byte) (rawDocument, error) {
			*calls++
			return rawDocument{text: "Fallback Text", metadata: map[string]string{}}, nil
		}
	}

	t.Run("used when primary fails", func(t *testing.T) {
		calls := 0
		e := newTestExtractor(true)
		e.fallbacks[FormatPDF] = stub(&calls)

		result := e.ExtractBytes([]byte("not a pdf"), "cv.pdf")
		checkInvariants(t, result)
		if !result.Success || result.Text != "Fallback Text" {
			t.Fatalf("got success=%v text=%q error=%q", result.Success, result.Text, result.Error)
		}
		if result.Metadata[MetaExtractor] != ExtractorDocconv {
			t.Errorf("extractor = %q", result.Metadata[MetaExtractor])
		}
		if calls != 1 {
			t.Errorf("fallback calls = %d", calls)
		}
	})

	t.Run("disabled by configuration", func(t *testing.T) {
		calls := 0
		e := newTestExtractor(false)
		e.fallbacks[FormatDOCX] = stub(&calls)

		result := e.ExtractBytes([]byte("not a zip"), "cv.docx")
		if result.Success || calls != 0 {
			t.Errorf("got success=%v calls=%d", result.Success, calls)
		}
	})

	t.Run("never for zero-page PDFs", func(t *testing.T) {
		calls := 0
		e := newTestExtractor(true)
		e.fallbacks[FormatPDF] = stub(&calls)

		result := e.ExtractBytes(buildPDF(t, nil, ""), "empty.pdf")
		if result.Success || result.Error != "No pages in PDF" || calls != 0 {
			t.Errorf("got success=%v error=%q calls=%d", result.Success, result.Error, calls)
		}
	})

	t.Run("fallback failure keeps primary error", func(t *testing.T) {
		e := newTestExtractor(true)
		e.fallbacks[FormatPDF] = func([]byte) (rawDocument, error) {
			return rawDocument{}, stderrors.New("pdftotext not installed")
		}

		result := e.ExtractBytes([]byte("not a pdf"), "cv.pdf")
		checkInvariants(t, result)
		if result.Success || !strings.Contains(result.Error, "failed to open PDF") {
			t.Errorf("got success=%v error=%q", result.Success, result.Error)
		}
	})
}

func TestPanicRecovery(t *testing.T) {
	e := newTestExtractor(false)
	e.strategies[FormatTXT] = func([]byte) (rawDocument, error) {
		panic("decoder exploded")
	}

	result := e.ExtractBytes([]byte("text"), "cv.txt")
	checkInvariants(t, result)
	if result.Success || result.Error != "decoder exploded" {
		t.Errorf("got success=%v error=%q", result.Success, result.Error)
	}
}
