package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"resumelens/internal/analysis"
	"resumelens/internal/config"
	"resumelens/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type names used as registry keys
const (
	TypeAny              = "any"
	TypeExtraction       = "ExtractionResult"
	TypeAnalysis         = "AnalysisRecord"
	TypeGeneration       = "GenerationResult"
	TypeDocumentAnalysis = "DocumentAnalysis"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	for _, format := range []string{"text", "markdown"} {
		markdown := format == "markdown"
		registry.RegisterFormatter(format, TypeExtraction, &ExtractionFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, TypeAnalysis, &AnalysisFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, TypeGeneration, &GenerationFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, TypeDocumentAnalysis, &DocumentAnalysisFormatter{Markdown: markdown})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ExtractionResult, *types.ExtractionResult:
		return TypeExtraction
	case types.AnalysisRecord:
		return TypeAnalysis
	case types.GenerationResult, *types.GenerationResult:
		return TypeGeneration
	case analysis.DocumentAnalysis, *analysis.DocumentAnalysis:
		return TypeDocumentAnalysis
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// writer emits headings and key/value lines as plain text or markdown
type writer struct {
	b        strings.Builder
	markdown bool
}

func (w *writer) title(s string) {
	if w.markdown {
		fmt.Fprintf(&w.b, "# %s\n\n", s)
		return
	}
	fmt.Fprintf(&w.b, "=== %s ===\n\n", strings.ToUpper(s))
}

func (w *writer) section(s string) {
	if w.markdown {
		fmt.Fprintf(&w.b, "## %s\n\n", s)
		return
	}
	fmt.Fprintf(&w.b, "--- %s ---\n", s)
}

func (w *writer) field(label string, value any) {
	if w.markdown {
		fmt.Fprintf(&w.b, "**%s:** %v\n\n", label, value)
		return
	}
	fmt.Fprintf(&w.b, "%s: %v\n", label, value)
}

func (w *writer) paragraph(s string) {
	w.b.WriteString(strings.TrimRight(s, "\n"))
	w.b.WriteString("\n\n")
}

func unwrap[T any](data any) (T, bool) {
	switch v := data.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

// ExtractionFormatter renders an extraction result
type ExtractionFormatter struct {
	Markdown bool
}

func (f *ExtractionFormatter) Format(data any) (string, error) {
	result, ok := unwrap[types.ExtractionResult](data)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}

	w := &writer{markdown: f.Markdown}
	w.title("Extraction")
	w.field("Format", result.Format)
	w.field("Success", result.Success)
	if !result.Success {
		w.field("Error", result.Error)
		return w.b.String(), nil
	}
	w.field("Words", result.WordCount)
	for _, key := range sortedKeys(result.Metadata) {
		w.field(key, result.Metadata[key])
	}
	w.b.WriteString("\n")
	w.section("Text")
	w.paragraph(result.Text)

	return w.b.String(), nil
}

func (f *ExtractionFormatter) SupportedType() string {
	return TypeExtraction
}

// fieldOrder fixes the position of well-known record fields; others follow sorted
var fieldOrder = []string{
	types.FieldSummary,
	types.FieldContactInfo,
	types.FieldSkills,
	types.FieldExperience,
	types.FieldEducation,
	types.FieldLanguages,
	types.FieldCertifications,
	types.FieldScore,
	types.FieldOverallMatchScore,
	types.FieldMatchingSkills,
	types.FieldMissingSkills,
	types.FieldMatchingExperience,
	types.FieldJobMatch,
	types.FieldImprovementSuggestions,
	types.FieldRecommendations,
}

// AnalysisFormatter renders a structured analysis record
type AnalysisFormatter struct {
	Markdown bool
}

func (f *AnalysisFormatter) Format(data any) (string, error) {
	record, ok := data.(types.AnalysisRecord)
	if !ok {
		return "", fmt.Errorf("expected AnalysisRecord, got %T", data)
	}

	w := &writer{markdown: f.Markdown}
	w.title("Analysis")
	writeRecord(w, record)
	return w.b.String(), nil
}

func (f *AnalysisFormatter) SupportedType() string {
	return TypeAnalysis
}

func writeRecord(w *writer, record types.AnalysisRecord) {
	if msg := record.ErrorMessage(); msg != "" {
		w.field("Error", msg)
		w.b.WriteString("\n")
	}

	for _, key := range recordKeys(record) {
		w.section(headingFor(key))
		writeValue(w, record[key], 0)
		w.b.WriteString("\n")
	}

	if raw, ok := record[types.FieldRawAnalysis].(string); ok && raw != "" {
		w.section("Raw Analysis")
		w.paragraph(raw)
	}
}

// recordKeys lists displayable keys: well-known order first, then the rest sorted
func recordKeys(record types.AnalysisRecord) []string {
	keys := make([]string, 0, len(record))
	for _, key := range fieldOrder {
		if _, ok := record[key]; ok {
			keys = append(keys, key)
		}
	}
	var rest []string
	for key := range record {
		if slices.Contains(fieldOrder, key) || key == types.FieldError || key == types.FieldRawAnalysis {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// headingFor turns a snake_case key into a title
func headingFor(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// writeValue renders decoded JSON: lists as bullets, objects as key lines
func writeValue(w *writer, value any, depth int) {
	indent := strings.Repeat("  ", depth)

	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			switch child := v[key].(type) {
			case map[string]any, []any:
				fmt.Fprintf(&w.b, "%s- %s:\n", indent, headingFor(key))
				writeValue(w, child, depth+1)
			default:
				fmt.Fprintf(&w.b, "%s- %s: %s\n", indent, headingFor(key), scalar(child))
			}
		}
	case []any:
		for _, item := range v {
			switch child := item.(type) {
			case map[string]any:
				fmt.Fprintf(&w.b, "%s-\n", indent)
				writeValue(w, child, depth+1)
			default:
				fmt.Fprintf(&w.b, "%s- %s\n", indent, scalar(child))
			}
		}
	case []string:
		for _, item := range v {
			fmt.Fprintf(&w.b, "%s- %s\n", indent, item)
		}
	default:
		fmt.Fprintf(&w.b, "%s%s\n", indent, scalar(v))
	}
}

func scalar(v any) string {
	switch s := v.(type) {
	case nil:
		return "-"
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%.2f", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GenerationFormatter renders a cover letter or tailored resume
type GenerationFormatter struct {
	Markdown bool
}

func (f *GenerationFormatter) Format(data any) (string, error) {
	result, ok := unwrap[types.GenerationResult](data)
	if !ok {
		return "", fmt.Errorf("expected GenerationResult, got %T", data)
	}

	w := &writer{markdown: f.Markdown}
	switch result.Operation {
	case string(config.OperationCoverLetter):
		w.title("Cover Letter")
	case string(config.OperationTailor):
		w.title("Tailored Resume")
	default:
		w.title("Generated Text")
	}

	if !result.Success {
		w.field("Error", result.Error)
		return w.b.String(), nil
	}
	w.paragraph(result.Content)
	if result.Model != "" {
		w.field("Model", result.Model)
	}
	return w.b.String(), nil
}

func (f *GenerationFormatter) SupportedType() string {
	return TypeGeneration
}

// DocumentAnalysisFormatter renders extraction details followed by the analysis
type DocumentAnalysisFormatter struct {
	Markdown bool
}

func (f *DocumentAnalysisFormatter) Format(data any) (string, error) {
	result, ok := unwrap[analysis.DocumentAnalysis](data)
	if !ok {
		return "", fmt.Errorf("expected DocumentAnalysis, got %T", data)
	}

	w := &writer{markdown: f.Markdown}
	w.title("Document Analysis")
	w.field("Format", result.Extraction.Format)
	if !result.Extraction.Success {
		w.field("Error", result.Extraction.Error)
		return w.b.String(), nil
	}
	w.field("Words", result.Extraction.WordCount)
	w.b.WriteString("\n")
	if result.Analysis != nil {
		writeRecord(w, result.Analysis)
	}
	return w.b.String(), nil
}

func (f *DocumentAnalysisFormatter) SupportedType() string {
	return TypeDocumentAnalysis
}

// GlobalRegistry is the registry used by CLI output handling
var GlobalRegistry = NewFormatterRegistry()
