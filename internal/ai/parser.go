package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

// EmptyReplyMessage is the error recorded when the model returned nothing
const EmptyReplyMessage = "Analyse konnte nicht durchgeführt werden"

// Parse tiers
const (
	TierNone     = "none"
	TierJSON     = "json"
	TierSections = "sections"
)

var (
	skillMarkers       = []string{"Skills:", "Fähigkeiten:"}
	improvementMarkers = []string{"Verbesserung", "verbessern"}
)

// ParseOutcome describes how a reply was interpreted
type ParseOutcome struct {
	Tier     string   `json:"tier"`
	Degraded bool     `json:"degraded"`
	Problems []string `json:"problems,omitempty"`
}

// ResponseParser turns model replies into AnalysisRecords. JSON replies are
// decoded directly; anything else goes through a section heuristic.
type ResponseParser struct {
	schemas map[types.PromptMode]*gojsonschema.Schema
	logger  *errors.Logger
}

// NewResponseParser compiles the record schemas. logger may be nil.
func NewResponseParser(logger *errors.Logger) *ResponseParser {
	schemas := make(map[types.PromptMode]*gojsonschema.Schema, len(recordSchemas))
	for mode, source := range recordSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			panic(fmt.Sprintf("invalid record schema for %s: %v", mode, err))
		}
		schemas[mode] = schema
	}
	return &ResponseParser{schemas: schemas, logger: logger}
}

// Parse interprets a resume analysis reply
func (p *ResponseParser) Parse(reply string) types.AnalysisRecord {
	record, _ := p.ParseDetailed(reply, types.ModeResumeAnalysis)
	return record
}

// ParseDetailed interprets reply for mode and reports which tier produced the
// record. It never panics.
func (p *ResponseParser) ParseDetailed(reply string, mode types.PromptMode) (record types.AnalysisRecord, outcome ParseOutcome) {
	defer func() {
		if r := recover(); r != nil {
			record = types.AnalysisRecord{
				types.FieldError:       fmt.Sprint(r),
				types.FieldRawAnalysis: reply,
			}
			outcome = ParseOutcome{Tier: TierNone, Degraded: true, Problems: []string{fmt.Sprint(r)}}
		}
	}()

	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return types.AnalysisRecord{types.FieldError: EmptyReplyMessage},
			ParseOutcome{Tier: TierNone, Degraded: true, Problems: []string{"empty reply"}}
	}

	if looksLikeJSON(trimmed) {
		var decoded map[string]any
		err := json.Unmarshal([]byte(trimmed), &decoded)
		if err == nil && decoded != nil {
			problems := p.validate(trimmed, mode)
			outcome = ParseOutcome{Tier: TierJSON, Degraded: len(problems) > 0, Problems: problems}
			p.logOutcome(mode, outcome)
			return types.AnalysisRecord(decoded), outcome
		}
		problem := "reply is not a JSON object"
		if err != nil {
			problem = "invalid JSON: " + err.Error()
		}
		outcome.Problems = append(outcome.Problems, problem)
	}

	record = parseSections(reply)
	outcome.Tier = TierSections
	outcome.Degraded = true
	p.logOutcome(mode, outcome)
	return record, outcome
}

func looksLikeJSON(trimmed string) bool {
	return strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
}

// parseSections splits prose on blank lines. The first section is the
// summary; later sections may carry a skills list or improvement suggestions.
func parseSections(reply string) types.AnalysisRecord {
	sections := strings.Split(reply, "\n\n")
	record := types.AnalysisRecord{types.FieldSummary: sections[0]}

	for _, section := range sections[1:] {
		switch {
		case containsAny(section, skillMarkers):
			record[types.FieldSkills] = splitSkills(section)
		case containsAny(section, improvementMarkers):
			record[types.FieldImprovementSuggestions] = suggestionLines(section)
		}
	}
	return record
}

func splitSkills(section string) []string {
	_, after, _ := strings.Cut(section, ":")
	skills := []string{}
	for _, skill := range strings.Split(after, ",") {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			skills = append(skills, trimmed)
		}
	}
	return skills
}

func suggestionLines(section string) []string {
	lines := strings.Split(section, "\n")
	suggestions := []string{}
	for _, line := range lines[1:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			suggestions = append(suggestions, trimmed)
		}
	}
	return suggestions
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// validate checks a decoded reply against the schema for mode
func (p *ResponseParser) validate(document string, mode types.PromptMode) []string {
	schema, ok := p.schemas[mode]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return []string{"schema validation failed: " + err.Error()}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return problems
}

func (p *ResponseParser) logOutcome(mode types.PromptMode, outcome ParseOutcome) {
	if p.logger == nil || !outcome.Degraded {
		return
	}
	p.logger.Warn("Model reply parsed in degraded mode",
		"mode", string(mode),
		"tier", outcome.Tier,
		"error_code", errors.ErrCodeParseDegraded,
		"problems", outcome.Problems)
}
