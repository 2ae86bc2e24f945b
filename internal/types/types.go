package types

import "encoding/json"

// ExtractionResult is the outcome of extracting text from one document
type ExtractionResult struct {
	Success   bool              `json:"success"`
	Text      string            `json:"text"`
	Format    string            `json:"format,omitempty"`
	WordCount int               `json:"word_count"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Failed builds an unsuccessful extraction result
func Failed(format, code, message string) ExtractionResult {
	return ExtractionResult{
		Success:   false,
		Text:      "",
		Format:    format,
		Error:     message,
		ErrorCode: code,
	}
}

// Well-known AnalysisRecord fields
const (
	FieldContactInfo            = "contact_info"
	FieldSummary                = "summary"
	FieldSkills                 = "skills"
	FieldExperience             = "experience"
	FieldEducation              = "education"
	FieldLanguages              = "languages"
	FieldCertifications         = "certifications"
	FieldScore                  = "score"
	FieldImprovementSuggestions = "improvement_suggestions"
	FieldJobMatch               = "job_match"
	FieldError                  = "error"
	FieldRawAnalysis            = "raw_analysis"

	FieldOverallMatchScore  = "overall_match_score"
	FieldMatchingSkills     = "matching_skills"
	FieldMissingSkills      = "missing_skills"
	FieldMatchingExperience = "matching_experience"
	FieldRecommendations    = "recommendations"
)

// AnalysisRecord is the structured interpretation of a model reply. Degraded
// records keep whatever was recoverable plus "error" and "raw_analysis".
type AnalysisRecord map[string]any

// HasError reports whether the record carries an error field
func (r AnalysisRecord) HasError() bool {
	_, ok := r[FieldError]
	return ok
}

// ErrorMessage returns the error field as a string, or ""
func (r AnalysisRecord) ErrorMessage() string {
	if msg, ok := r[FieldError].(string); ok {
		return msg
	}
	return ""
}

// Strings returns a string list field. Both []string and decoded JSON arrays
// are accepted; non-string items are skipped.
func (r AnalysisRecord) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy made through a JSON round trip
func (r AnalysisRecord) Clone() AnalysisRecord {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		out := make(AnalysisRecord, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	var out AnalysisRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return r
	}
	return out
}

// PromptMode selects the kind of prompt to build
type PromptMode string

const (
	ModeResumeAnalysis     PromptMode = "resume_analysis"
	ModeJobPostingAnalysis PromptMode = "job_posting_analysis"
	ModeMatchAnalysis      PromptMode = "match_analysis"
	ModeCoverLetter        PromptMode = "cover_letter"
	ModeResumeTailoring    PromptMode = "resume_tailoring"
)

// Structured reports whether the mode expects a JSON record back
func (m PromptMode) Structured() bool {
	switch m {
	case ModeResumeAnalysis, ModeJobPostingAnalysis, ModeMatchAnalysis:
		return true
	default:
		return false
	}
}

// PromptContext bundles the inputs for one prompt
type PromptContext struct {
	ResumeText string     `json:"resume_text"`
	JobPosting string     `json:"job_posting,omitempty"`
	Mode       PromptMode `json:"mode"`
	Style      string     `json:"style,omitempty"`
	Emphasis   string     `json:"emphasis,omitempty"`
}

// GenerationResult is the outcome of a free-text generation
type GenerationResult struct {
	Operation string `json:"operation"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
