package ai

import (
	"testing"

	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONReply(t *testing.T) {
	p := NewResponseParser(nil)

	record, outcome := p.ParseDetailed(`  {"summary":"x","skills":["a","b"]}  `, types.ModeResumeAnalysis)

	assert.Equal(t, TierJSON, outcome.Tier)
	assert.False(t, outcome.Degraded)
	assert.Empty(t, outcome.Problems)
	assert.Equal(t, "x", record[types.FieldSummary])
	assert.Equal(t, []string{"a", "b"}, record.Strings(types.FieldSkills))
	assert.False(t, record.HasError())
}

func TestParseSectionReply(t *testing.T) {
	p := NewResponseParser(nil)
	reply := "Intro paragraph.\n\nSkills: Python, SQL\n\nVerbesserung\nDo X\nDo Y"

	record, outcome := p.ParseDetailed(reply, types.ModeResumeAnalysis)

	assert.Equal(t, TierSections, outcome.Tier)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, types.AnalysisRecord{
		types.FieldSummary:                "Intro paragraph.",
		types.FieldSkills:                 []string{"Python", "SQL"},
		types.FieldImprovementSuggestions: []string{"Do X", "Do Y"},
	}, record)
}

func TestParseSectionMarkers(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected types.AnalysisRecord
	}{
		{
			name:     "summary only",
			reply:    "Nur ein Absatz ohne Struktur.",
			expected: types.AnalysisRecord{types.FieldSummary: "Nur ein Absatz ohne Struktur."},
		},
		{
			name:  "german skills label",
			reply: "Kurzprofil\n\nFähigkeiten: Go, Kubernetes , ,Terraform",
			expected: types.AnalysisRecord{
				types.FieldSummary: "Kurzprofil",
				types.FieldSkills:  []string{"Go", "Kubernetes", "Terraform"},
			},
		},
		{
			name:  "lowercase improvement marker",
			reply: "Profil\n\nDas solltest du verbessern:\n\n",
			expected: types.AnalysisRecord{
				types.FieldSummary:                "Profil",
				types.FieldImprovementSuggestions: []string{},
			},
		},
		{
			name:  "skills marker in first section is only summary",
			reply: "Skills: Go\n\nEnde",
			expected: types.AnalysisRecord{
				types.FieldSummary: "Skills: Go",
			},
		},
	}

	p := NewResponseParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Parse(tt.reply))
		})
	}
}

func TestParseEmptyReply(t *testing.T) {
	p := NewResponseParser(nil)

	for _, reply := range []string{"", "   \n\t "} {
		record, outcome := p.ParseDetailed(reply, types.ModeMatchAnalysis)
		assert.Equal(t, types.AnalysisRecord{types.FieldError: EmptyReplyMessage}, record)
		assert.Equal(t, TierNone, outcome.Tier)
		assert.True(t, outcome.Degraded)
	}
}

func TestParseMalformedJSONFallsBack(t *testing.T) {
	p := NewResponseParser(nil)
	reply := `{"summary": "abgeschnitten", "skills": [`

	record, outcome := p.ParseDetailed(reply+"}", types.ModeResumeAnalysis)

	assert.Equal(t, TierSections, outcome.Tier)
	assert.True(t, outcome.Degraded)
	require.NotEmpty(t, outcome.Problems)
	assert.Contains(t, outcome.Problems[0], "invalid JSON")
	assert.Equal(t, reply+"}", record[types.FieldSummary])
}

func TestParseSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		mode     types.PromptMode
		reply    string
		degraded bool
	}{
		{"resume missing skills", types.ModeResumeAnalysis, `{"summary":"x"}`, true},
		{"resume score out of range", types.ModeResumeAnalysis, `{"summary":"x","skills":[],"score":{"overall":140}}`, true},
		{"resume extra fields allowed", types.ModeResumeAnalysis, `{"summary":"x","skills":[],"hobbies":["Schach"]}`, false},
		{"job posting complete", types.ModeJobPostingAnalysis, `{"position":"Go Entwickler","required_skills":["Go"]}`, false},
		{"job posting wrong type", types.ModeJobPostingAnalysis, `{"position":"Go Entwickler","required_skills":"Go"}`, true},
		{"match complete", types.ModeMatchAnalysis, `{"overall_match_score":72,"matching_skills":["Go"],"missing_skills":[]}`, false},
		{"match missing score", types.ModeMatchAnalysis, `{"matching_skills":["Go"],"missing_skills":[]}`, true},
		{"free text mode has no schema", types.ModeCoverLetter, `{"anything":1}`, false},
	}

	p := NewResponseParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, outcome := p.ParseDetailed(tt.reply, tt.mode)

			assert.Equal(t, TierJSON, outcome.Tier)
			assert.Equal(t, tt.degraded, outcome.Degraded)
			assert.Equal(t, tt.degraded, len(outcome.Problems) > 0)
			assert.False(t, record.HasError(), "schema problems never replace the decoded record")
		})
	}
}

func TestParseJSONArrayFallsBack(t *testing.T) {
	p := NewResponseParser(nil)

	// Looks like an object at both ends but is not one
	record, outcome := p.ParseDetailed(`{"a":1}, {"b":2}`, types.ModeResumeAnalysis)

	assert.Equal(t, TierSections, outcome.Tier)
	assert.Equal(t, `{"a":1}, {"b":2}`, record[types.FieldSummary])
}
