package ai

import (
	"strings"
	"sync"

	"resumelens/internal/config"
	"resumelens/internal/types"
)

// Template placeholders
const (
	PlaceholderResume   = "{resume_text}"
	PlaceholderJob      = "{job_posting}"
	PlaceholderStyle    = "{style}"
	PlaceholderEmphasis = "{emphasis}"
)

// Cover letter defaults
const (
	DefaultCoverLetterStyle    = "Formell"
	DefaultCoverLetterEmphasis = "Ausgewogene Darstellung"
)

// CoverLetterStyles are the styles offered to users
var CoverLetterStyles = []string{"Formell", "Modern", "Kreativ", "Direkt"}

// CoverLetterEmphases are the suggested emphasis options
var CoverLetterEmphases = []string{
	"Technische Fähigkeiten",
	"Soft Skills",
	"Projekterfahrung",
	"Teamarbeit",
	"Führungsqualitäten",
}

const (
	systemAnalyst = "Du bist ein erfahrener deutscher Bewerbungsexperte, der Lebensläufe und Stellenanzeigen " +
		"präzise analysiert. Antworte ausschließlich mit gültigem JSON ohne weitere Erklärungen."
	systemCoverLetter = "Du bist ein erfahrener deutscher Bewerbungsexperte, der perfekte Anschreiben erstellt."
	systemResume      = "Du bist ein erfahrener deutscher Bewerbungsexperte, der perfekte Lebensläufe erstellt."
)

// DefaultSystemPrompts holds the built-in system instructions per mode
var DefaultSystemPrompts = map[types.PromptMode]string{
	types.ModeResumeAnalysis:     systemAnalyst,
	types.ModeJobPostingAnalysis: systemAnalyst,
	types.ModeMatchAnalysis:      systemAnalyst,
	types.ModeCoverLetter:        systemCoverLetter,
	types.ModeResumeTailoring:    systemResume,
}

// DefaultUserPrompts holds the built-in user templates per mode
var DefaultUserPrompts = map[types.PromptMode]string{
	types.ModeResumeAnalysis: `Analysiere den folgenden Lebenslauf und gib eine detaillierte Struktur zurück:

{resume_text}

Liefere die Analyse im folgenden JSON-Format:
{
    "contact_info": {...},
    "summary": "...",
    "skills": [...],
    "experience": [...],
    "education": [...],
    "languages": [...],
    "certifications": [...],
    "score": {
        "overall": 0-100,
        "completeness": 0-100,
        "relevance": 0-100,
        "formatting": 0-100
    },
    "improvement_suggestions": [...]
}`,

	types.ModeJobPostingAnalysis: `Analysiere diese Stellenanzeige und extrahiere die wichtigsten Informationen:

{job_posting}

Gib das Ergebnis als JSON mit folgenden Feldern zurück:
- position: Die ausgeschriebene Position
- company: Der Name des Unternehmens
- required_skills: Eine Liste der erforderlichen Fähigkeiten
- nice_to_have: Eine Liste der optionalen Fähigkeiten
- experience_level: Das geforderte Erfahrungsniveau
- education: Die geforderte Ausbildung
- key_responsibilities: Die Hauptaufgaben`,

	types.ModeMatchAnalysis: `Analysiere die Übereinstimmung zwischen diesem Lebenslauf und dieser Stellenanzeige:

LEBENSLAUF:
{resume_text}

STELLENANZEIGE:
{job_posting}

Gib das Ergebnis als JSON mit folgenden Feldern zurück:
- overall_match_score: Prozentualer Gesamtwert der Übereinstimmung (0-100)
- matching_skills: Liste der übereinstimmenden Fähigkeiten
- missing_skills: Liste der fehlenden, aber geforderten Fähigkeiten
- matching_experience: Wie gut die Erfahrung übereinstimmt (0-100)
- recommendations: Empfehlungen zur Verbesserung des Lebenslaufs für diese Position`,

	types.ModeCoverLetter: `Erstelle ein überzeugendes Anschreiben basierend auf diesem Lebenslauf und dieser Stellenanzeige:

LEBENSLAUF:
{resume_text}

STELLENANZEIGE:
{job_posting}

STIL: {style}
SCHWERPUNKTE: {emphasis}

Das Anschreiben sollte professionell sein und die Übereinstimmung zwischen den Qualifikationen
des Bewerbers und den Anforderungen der Stelle hervorheben. Verwende keine Platzhalter wie [Name]
oder [Unternehmen], sondern extrahiere diese Informationen aus den bereitgestellten Daten.`,

	types.ModeResumeTailoring: `Verbessere den folgenden Lebenslauf für die angegebene Stellenanzeige:

LEBENSLAUF:
{resume_text}

STELLENANZEIGE:
{job_posting}

Optimiere den Lebenslauf, indem du:
1. Die Qualifikationen und Erfahrungen an die Stellenanzeige anpasst
2. Messbare Erfolge und Ergebnisse hervorhebst
3. Relevante Schlüsselwörter einbaust
4. Die Formatierung und Struktur verbesserst`,
}

// DefaultJobMatchSuffix is appended to the resume analysis prompt when a job
// posting is supplied.
const DefaultJobMatchSuffix = `Berücksichtige bei der Analyse auch diese Stellenanzeige und bewerte die Übereinstimmung:

{job_posting}

Füge auch einen "job_match" Abschnitt zur JSON-Ausgabe hinzu, der die prozentuale Übereinstimmung
und spezifische Übereinstimmungen bei Kenntnissen und Erfahrungen enthält.`

// Prompt is a fully rendered request for the model
type Prompt struct {
	Mode   types.PromptMode
	System string
	User   string
}

// Composer renders prompts from built-in or configured templates. Rendering
// is pure string substitution and never fails.
type Composer struct {
	mu      sync.RWMutex
	prompts config.PromptConfig
}

// NewComposer creates a composer using the given overrides
func NewComposer(prompts config.PromptConfig) *Composer {
	return &Composer{prompts: prompts}
}

// SetTemplates swaps all template overrides at once
func (c *Composer) SetTemplates(prompts config.PromptConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = prompts
}

// Templates returns the current overrides
func (c *Composer) Templates() config.PromptConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prompts
}

// Compose renders the prompt for pc.Mode. Unknown modes fall back to resume analysis.
func (c *Composer) Compose(pc types.PromptContext) Prompt {
	switch pc.Mode {
	case types.ModeJobPostingAnalysis:
		return c.JobPostingAnalysis(pc.JobPosting)
	case types.ModeMatchAnalysis:
		return c.MatchAnalysis(pc.ResumeText, pc.JobPosting)
	case types.ModeCoverLetter:
		return c.CoverLetter(pc.ResumeText, pc.JobPosting, pc.Style, pc.Emphasis)
	case types.ModeResumeTailoring:
		return c.ResumeTailoring(pc.ResumeText, pc.JobPosting)
	default:
		return c.ResumeAnalysis(pc.ResumeText, pc.JobPosting)
	}
}

// ResumeAnalysis asks for the structured resume record, plus a job_match
// section when jobPosting is not blank.
func (c *Composer) ResumeAnalysis(resume, jobPosting string) Prompt {
	prompts := c.Templates()
	system, user := resolveTemplates(&prompts, types.ModeResumeAnalysis)
	rendered := render(user, resume, jobPosting, "", "")

	if strings.TrimSpace(jobPosting) != "" {
		suffix := prompts.UserPrompts.ResumeAnalysisJobMatch.Resolve(DefaultJobMatchSuffix)
		rendered += "\n\n" + render(suffix, resume, jobPosting, "", "")
	}

	return Prompt{Mode: types.ModeResumeAnalysis, System: system, User: rendered}
}

// JobPostingAnalysis asks for the structured job posting record
func (c *Composer) JobPostingAnalysis(jobPosting string) Prompt {
	system, user := c.templates(types.ModeJobPostingAnalysis)
	return Prompt{
		Mode:   types.ModeJobPostingAnalysis,
		System: system,
		User:   render(user, "", jobPosting, "", ""),
	}
}

// MatchAnalysis asks for the resume/job posting match record
func (c *Composer) MatchAnalysis(resume, jobPosting string) Prompt {
	system, user := c.templates(types.ModeMatchAnalysis)
	return Prompt{
		Mode:   types.ModeMatchAnalysis,
		System: system,
		User:   render(user, resume, jobPosting, "", ""),
	}
}

// CoverLetter asks for a free-text cover letter. Blank style and emphasis
// become "Formell" and "Ausgewogene Darstellung".
func (c *Composer) CoverLetter(resume, jobPosting, style, emphasis string) Prompt {
	if strings.TrimSpace(style) == "" {
		style = DefaultCoverLetterStyle
	}
	if strings.TrimSpace(emphasis) == "" {
		emphasis = DefaultCoverLetterEmphasis
	}

	system, user := c.templates(types.ModeCoverLetter)
	return Prompt{
		Mode:   types.ModeCoverLetter,
		System: system,
		User:   render(user, resume, jobPosting, style, emphasis),
	}
}

// ResumeTailoring asks for an improved resume aligned with jobPosting
func (c *Composer) ResumeTailoring(resume, jobPosting string) Prompt {
	system, user := c.templates(types.ModeResumeTailoring)
	return Prompt{
		Mode:   types.ModeResumeTailoring,
		System: system,
		User:   render(user, resume, jobPosting, "", ""),
	}
}

// JoinEmphasis formats a list of emphasis options the way the prompt expects
func JoinEmphasis(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ", ")
}

// templates resolves the system and user template for mode: file content,
// then config text, then the built-in default.
func (c *Composer) templates(mode types.PromptMode) (string, string) {
	prompts := c.Templates()
	return resolveTemplates(&prompts, mode)
}

func resolveTemplates(prompts *config.PromptConfig, mode types.PromptMode) (string, string) {
	system := templateFor(&prompts.SystemPrompts, mode).Resolve(DefaultSystemPrompts[mode])
	user := templateFor(&prompts.UserPrompts, mode).Resolve(DefaultUserPrompts[mode])
	return system, user
}

func templateFor(set *config.PromptSet, mode types.PromptMode) config.PromptTemplate {
	switch mode {
	case types.ModeJobPostingAnalysis:
		return set.JobPostingAnalysis
	case types.ModeMatchAnalysis:
		return set.MatchAnalysis
	case types.ModeCoverLetter:
		return set.CoverLetter
	case types.ModeResumeTailoring:
		return set.ResumeTailoring
	default:
		return set.ResumeAnalysis
	}
}

// render substitutes all placeholders in one pass, so placeholder-like text
// inside the inputs is never expanded again.
func render(template, resume, jobPosting, style, emphasis string) string {
	return strings.NewReplacer(
		PlaceholderResume, resume,
		PlaceholderJob, jobPosting,
		PlaceholderStyle, style,
		PlaceholderEmphasis, emphasis,
	).Replace(template)
}
