package ai

import "resumelens/internal/types"

const percentSchema = `{"type": "number", "minimum": 0, "maximum": 100}`

const stringListSchema = `{"type": "array", "items": {"type": "string"}}`

// recordSchemas describe the minimum shape expected from structured replies.
// Extra fields are allowed.
var recordSchemas = map[types.PromptMode]string{
	types.ModeResumeAnalysis: `{
  "type": "object",
  "required": ["summary", "skills"],
  "properties": {
    "contact_info": {"type": "object"},
    "summary": {"type": "string"},
    "skills": ` + stringListSchema + `,
    "experience": {"type": "array"},
    "education": {"type": "array"},
    "languages": {"type": "array"},
    "certifications": {"type": "array"},
    "score": {
      "type": "object",
      "properties": {
        "overall": ` + percentSchema + `,
        "completeness": ` + percentSchema + `,
        "relevance": ` + percentSchema + `,
        "formatting": ` + percentSchema + `
      }
    },
    "improvement_suggestions": ` + stringListSchema + `,
    "job_match": {"type": "object"}
  }
}`,

	types.ModeJobPostingAnalysis: `{
  "type": "object",
  "required": ["position", "required_skills"],
  "properties": {
    "position": {"type": "string"},
    "company": {"type": "string"},
    "required_skills": ` + stringListSchema + `,
    "nice_to_have": ` + stringListSchema + `,
    "experience_level": {"type": "string"},
    "education": {"type": ["string", "array"]},
    "key_responsibilities": {"type": "array"}
  }
}`,

	types.ModeMatchAnalysis: `{
  "type": "object",
  "required": ["overall_match_score", "matching_skills", "missing_skills"],
  "properties": {
    "overall_match_score": ` + percentSchema + `,
    "matching_skills": ` + stringListSchema + `,
    "missing_skills": ` + stringListSchema + `,
    "matching_experience": ` + percentSchema + `,
    "recommendations": {"type": ["array", "string"]}
  }
}`,
}
