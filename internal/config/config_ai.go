package config

import "fmt"

// Operation names one model-backed use case
type Operation string

const (
	OperationAnalyze     Operation = "analyze"
	OperationJobPosting  Operation = "jobPosting"
	OperationMatch       Operation = "match"
	OperationCoverLetter Operation = "coverLetter"
	OperationTailor      Operation = "tailor"
)

// Operations lists every operation in a stable order
var Operations = []Operation{
	OperationAnalyze,
	OperationJobPosting,
	OperationMatch,
	OperationCoverLetter,
	OperationTailor,
}

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.MaxTokens == nil {
		maxTokens := c.AI.MaxTokens
		opCfg.MaxTokens = &maxTokens
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		useSystemPrompts := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystemPrompts
	}
}

// OperationConfig returns the AI configuration for op with fallback to the global config
func (c *Config) OperationConfig(op Operation) (OperationAIConfig, error) {
	var config OperationAIConfig
	switch op {
	case OperationAnalyze:
		config = c.AI.Analyze
	case OperationJobPosting:
		config = c.AI.JobPosting
	case OperationMatch:
		config = c.AI.Match
	case OperationCoverLetter:
		config = c.AI.CoverLetter
	case OperationTailor:
		config = c.AI.Tailor
	default:
		return OperationAIConfig{}, fmt.Errorf("unknown AI operation: %s", op)
	}

	c.applyOperationDefaults(&config)
	return config, nil
}

// GetAnalyzeConfig returns the AI configuration for resume analysis
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config, _ := c.OperationConfig(OperationAnalyze)
	return config
}

// GetJobPostingConfig returns the AI configuration for job posting analysis
func (c *Config) GetJobPostingConfig() OperationAIConfig {
	config, _ := c.OperationConfig(OperationJobPosting)
	return config
}

// GetMatchConfig returns the AI configuration for match analysis
func (c *Config) GetMatchConfig() OperationAIConfig {
	config, _ := c.OperationConfig(OperationMatch)
	return config
}

// GetCoverLetterConfig returns the AI configuration for cover letters
func (c *Config) GetCoverLetterConfig() OperationAIConfig {
	config, _ := c.OperationConfig(OperationCoverLetter)
	return config
}

// GetTailorConfig returns the AI configuration for resume tailoring
func (c *Config) GetTailorConfig() OperationAIConfig {
	config, _ := c.OperationConfig(OperationTailor)
	return config
}
