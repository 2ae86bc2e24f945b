package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts PromptSet `mapstructure:"systemPrompts"`
	UserPrompts   PromptSet `mapstructure:"userPrompts"`
}

// PromptSet holds one template override per prompt mode
type PromptSet struct {
	ResumeAnalysis         PromptTemplate `mapstructure:"resumeAnalysis"`
	ResumeAnalysisJobMatch PromptTemplate `mapstructure:"resumeAnalysisJobMatch"`
	JobPostingAnalysis     PromptTemplate `mapstructure:"jobPostingAnalysis"`
	MatchAnalysis          PromptTemplate `mapstructure:"matchAnalysis"`
	CoverLetter            PromptTemplate `mapstructure:"coverLetter"`
	ResumeTailoring        PromptTemplate `mapstructure:"resumeTailoring"`
}

// PromptTemplate is an override given inline or as a file path. FileContent is
// filled when the configuration is loaded and again on hot reload.
type PromptTemplate struct {
	Text        string `mapstructure:"text"`
	File        string `mapstructure:"file"`
	FileContent string `mapstructure:"-"`
}

// Resolve selects the template in priority order: file content, inline text,
// then the built-in default.
func (p PromptTemplate) Resolve(fromDefault string) string {
	if p.FileContent != "" {
		return p.FileContent
	}
	if p.Text != "" {
		return p.Text
	}
	return fromDefault
}

// promptEntry names one template slot for loading and validation
type promptEntry struct {
	kind     string // "system" or "user"
	mode     string
	template *PromptTemplate
}

func (s *PromptSet) entries(kind string) []promptEntry {
	return []promptEntry{
		{kind, "resumeAnalysis", &s.ResumeAnalysis},
		{kind, "resumeAnalysisJobMatch", &s.ResumeAnalysisJobMatch},
		{kind, "jobPostingAnalysis", &s.JobPostingAnalysis},
		{kind, "matchAnalysis", &s.MatchAnalysis},
		{kind, "coverLetter", &s.CoverLetter},
		{kind, "resumeTailoring", &s.ResumeTailoring},
	}
}

func (p *PromptConfig) entries() []promptEntry {
	return append(p.SystemPrompts.entries("system"), p.UserPrompts.entries("user")...)
}

// PromptFiles returns the absolute paths of every configured prompt file
func (p *PromptConfig) PromptFiles() []string {
	var files []string
	for _, entry := range p.entries() {
		if entry.template.File == "" {
			continue
		}
		if absPath, err := filepath.Abs(entry.template.File); err == nil {
			files = append(files, absPath)
		}
	}
	return files
}

// Reload re-reads every prompt file into a copy of p. The receiver is left
// untouched when any file fails to load.
func (p *PromptConfig) Reload() (PromptConfig, error) {
	reloaded := *p
	if err := reloaded.loadFiles(); err != nil {
		return PromptConfig{}, err
	}
	return reloaded, nil
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	if err := c.AI.CustomPrompts.loadFiles(); err != nil {
		return err
	}
	c.logPromptLoadingSummary()
	return nil
}

func (p *PromptConfig) loadFiles() error {
	for _, entry := range p.entries() {
		if entry.template.File == "" {
			continue
		}
		content, err := loadPromptFromFile(entry.template.File, entry.kind, entry.mode)
		if err != nil {
			return err
		}
		entry.template.FileContent = content
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, mode string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, mode, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, mode, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, mode, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, mode, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, mode, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, entry := range c.AI.CustomPrompts.entries() {
		filePath := entry.template.File
		if filePath == "" {
			continue
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", entry.kind, entry.mode, filePath))
			continue
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", entry.kind, entry.mode, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// logPromptLoadingSummary logs a summary of customized prompts
func (c *Config) logPromptLoadingSummary() {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	count := 0
	for _, entry := range c.AI.CustomPrompts.entries() {
		switch {
		case entry.template.FileContent != "":
			log.Printf("[CONFIG] %s %s prompt: loaded from file", entry.kind, entry.mode)
			count++
		case entry.template.Text != "":
			log.Printf("[CONFIG] %s %s prompt: set in config", entry.kind, entry.mode)
			count++
		}
	}

	if count == 0 {
		log.Println("[CONFIG] No custom prompts configured - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts: %d", count)
	}

	log.Println("[CONFIG] ==========================================")
}
