// Package analysis runs the resume pipeline: extraction, prompt composition,
// the model call, reply parsing and caching of structured records.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"resumelens/internal/ai"
	"resumelens/internal/cache"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/extract"
	"resumelens/internal/observability"
	"resumelens/internal/types"
)

// AnalyzeRequest is the input for a resume analysis.
type AnalyzeRequest struct {
	ResumeText string
	JobPosting string
	// CacheKey selects a cache entry. When empty and DeriveKey is set, the key
	// is a hash of the mode and inputs. With neither, the cache is bypassed.
	CacheKey  string
	DeriveKey bool
}

// DocumentAnalysis pairs an extraction with the analysis of its text.
// Analysis is nil when extraction failed.
type DocumentAnalysis struct {
	Extraction types.ExtractionResult `json:"extraction"`
	Analysis   types.AnalysisRecord   `json:"analysis,omitempty"`
}

// Options wires the collaborators of a Service. Only Gateway is required.
type Options struct {
	Gateway       ai.ModelGateway
	Composer      *ai.Composer
	Parser        *ai.ResponseParser
	Cache         *cache.AnalysisCache
	Extractor     *extract.Extractor
	Observability *observability.ObservabilityManager
	Logger        *errors.Logger
	// OnUsage receives token usage for every model call that reports it
	OnUsage func(op config.Operation, usage *ai.TokenUsage)
}

// modelNamer is implemented by gateways that know which model serves an operation
type modelNamer interface {
	Model(op config.Operation) string
}

// Service orchestrates analyses. It owns the analysis cache.
type Service struct {
	gateway   ai.ModelGateway
	composer  *ai.Composer
	parser    *ai.ResponseParser
	cache     *cache.AnalysisCache
	extractor *extract.Extractor
	obs       *observability.ObservabilityManager
	logger    *errors.Logger
	onUsage   func(op config.Operation, usage *ai.TokenUsage)
}

// New creates a Service. Missing optional collaborators get defaults: built-in
// prompts, a parser and an extractor with default limits. A nil cache disables caching.
func New(opts Options) (*Service, error) {
	if opts.Gateway == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "analysis service requires a model gateway", nil)
	}

	s := &Service{
		gateway:   opts.Gateway,
		composer:  opts.Composer,
		parser:    opts.Parser,
		cache:     opts.Cache,
		extractor: opts.Extractor,
		obs:       opts.Observability,
		logger:    opts.Logger,
		onUsage:   opts.OnUsage,
	}
	if s.composer == nil {
		s.composer = ai.NewComposer(config.PromptConfig{})
	}
	if s.parser == nil {
		s.parser = ai.NewResponseParser(opts.Logger)
	}
	if s.extractor == nil {
		s.extractor = extract.New(config.ExtractionConfig{}, opts.Logger)
	}
	if s.cache != nil && s.obs != nil {
		s.cache.SetRecorder(s.obs)
	}
	return s, nil
}

// Composer returns the prompt composer, for template hot reload
func (s *Service) Composer() *ai.Composer {
	return s.composer
}

// Extract extracts the document at path and records extraction metrics
func (s *Service) Extract(ctx context.Context, path string) types.ExtractionResult {
	result := s.extractor.Extract(path)
	s.obs.RecordExtraction(ctx, result.Format, result.Success, result.WordCount)
	return result
}

// ExtractBytes extracts an in-memory document named filename
func (s *Service) ExtractBytes(ctx context.Context, data []byte, filename string) types.ExtractionResult {
	result := s.extractor.ExtractBytes(data, filename)
	s.obs.RecordExtraction(ctx, result.Format, result.Success, result.WordCount)
	return result
}

// AnalyzeResume returns the structured analysis of a resume, optionally
// against a job posting. Model failures are returned as errors and never cached.
func (s *Service) AnalyzeResume(ctx context.Context, req AnalyzeRequest) (types.AnalysisRecord, error) {
	if strings.TrimSpace(req.ResumeText) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume text is required", nil)
	}

	key := req.CacheKey
	if key == "" && req.DeriveKey {
		key = DeriveCacheKey(types.ModeResumeAnalysis, req.ResumeText, req.JobPosting)
	}

	prompt := s.composer.ResumeAnalysis(req.ResumeText, req.JobPosting)
	return s.structured(ctx, config.OperationAnalyze, prompt, key)
}

// AnalyzeJobPosting returns the structured analysis of a job posting
func (s *Service) AnalyzeJobPosting(ctx context.Context, jobPosting string) (types.AnalysisRecord, error) {
	if strings.TrimSpace(jobPosting) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job posting text is required", nil)
	}

	key := DeriveCacheKey(types.ModeJobPostingAnalysis, "", jobPosting)
	return s.structured(ctx, config.OperationJobPosting, s.composer.JobPostingAnalysis(jobPosting), key)
}

// AnalyzeMatch scores how well a resume fits a job posting
func (s *Service) AnalyzeMatch(ctx context.Context, resume, jobPosting string) (types.AnalysisRecord, error) {
	if err := requireBoth(resume, jobPosting); err != nil {
		return nil, err
	}

	key := DeriveCacheKey(types.ModeMatchAnalysis, resume, jobPosting)
	return s.structured(ctx, config.OperationMatch, s.composer.MatchAnalysis(resume, jobPosting), key)
}

// GenerateCoverLetter writes a cover letter. Blank style and emphasis use the
// composer defaults.
func (s *Service) GenerateCoverLetter(ctx context.Context, resume, jobPosting, style, emphasis string) (types.GenerationResult, error) {
	if err := requireBoth(resume, jobPosting); err != nil {
		return types.GenerationResult{Operation: string(config.OperationCoverLetter), Error: err.Error()}, err
	}
	prompt := s.composer.CoverLetter(resume, jobPosting, style, emphasis)
	return s.freeText(ctx, config.OperationCoverLetter, prompt)
}

// TailorResume rewrites a resume for a job posting
func (s *Service) TailorResume(ctx context.Context, resume, jobPosting string) (types.GenerationResult, error) {
	if err := requireBoth(resume, jobPosting); err != nil {
		return types.GenerationResult{Operation: string(config.OperationTailor), Error: err.Error()}, err
	}
	prompt := s.composer.ResumeTailoring(resume, jobPosting)
	return s.freeText(ctx, config.OperationTailor, prompt)
}

// AnalyzeDocument extracts the document at path and analyzes its text. The
// cache key is derived from the extracted content. A failed extraction is
// returned as data with a nil Analysis.
func (s *Service) AnalyzeDocument(ctx context.Context, path, jobPosting string) (DocumentAnalysis, error) {
	return s.analyzeExtraction(ctx, s.Extract(ctx, path), jobPosting)
}

// AnalyzeUpload is AnalyzeDocument for an in-memory document named filename
func (s *Service) AnalyzeUpload(ctx context.Context, data []byte, filename, jobPosting string) (DocumentAnalysis, error) {
	return s.analyzeExtraction(ctx, s.ExtractBytes(ctx, data, filename), jobPosting)
}

func (s *Service) analyzeExtraction(ctx context.Context, extraction types.ExtractionResult, jobPosting string) (DocumentAnalysis, error) {
	result := DocumentAnalysis{Extraction: extraction}
	if !result.Extraction.Success {
		return result, nil
	}
	if result.Extraction.WordCount == 0 {
		return result, errors.NewIOError(errors.ErrCodeEmptyDocument,
			"Das Dokument enthält keinen extrahierbaren Text", nil).
			WithContext("format", result.Extraction.Format)
	}

	record, err := s.AnalyzeResume(ctx, AnalyzeRequest{
		ResumeText: result.Extraction.Text,
		JobPosting: jobPosting,
		DeriveKey:  true,
	})
	if err != nil {
		return result, err
	}
	result.Analysis = record
	return result, nil
}

// CacheStats returns a snapshot of cache activity
func (s *Service) CacheStats(ctx context.Context) cache.Stats {
	return s.cache.Stats(ctx)
}

// InvalidateCache removes one cached record, or all of them when key is empty
func (s *Service) InvalidateCache(ctx context.Context, key string) error {
	if key == "" {
		return s.cache.Clear(ctx)
	}
	return s.cache.Delete(ctx, key)
}

// Close releases the cache
func (s *Service) Close() error {
	return s.cache.Close()
}

// DeriveCacheKey hashes the mode and inputs into a hex cache key
func DeriveCacheKey(mode types.PromptMode, resume, jobPosting string) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(resume))
	h.Write([]byte{0})
	h.Write([]byte(jobPosting))
	return string(mode) + ":" + hex.EncodeToString(h.Sum(nil))
}

func requireBoth(resume, jobPosting string) error {
	if strings.TrimSpace(resume) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume text is required", nil)
	}
	if strings.TrimSpace(jobPosting) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job posting text is required", nil)
	}
	return nil
}

// structured runs a JSON mode through the cache
func (s *Service) structured(ctx context.Context, op config.Operation, prompt ai.Prompt, key string) (types.AnalysisRecord, error) {
	mode := string(prompt.Mode)

	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (types.AnalysisRecord, error) {
		reply, err := s.generate(ctx, op, prompt, true)
		if err != nil {
			s.obs.RecordAnalysis(ctx, mode, ai.TierNone, false)
			return nil, err
		}

		record, outcome := s.parser.ParseDetailed(reply, prompt.Mode)
		if outcome.Degraded {
			s.obs.RecordParseDegraded(ctx, mode, outcome.Tier)
		}
		s.obs.RecordAnalysis(ctx, mode, outcome.Tier, !record.HasError())
		s.debug("Analysis completed",
			"mode", mode,
			"tier", outcome.Tier,
			"degraded", outcome.Degraded,
			"fields", len(record))
		return record, nil
	})
}

// freeText runs a generation mode. Replies are returned trimmed and never cached.
func (s *Service) freeText(ctx context.Context, op config.Operation, prompt ai.Prompt) (types.GenerationResult, error) {
	result := types.GenerationResult{Operation: string(op), Model: s.modelFor(op)}

	reply, err := s.generate(ctx, op, prompt, false)
	s.obs.RecordGeneration(ctx, string(op), err == nil)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Content = strings.TrimSpace(reply)
	result.Success = true
	return result, nil
}

// generate sends prompt to the gateway inside a tracked AI operation
func (s *Service) generate(ctx context.Context, op config.Operation, prompt ai.Prompt, jsonReply bool) (string, error) {
	var reply string

	err := s.obs.TrackAIOperation(ctx, string(op), func(ctx context.Context) *observability.AIOperationResult {
		var usage *observability.TokenUsage
		var err error
		reply, err = s.gateway.Generate(ctx, prompt.User, ai.GenerateOptions{
			Operation:    op,
			SystemPrompt: prompt.System,
			JSON:         jsonReply,
			OnUsage: func(u *ai.TokenUsage) {
				if s.onUsage != nil {
					s.onUsage(op, u)
				}
				usage = &observability.TokenUsage{
					InputTokens:  u.InputTokens,
					OutputTokens: u.OutputTokens,
					TotalTokens:  u.TotalTokens,
				}
			},
		})
		return &observability.AIOperationResult{Error: err, TokenUsage: usage}
	})
	if err != nil {
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.NewAIError(errors.ErrCodeAIServiceFailed, "Model request failed", err)
		}
		if s.logger != nil {
			s.logger.LogError(err, "Model request failed", "operation", string(op))
		}
		return "", err
	}
	return reply, nil
}

func (s *Service) modelFor(op config.Operation) string {
	if namer, ok := s.gateway.(modelNamer); ok {
		return namer.Model(op)
	}
	return ""
}

func (s *Service) debug(message string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(message, args...)
	}
}
