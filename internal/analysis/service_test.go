package analysis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"resumelens/internal/ai"
	"resumelens/internal/cache"
	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = appErrors.NewLogger(slog.LevelError)

// fakeGateway replies per operation and records every call
type fakeGateway struct {
	mu      sync.Mutex
	replies map[config.Operation]string
	err     error
	calls   []ai.GenerateOptions
	prompts []string
}

func (f *fakeGateway) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if opts.OnUsage != nil {
		opts.OnUsage(&ai.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5})
	}
	return f.replies[opts.Operation], nil
}

func (f *fakeGateway) Model(op config.Operation) string {
	return "fake-" + string(op)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(t *testing.T, gw *fakeGateway, withCache bool) *Service {
	t.Helper()
	opts := Options{Gateway: gw, Logger: testLogger}
	if withCache {
		opts.Cache = cache.New(cache.NewMemoryStore(), false, testLogger)
	}
	svc, err := New(opts)
	require.NoError(t, err)
	return svc
}

const resumeJSON = `{"summary": "Backend engineer", "skills": ["Go", "SQL"]}`

func TestNewRequiresGateway(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidConfig))
}

func TestAnalyzeResume(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
	svc := newTestService(t, gw, false)

	record, err := svc.AnalyzeResume(context.Background(), AnalyzeRequest{ResumeText: "Jane Doe, Go developer"})
	require.NoError(t, err)
	assert.Equal(t, "Backend engineer", record[types.FieldSummary])
	assert.Equal(t, []string{"Go", "SQL"}, record.Strings(types.FieldSkills))

	require.Len(t, gw.calls, 1)
	assert.Equal(t, config.OperationAnalyze, gw.calls[0].Operation)
	assert.True(t, gw.calls[0].JSON)
	assert.NotEmpty(t, gw.calls[0].SystemPrompt)
	assert.Contains(t, gw.prompts[0], "Jane Doe, Go developer")
}

func TestAnalyzeResumeWithJobPosting(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
	svc := newTestService(t, gw, false)

	_, err := svc.AnalyzeResume(context.Background(), AnalyzeRequest{
		ResumeText: "resume body",
		JobPosting: "Senior Go Engineer",
	})
	require.NoError(t, err)
	assert.Contains(t, gw.prompts[0], "job_match")
	assert.Contains(t, gw.prompts[0], "Senior Go Engineer")
}

func TestAnalyzeResumeValidation(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw, false)

	_, err := svc.AnalyzeResume(context.Background(), AnalyzeRequest{ResumeText: "  \n"})
	require.Error(t, err)
	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypeValidation, appErr.Type)
	assert.Zero(t, gw.callCount())
}

func TestAnalyzeResumeDegradedReply(t *testing.T) {
	reply := "Erfahrener Entwickler.\n\nFähigkeiten: Go, Kubernetes"
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: reply}}
	svc := newTestService(t, gw, false)

	record, err := svc.AnalyzeResume(context.Background(), AnalyzeRequest{ResumeText: "text"})
	require.NoError(t, err)
	assert.Equal(t, "Erfahrener Entwickler.", record[types.FieldSummary])
	assert.Equal(t, []string{"Go", "Kubernetes"}, record.Strings(types.FieldSkills))
}

func TestAnalyzeResumeCaching(t *testing.T) {
	tests := []struct {
		name      string
		req       AnalyzeRequest
		wantCalls int
	}{
		{"explicit key", AnalyzeRequest{ResumeText: "same", CacheKey: "candidate-1"}, 1},
		{"derived key", AnalyzeRequest{ResumeText: "same", DeriveKey: true}, 1},
		{"no key bypasses cache", AnalyzeRequest{ResumeText: "same"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
			svc := newTestService(t, gw, true)

			first, err := svc.AnalyzeResume(context.Background(), tt.req)
			require.NoError(t, err)
			second, err := svc.AnalyzeResume(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, tt.wantCalls, gw.callCount())
		})
	}
}

func TestEmptyReplyIsNotCached(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: "   "}}
	svc := newTestService(t, gw, true)
	req := AnalyzeRequest{ResumeText: "text", CacheKey: "k"}

	record, err := svc.AnalyzeResume(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ai.EmptyReplyMessage, record.ErrorMessage())

	_, err = svc.AnalyzeResume(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount())
}

func TestModelFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connection reset")}
	svc := newTestService(t, gw, true)
	req := AnalyzeRequest{ResumeText: "text", CacheKey: "k"}

	_, err := svc.AnalyzeResume(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeAIServiceFailed))

	_, err = svc.AnalyzeResume(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 2, gw.callCount(), "failures must not be cached")
	assert.Zero(t, svc.CacheStats(context.Background()).Stores)
}

func TestAnalyzeJobPostingAndMatch(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{
		config.OperationJobPosting: `{"position": "Go Engineer", "required_skills": ["Go"]}`,
		config.OperationMatch:      `{"overall_match_score": 80, "matching_skills": ["Go"], "missing_skills": []}`,
	}}
	svc := newTestService(t, gw, true)
	ctx := context.Background()

	job, err := svc.AnalyzeJobPosting(ctx, "We hire a Go Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", job["position"])

	match, err := svc.AnalyzeMatch(ctx, "resume", "job")
	require.NoError(t, err)
	assert.EqualValues(t, 80, match[types.FieldOverallMatchScore])

	_, err = svc.AnalyzeMatch(ctx, "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount())

	_, err = svc.AnalyzeJobPosting(ctx, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidRequest))
	_, err = svc.AnalyzeMatch(ctx, "resume", " ")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidRequest))
}

func TestGeneration(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{
		config.OperationCoverLetter: "\nSehr geehrte Damen und Herren,\n",
		config.OperationTailor:      "Tailored resume",
	}}
	svc := newTestService(t, gw, false)
	ctx := context.Background()

	letter, err := svc.GenerateCoverLetter(ctx, "resume", "job", "", "")
	require.NoError(t, err)
	assert.True(t, letter.Success)
	assert.Equal(t, "Sehr geehrte Damen und Herren,", letter.Content)
	assert.Equal(t, "fake-coverLetter", letter.Model)
	assert.False(t, gw.calls[0].JSON)
	assert.Contains(t, gw.prompts[0], ai.DefaultCoverLetterStyle)

	tailored, err := svc.TailorResume(ctx, "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, "Tailored resume", tailored.Content)
	assert.Equal(t, string(config.OperationTailor), tailored.Operation)

	failed, err := svc.TailorResume(ctx, "", "job")
	require.Error(t, err)
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.Error)
}

func TestGenerationFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("quota exceeded")}
	svc := newTestService(t, gw, false)

	result, err := svc.GenerateCoverLetter(context.Background(), "resume", "job", "Modern", "")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Content)
	assert.NotEmpty(t, result.Error)
}

func TestAnalyzeDocument(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resumePath, []byte("Jane Doe\n\nGo, SQL"), 0o600))

	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
	svc := newTestService(t, gw, true)
	ctx := context.Background()

	result, err := svc.AnalyzeDocument(ctx, resumePath, "")
	require.NoError(t, err)
	assert.True(t, result.Extraction.Success)
	assert.Equal(t, "Backend engineer", result.Analysis[types.FieldSummary])

	_, err = svc.AnalyzeDocument(ctx, resumePath, "")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.callCount(), "same content should hit the cache")

	unsupported, err := svc.AnalyzeDocument(ctx, filepath.Join(dir, "resume.odt"), "")
	require.NoError(t, err)
	assert.False(t, unsupported.Extraction.Success)
	assert.Equal(t, "Nicht unterstütztes Dateiformat: .odt", unsupported.Extraction.Error)
	assert.Nil(t, unsupported.Analysis)
	assert.Equal(t, 1, gw.callCount())
}

func TestAnalyzeUpload(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
	svc := newTestService(t, gw, true)

	result, err := svc.AnalyzeUpload(context.Background(), []byte("Jane Doe\n\nGo, SQL"), "cv.txt", "")
	require.NoError(t, err)
	assert.True(t, result.Extraction.Success)
	assert.Equal(t, "txt", result.Extraction.Format)
	assert.NotNil(t, result.Analysis)

	unsupported, err := svc.AnalyzeUpload(context.Background(), []byte("Jane Doe"), "cv.odt", "")
	require.NoError(t, err)
	assert.False(t, unsupported.Extraction.Success)
	assert.Nil(t, unsupported.Analysis)
	assert.Equal(t, 1, gw.callCount())

	blank, err := svc.AnalyzeUpload(context.Background(), []byte(" \n\t "), "blank.txt", "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeEmptyDocument))
	assert.True(t, blank.Extraction.Success)
	assert.Zero(t, blank.Extraction.WordCount)
	assert.Nil(t, blank.Analysis)
	assert.Equal(t, 1, gw.callCount(), "an empty document never reaches the model")
}

func TestDeriveCacheKey(t *testing.T) {
	a := DeriveCacheKey(types.ModeResumeAnalysis, "resume", "job")
	assert.Equal(t, a, DeriveCacheKey(types.ModeResumeAnalysis, "resume", "job"))
	assert.NotEqual(t, a, DeriveCacheKey(types.ModeMatchAnalysis, "resume", "job"))
	assert.NotEqual(t, a, DeriveCacheKey(types.ModeResumeAnalysis, "resumejob", ""))
	assert.True(t, strings.HasPrefix(a, string(types.ModeResumeAnalysis)+":"))
}

func TestInvalidateCache(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationAnalyze: resumeJSON}}
	svc := newTestService(t, gw, true)
	ctx := context.Background()
	req := AnalyzeRequest{ResumeText: "text", CacheKey: "k"}

	_, err := svc.AnalyzeResume(ctx, req)
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateCache(ctx, "k"))
	_, err = svc.AnalyzeResume(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount())

	require.NoError(t, svc.InvalidateCache(ctx, ""))
	assert.Equal(t, 0, svc.CacheStats(ctx).Entries)
}

func TestUsageHook(t *testing.T) {
	gw := &fakeGateway{replies: map[config.Operation]string{config.OperationTailor: "done"}}
	var got []config.Operation
	var total int64
	svc, err := New(Options{
		Gateway: gw,
		OnUsage: func(op config.Operation, usage *ai.TokenUsage) {
			got = append(got, op)
			total += usage.TotalTokens
		},
	})
	require.NoError(t, err)

	_, err = svc.TailorResume(context.Background(), "resume", "job")
	require.NoError(t, err)
	assert.Equal(t, []config.Operation{config.OperationTailor}, got)
	assert.EqualValues(t, 5, total)
}
