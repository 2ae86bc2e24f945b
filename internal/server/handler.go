package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"resumelens/internal/ai"
	"resumelens/internal/analysis"
	"resumelens/internal/config"
	appErrors "resumelens/internal/errors"
	"resumelens/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// handleExtract extracts text from an uploaded document (multipart field "file")
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.readUpload(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	result := s.analysis.ExtractBytes(r.Context(), data, filename)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("document.format", result.Format),
		attribute.Bool("document.extracted", result.Success),
		attribute.Int("document.word_count", result.WordCount),
	)
	s.writeJSON(w, r, extractionStatus(result), result)
}

// handleAnalyze analyzes resume text, optionally against a job posting
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	setInputAttributes(r, string(config.OperationAnalyze), req.ResumeText, req.JobPosting)

	record, err := s.analysis.AnalyzeResume(r.Context(), analysis.AnalyzeRequest{
		ResumeText: req.ResumeText,
		JobPosting: req.JobPosting,
		CacheKey:   req.CacheKey,
		DeriveKey:  req.CacheKey == "",
	})
	s.writeRecord(w, r, record, err)
}

// handleAnalyzeDocument extracts an uploaded resume and analyzes its text.
// An optional "job_posting" form field enables job matching.
func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.readUpload(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	jobPosting := r.FormValue("job_posting")

	result, err := s.analysis.AnalyzeUpload(r.Context(), data, filename, jobPosting)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, r, extractionStatus(result.Extraction), result)
}

func (s *Server) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	var req JobPostingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	setInputAttributes(r, string(config.OperationJobPosting), "", req.JobPosting)

	record, err := s.analysis.AnalyzeJobPosting(r.Context(), req.JobPosting)
	s.writeRecord(w, r, record, err)
}

func (s *Server) handleAnalyzeMatch(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	setInputAttributes(r, string(config.OperationMatch), req.ResumeText, req.JobPosting)

	record, err := s.analysis.AnalyzeMatch(r.Context(), req.ResumeText, req.JobPosting)
	s.writeRecord(w, r, record, err)
}

func (s *Server) handleCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req CoverLetterRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	setInputAttributes(r, string(config.OperationCoverLetter), req.ResumeText, req.JobPosting)

	result, err := s.analysis.GenerateCoverLetter(r.Context(), req.ResumeText, req.JobPosting,
		req.Style, ai.JoinEmphasis(req.Emphasis))
	s.writeGeneration(w, r, result, err)
}

func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	setInputAttributes(r, string(config.OperationTailor), req.ResumeText, req.JobPosting)

	result, err := s.analysis.TailorResume(r.Context(), req.ResumeText, req.JobPosting)
	s.writeGeneration(w, r, result, err)
}

// handleInvalidateCache drops the record under ?key=, or every record when key is absent
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := s.analysis.InvalidateCache(r.Context(), key); err != nil {
		s.writeAppError(w, r, appErrors.NewIOError(appErrors.ErrCodeCacheUnavailable, "Failed to invalidate cache", err))
		return
	}
	s.requestLogger(r).Info("Cache invalidated", "key", key, "all", key == "")
	w.WriteHeader(http.StatusNoContent)
}

// decodeAndValidate parses the JSON body into req and runs struct validation,
// writing the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := parseJSONRequest(r, req); err != nil {
		s.writeAppError(w, r, err)
		return false
	}
	if err := s.validateRequest(req); err != nil {
		s.writeAppError(w, r, err)
		return false
	}
	return true
}

// readUpload returns the bytes and name of the multipart "file" field
func (s *Server) readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			return nil, "", requestTooLarge(err)
		}
		return nil, "", appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"Expected a multipart/form-data body", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"file is required", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		if tooLarge(err) {
			return nil, "", requestTooLarge(err)
		}
		return nil, "", appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Failed to read upload", err)
	}
	return data, header.Filename, nil
}

// writeRecord writes an analysis record. Degraded parses are still 200: the
// record itself carries the error field.
func (s *Server) writeRecord(w http.ResponseWriter, r *http.Request, record types.AnalysisRecord, err error) {
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if record.HasError() {
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.Bool("analysis.degraded", true))
	}
	s.writeJSON(w, r, http.StatusOK, record)
}

func (s *Server) writeGeneration(w http.ResponseWriter, r *http.Request, result types.GenerationResult, err error) {
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// extractionStatus maps an extraction outcome to an HTTP status
func extractionStatus(result types.ExtractionResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorCode {
	case appErrors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case appErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusUnprocessableEntity
	}
}

func setInputAttributes(r *http.Request, operation, resume, jobPosting string) {
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("operation", operation),
		attribute.Int("request.resume_length", len(resume)),
		attribute.Int("request.job_length", len(jobPosting)),
	)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func requestTooLarge(err error) error {
	return appErrors.NewValidationError(appErrors.ErrCodeRequestTooLong, "Request body too large", err)
}
