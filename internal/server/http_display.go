package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo prints the endpoint table and protection settings at startup
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
	s.displayPromptReloadInfo(w)
}

func (s *Server) displayEndpoints(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET    /health                 - Liveness check")
	_, _ = fmt.Fprintln(w, "  GET    /ready                  - Model availability check")
	_, _ = fmt.Fprintln(w, "  GET    /stats                  - Server and cache statistics")
	_, _ = fmt.Fprintln(w, "  POST   /extract                - Extract text from an uploaded document")
	_, _ = fmt.Fprintln(w, "  POST   /analyze                - Analyze resume text")
	_, _ = fmt.Fprintln(w, "  POST   /analyze/document       - Extract and analyze an uploaded resume")
	_, _ = fmt.Fprintln(w, "  POST   /analyze/job            - Analyze a job posting")
	_, _ = fmt.Fprintln(w, "  POST   /analyze/match          - Match a resume against a job posting")
	_, _ = fmt.Fprintln(w, "  POST   /generate/cover-letter  - Write a cover letter")
	_, _ = fmt.Fprintln(w, "  POST   /generate/tailor        - Tailor a resume to a job posting")
	_, _ = fmt.Fprintln(w, "  DELETE /cache                  - Invalidate cached analyses")
}

func (s *Server) displayAuthInfo(w io.Writer) {
	if len(s.APIKeys) > 0 {
		_, _ = fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		_, _ = fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' header in requests to POST and DELETE endpoints")
	} else {
		_, _ = fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		_, _ = fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		_, _ = fmt.Fprintln(w, "Request size limit: DISABLED")
		_, _ = fmt.Fprintln(w, "WARNING: No request size limits configured!")
	}
}

func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit == nil || !s.RateLimit.Enabled {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
		_, _ = fmt.Fprintln(w, "WARNING: No rate limiting configured!")
		return
	}

	_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	if s.RateLimit.ByAPIKey {
		_, _ = fmt.Fprintln(w, "  - Per API key rate limiting enabled")
	}
	if s.RateLimit.ByIP {
		_, _ = fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
	}
}

func (s *Server) displayPromptReloadInfo(w io.Writer) {
	if s.promptWatcher == nil {
		_, _ = fmt.Fprintln(w, "Prompt hot reload: DISABLED")
		return
	}
	_, _ = fmt.Fprintf(w, "Prompt hot reload: ENABLED (%d files watched)\n", len(s.promptWatcher.GetWatchedFiles()))
}
