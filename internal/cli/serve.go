package cli

import (
	"resumelens/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing extraction, analysis and generation.

Available endpoints:
- POST /extract: Extract text from an uploaded document (multipart field "file")
- POST /analyze: Analyze resume text, optionally against a job posting
- POST /analyze/document: Extract and analyze an uploaded resume
- POST /analyze/job: Analyze a job posting
- POST /analyze/match: Match a resume against a job posting
- POST /generate/cover-letter: Write a cover letter
- POST /generate/tailor: Tailor a resume to a job posting
- DELETE /cache: Invalidate cached analyses
- GET /health, /ready, /stats: Liveness, model availability and statistics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().Bool("reload-prompts", false, "Watch prompt template files and reload them on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	flags := cmd.Flags()
	if port, _ := flags.GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if host, _ := flags.GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if reload, _ := flags.GetBool("reload-prompts"); reload {
		cfg.Server.PromptReload.Enabled = true
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}
