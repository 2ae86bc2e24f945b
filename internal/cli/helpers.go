package cli

import (
	"context"
	"fmt"

	"resumelens/internal/ai"
	"resumelens/internal/analysis"
	"resumelens/internal/cache"
	"resumelens/internal/common"
	"resumelens/internal/errors"
	"resumelens/internal/extract"

	"github.com/spf13/cobra"
)

// addOutputFlags registers --output and --format on cmd
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat is a PreRunE that applies the default format and validates it
func resolveFormat(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(cc.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		cc.OutputFormat = format
		return common.NewFileProcessor(nil).ValidateInputFiles(args...)
	}
}

// newAnalysisService wires the model gateway, cache and extractor from config
func newAnalysisService(cmd *cobra.Command) (*analysis.Service, error) {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	gateway, err := ai.NewService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	analysisCache, err := cache.NewFromConfig(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return analysis.New(analysis.Options{
		Gateway:   gateway,
		Composer:  ai.NewComposer(cfg.AI.CustomPrompts),
		Parser:    ai.NewResponseParser(logger),
		Cache:     analysisCache,
		Extractor: extract.New(cfg.Extraction, logger),
		Logger:    logger,
		OnUsage:   common.TokenUsageLogger(logger),
	})
}

// extractText extracts path and turns a failed extraction into an error
func extractText(ctx context.Context, svc *analysis.Service, path string) (string, error) {
	result := svc.Extract(ctx, path)
	if !result.Success {
		return "", extractionError(path, result.ErrorCode, result.Error)
	}
	return result.Text, nil
}

func extractionError(path, code, message string) error {
	if code == errors.ErrCodeUnsupportedFormat {
		return errors.NewValidationError(code, message, nil).WithContext("file", path)
	}
	if code == "" {
		code = errors.ErrCodeExtractionFailed
	}
	return errors.NewIOError(code, message, nil).WithContext("file", path)
}

func closeService(svc *analysis.Service, logger *errors.Logger) {
	if err := svc.Close(); err != nil {
		logger.Warn("Failed to close analysis service", "error", err.Error())
	}
}
