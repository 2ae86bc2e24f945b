package cli

import (
	"context"

	"resumelens/internal/common"
	"resumelens/internal/extract"
	"resumelens/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [document]",
	Short: "Extract normalized text from a resume document",
	Long: `Extract plain text from a PDF, DOCX, DOC or TXT document. The text is
normalized (Unicode NFC, whitespace collapsed, non-Latin characters removed)
and returned with its word count and format metadata. No model is called.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { return resolveFormat(&extractConfig)(cmd, nil) },
	RunE:    runExtract,
}

var extractConfig common.CommandConfig

func init() {
	addOutputFlags(extractCmd, &extractConfig)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	extractor := extract.New(cfg.Extraction, logger)

	var result types.ExtractionResult
	err := common.RunCommand(
		cmd.Context(),
		logger,
		extractConfig,
		args,
		func(args []string) (string, error) { return args[0], nil },
		func(ctx context.Context, path string) (types.ExtractionResult, error) {
			result = extractor.Extract(path)
			return result, nil
		},
		func(path string, cc common.CommandConfig) {
			logger.Info("Starting extraction", "file", path, "output_format", cc.OutputFormat)
		},
	)
	if err != nil {
		return err
	}

	if !result.Success {
		return extractionError(args[0], result.ErrorCode, result.Error)
	}
	logger.Info("Extraction completed", "format", result.Format, "words", result.WordCount)
	return nil
}
