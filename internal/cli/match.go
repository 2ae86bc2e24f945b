package cli

import (
	"context"
	"fmt"

	"resumelens/internal/analysis"
	"resumelens/internal/common"
	"resumelens/internal/types"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [resume] [job-posting]",
	Short: "Score how well a resume matches a job posting",
	Long: `Extract a resume and a job posting and ask the model for a match
assessment: overall score, matching and missing skills, matching experience
and recommendations.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&matchConfig),
	RunE:    runMatch,
}

var matchConfig common.CommandConfig

func init() {
	addOutputFlags(matchCmd, &matchConfig)
}

// documentPair holds the extracted resume and job posting
type documentPair struct {
	resumePath string
	jobPath    string
}

func pairFromArgs(args []string) (documentPair, error) {
	if len(args) != 2 {
		return documentPair{}, fmt.Errorf("expected 2 file paths, got %d", len(args))
	}
	return documentPair{resumePath: args[0], jobPath: args[1]}, nil
}

// extractPair extracts both documents of a pair
func extractPair(ctx context.Context, svc *analysis.Service, pair documentPair) (string, string, error) {
	resume, err := extractText(ctx, svc, pair.resumePath)
	if err != nil {
		return "", "", err
	}
	jobPosting, err := extractText(ctx, svc, pair.jobPath)
	if err != nil {
		return "", "", err
	}
	return resume, jobPosting, nil
}

func logPair(logger interface{ Info(string, ...any) }, message string) common.LogDetailsFunc[documentPair] {
	return func(pair documentPair, cc common.CommandConfig) {
		logger.Info(message,
			"resume", pair.resumePath,
			"job", pair.jobPath,
			"output_format", cc.OutputFormat)
	}
}

func runMatch(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	svc, err := newAnalysisService(cmd)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	err = common.RunCommand(
		cmd.Context(),
		logger,
		matchConfig,
		args,
		pairFromArgs,
		func(ctx context.Context, pair documentPair) (types.AnalysisRecord, error) {
			resume, jobPosting, err := extractPair(ctx, svc, pair)
			if err != nil {
				return nil, err
			}
			return svc.AnalyzeMatch(ctx, resume, jobPosting)
		},
		logPair(logger, "Starting match analysis"),
	)
	if err != nil {
		return fmt.Errorf("failed to analyze match: %w", err)
	}
	return nil
}
