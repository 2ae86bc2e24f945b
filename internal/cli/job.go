package cli

import (
	"context"
	"fmt"

	"resumelens/internal/common"
	"resumelens/internal/types"

	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job [job-posting]",
	Short: "Analyze a job posting",
	Long: `Extract a job posting and ask the model for a structured analysis:
position, company, required and preferred skills, experience level,
responsibilities and key requirements.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&jobConfig),
	RunE:    runJob,
}

var jobConfig common.CommandConfig

func init() {
	addOutputFlags(jobCmd, &jobConfig)
}

func runJob(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	svc, err := newAnalysisService(cmd)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	err = common.RunCommand(
		cmd.Context(),
		logger,
		jobConfig,
		args,
		func(args []string) (string, error) { return args[0], nil },
		func(ctx context.Context, path string) (types.AnalysisRecord, error) {
			jobPosting, err := extractText(ctx, svc, path)
			if err != nil {
				return nil, err
			}
			return svc.AnalyzeJobPosting(ctx, jobPosting)
		},
		func(path string, cc common.CommandConfig) {
			logger.Info("Starting job posting analysis", "job", path, "output_format", cc.OutputFormat)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to analyze job posting: %w", err)
	}
	return nil
}
