package cli

import (
	"context"
	"fmt"

	"resumelens/internal/analysis"
	"resumelens/internal/common"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume]",
	Short: "Analyze a resume document",
	Long: `Extract a resume and ask the model for a structured analysis: contact
info, summary, skills, experience, education, languages, certifications,
scores and improvement suggestions. With --job, the analysis also includes a
job_match section for the given job posting.

Results are cached when caching is enabled. The key is --cache-key, or a
hash of the resume text and job posting.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&analyzeConfig),
	RunE:    runAnalyze,
}

var (
	analyzeConfig   common.CommandConfig
	analyzeJobFile  string
	analyzeCacheKey string
)

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	analyzeCmd.Flags().StringVar(&analyzeJobFile, "job", "", "Job posting document to match against")
	analyzeCmd.Flags().StringVar(&analyzeCacheKey, "cache-key", "", "Cache key for the analysis (default: content hash)")
}

type analyzeInput struct {
	resumePath string
	jobPath    string
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	if analyzeJobFile != "" {
		if err := common.NewFileProcessor(logger).ValidateInputFiles(analyzeJobFile); err != nil {
			return err
		}
	}

	svc, err := newAnalysisService(cmd)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	operation := func(ctx context.Context, in analyzeInput) (analysis.DocumentAnalysis, error) {
		var jobPosting string
		var err error
		if in.jobPath != "" {
			if jobPosting, err = extractText(ctx, svc, in.jobPath); err != nil {
				return analysis.DocumentAnalysis{}, err
			}
		}

		result := analysis.DocumentAnalysis{Extraction: svc.Extract(ctx, in.resumePath)}
		if !result.Extraction.Success {
			return result, extractionError(in.resumePath, result.Extraction.ErrorCode, result.Extraction.Error)
		}

		result.Analysis, err = svc.AnalyzeResume(ctx, analysis.AnalyzeRequest{
			ResumeText: result.Extraction.Text,
			JobPosting: jobPosting,
			CacheKey:   analyzeCacheKey,
			DeriveKey:  true,
		})
		return result, err
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		func(args []string) (analyzeInput, error) {
			return analyzeInput{resumePath: args[0], jobPath: analyzeJobFile}, nil
		},
		operation,
		func(in analyzeInput, cc common.CommandConfig) {
			logger.Info("Starting resume analysis",
				"resume", in.resumePath,
				"job", in.jobPath,
				"output_format", cc.OutputFormat)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}
