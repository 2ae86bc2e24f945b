package cli

import (
	"context"
	"fmt"
	"strings"

	"resumelens/internal/ai"
	"resumelens/internal/common"
	"resumelens/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [resume] [job-posting]",
	Short: "Write a cover letter for a job posting",
	Long: `Write a cover letter from a resume for a job posting.

Styles: ` + strings.Join(ai.CoverLetterStyles, ", ") + `
Emphasis options: ` + strings.Join(ai.CoverLetterEmphases, ", "),
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&coverLetterConfig),
	RunE:    runCoverLetter,
}

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume] [job-posting]",
	Short: "Rewrite a resume for a job posting",
	Long: `Rewrite a resume so that it highlights the experience and skills most
relevant to a job posting, without inventing new facts.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: resolveFormat(&tailorConfig),
	RunE:    runTailor,
}

var (
	coverLetterConfig   common.CommandConfig
	coverLetterStyle    string
	coverLetterEmphasis []string

	tailorConfig common.CommandConfig
)

func init() {
	addOutputFlags(coverLetterCmd, &coverLetterConfig)
	coverLetterCmd.Flags().StringVar(&coverLetterStyle, "style", ai.DefaultCoverLetterStyle, "Writing style of the letter")
	coverLetterCmd.Flags().StringSliceVar(&coverLetterEmphasis, "emphasis", nil, "Aspects to emphasize (repeatable)")
	_ = coverLetterCmd.RegisterFlagCompletionFunc("style", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return ai.CoverLetterStyles, cobra.ShellCompDirectiveNoFileComp
	})

	addOutputFlags(tailorCmd, &tailorConfig)
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	svc, err := newAnalysisService(cmd)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	emphasis := ai.JoinEmphasis(coverLetterEmphasis)
	err = common.RunCommand(
		cmd.Context(),
		logger,
		coverLetterConfig,
		args,
		pairFromArgs,
		func(ctx context.Context, pair documentPair) (types.GenerationResult, error) {
			resume, jobPosting, err := extractPair(ctx, svc, pair)
			if err != nil {
				return types.GenerationResult{}, err
			}
			return svc.GenerateCoverLetter(ctx, resume, jobPosting, coverLetterStyle, emphasis)
		},
		logPair(logger, "Starting cover letter generation"),
	)
	if err != nil {
		return fmt.Errorf("failed to generate cover letter: %w", err)
	}
	return nil
}

func runTailor(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	svc, err := newAnalysisService(cmd)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	err = common.RunCommand(
		cmd.Context(),
		logger,
		tailorConfig,
		args,
		pairFromArgs,
		func(ctx context.Context, pair documentPair) (types.GenerationResult, error) {
			resume, jobPosting, err := extractPair(ctx, svc, pair)
			if err != nil {
				return types.GenerationResult{}, err
			}
			return svc.TailorResume(ctx, resume, jobPosting)
		},
		logPair(logger, "Starting resume tailoring"),
	)
	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	return nil
}
