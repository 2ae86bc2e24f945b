package common

import (
	"context"
	"fmt"

	"resumelens/internal/ai"
	"resumelens/internal/config"
	"resumelens/internal/errors"
)

// CreateInputFunc builds the operation input from the command arguments.
type CreateInputFunc[Input any] func(args []string) (Input, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs one pipeline operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand validates the output target, builds the input, runs the
// operation and writes its formatted result.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	outputHandler := NewOutputHandler(logger)

	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	input, err := createInput(args)
	if err != nil {
		return fmt.Errorf("failed to prepare input: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// TokenUsageLogger returns a usage hook that logs token counts per operation
func TokenUsageLogger(logger *errors.Logger) func(config.Operation, *ai.TokenUsage) {
	return func(op config.Operation, usage *ai.TokenUsage) {
		if logger == nil || usage == nil {
			return
		}
		logger.Info("AI token usage",
			"operation", string(op),
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens)
	}
}
