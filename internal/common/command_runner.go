package common

import (
	"context"

	"resumerank/internal/errors"
	"resumerank/internal/types"
)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(docs []types.Document, cfg CommandConfig)

// DocumentOperationFunc runs a workflow over the loaded documents.
type DocumentOperationFunc[Output any] func(context.Context, []types.Document) (Output, error)

// RunDocumentCommand encapsulates the common logic for document-based CLI commands:
// load the files, run the operation, then format and write its result.
func RunDocumentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	operation DocumentOperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	// Pass the logger when creating helpers
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	docs, err := fileProcessor.ValidateAndReadDocuments(args...)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(docs, cmdConfig)
	}

	result, err := operation(ctx, docs)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
