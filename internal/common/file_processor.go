package common

import (
	"fmt"
	"os"
	"path/filepath"

	"resumelens/internal/errors"
	"resumelens/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// WriteFile writes content to a file, creating its directory
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateInputFiles checks that every document exists, is readable and has
// a supported extension
func (fp *FileProcessor) ValidateInputFiles(filenames ...string) error {
	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		if !utils.IsDocumentFile(filename) {
			return errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
				fmt.Sprintf("Nicht unterstütztes Dateiformat: %s", utils.GetFileExtension(filename)), nil)
		}

		if fp.logger != nil {
			if info, err := os.Stat(filename); err == nil {
				fp.logger.Debug("Input file validated",
					"filename", filename,
					"size", utils.FormatFileSize(info.Size()))
			}
		}
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
