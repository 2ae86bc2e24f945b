package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat checks format against the configured formats. An
// empty list allows any format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the default when format is blank, then validates it
func ResolveOutputFormat(format, defaultFormat string, supportedFormats []string) (string, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		format = defaultFormat
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return slices.Clone(supportedFormats)
}
