package formatters

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/aocxchange/internal/report"
)

// YAMLFormatter formats reports as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// ContentType returns the MIME content type.
func (f *YAMLFormatter) ContentType() string {
	return "application/yaml"
}

// FileExtension returns the typical file extension.
func (f *YAMLFormatter) FileExtension() string {
	return ".yaml"
}

// Format converts the report to YAML.
func (f *YAMLFormatter) Format(r *report.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode YAML; %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML; %w", err)
	}
	return buf.Bytes(), nil
}
