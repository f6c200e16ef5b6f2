package formatters

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/leefowlercu/aocxchange/internal/report"
)

// TOMLFormatter formats reports as TOML. Shapes become an array of tables.
type TOMLFormatter struct{}

// NewTOMLFormatter creates a new TOML formatter.
func NewTOMLFormatter() *TOMLFormatter {
	return &TOMLFormatter{}
}

// Name returns the formatter name.
func (f *TOMLFormatter) Name() string {
	return "toml"
}

// ContentType returns the MIME content type.
func (f *TOMLFormatter) ContentType() string {
	return "application/toml"
}

// FileExtension returns the typical file extension.
func (f *TOMLFormatter) FileExtension() string {
	return ".toml"
}

// Format converts the report to TOML.
func (f *TOMLFormatter) Format(r *report.Report) ([]byte, error) {
	data, err := toml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode TOML; %w", err)
	}
	return data, nil
}
