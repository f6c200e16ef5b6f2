// Package formatters renders import reports in the formats accepted by
// "aocx info --format".
package formatters

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leefowlercu/aocxchange/internal/report"
)

// Formatter formats a report into a specific output format.
type Formatter interface {
	// Format converts the report to the output format.
	Format(r *report.Report) ([]byte, error)

	// Name returns the formatter name.
	Name() string

	// ContentType returns the MIME content type.
	ContentType() string

	// FileExtension returns the typical file extension.
	FileExtension() string
}

// Registry maps format names to formatters.
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry returns a registry holding every built-in formatter.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	r.Register(NewTextFormatter())
	r.Register(NewJSONFormatter())
	r.Register(NewYAMLFormatter())
	r.Register(NewTOMLFormatter())
	r.Register(NewXMLFormatter())
	return r
}

// Register adds f under its name, replacing any formatter of the same name.
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Name()] = f
}

// Get returns the formatter registered as name.
func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q; must be one of: %s", name, strings.Join(r.Names(), ", "))
	}
	return f, nil
}

// Names returns the registered format names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
