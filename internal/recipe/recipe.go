// Package recipe runs scripted modelling sessions. A recipe is a YAML
// document with variables and a list of steps, each of which drives one
// workspace operation. Numeric fields and targets are expressions over the
// variables and the names given to earlier steps.
package recipe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownOp     = errors.New("unknown step op")
	ErrMissingField  = errors.New("missing step field")
	ErrDuplicateName = errors.New("name already defined")
	ErrNoTarget      = errors.New("no target part")
)

// Recipe is a parsed recipe document.
type Recipe struct {
	Name  string         `yaml:"name"`
	Vars  map[string]any `yaml:"vars"`
	Steps []Step         `yaml:"steps"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op     string `yaml:"op"`
	As     string `yaml:"as,omitempty"`
	Target Expr   `yaml:"target,omitempty"`

	Size   []Expr `yaml:"size,omitempty"`
	Radius Expr   `yaml:"radius,omitempty"`
	Height Expr   `yaml:"height,omitempty"`
	By     []Expr `yaml:"by,omitempty"`
	RGB    []Expr `yaml:"rgb,omitempty"`

	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path,omitempty"`

	Schema      string `yaml:"schema,omitempty"`
	Tolerance   Expr   `yaml:"tolerance,omitempty"`
	IGESVersion string `yaml:"iges_version,omitempty"`
	ASCII       bool   `yaml:"ascii,omitempty"`
}

// Expr is the source text of an expression. YAML numbers are kept verbatim,
// so `radius: 5` and `radius: "r / 2"` both decode.
type Expr string

// UnmarshalYAML accepts any scalar.
func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expression must be a scalar", n.Line)
	}
	*e = Expr(n.Value)
	return nil
}

// Parse decodes a recipe. Unknown keys are errors.
func Parse(r io.Reader) (*Recipe, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var rec Recipe
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return &rec, nil
		}
		return nil, fmt.Errorf("failed to parse recipe; %w", err)
	}
	return &rec, nil
}

// Load reads and parses the recipe file at path.
func Load(path string) (*Recipe, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe; %w", err)
	}
	defer fh.Close()
	rec, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// StepError locates a failure in the step list. Index is 1-based.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
