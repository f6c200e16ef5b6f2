package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/expr-lang/expr"

	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/workspace"
)

// Result reports what a run produced.
type Result struct {
	Names   map[string]workspace.ID
	Exports []string
}

// Runner executes recipes against a workspace table.
type Runner struct {
	table   *workspace.Table
	baseDir string
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBaseDir resolves relative import and export paths against dir.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner returns a runner that applies steps to table.
func NewRunner(table *workspace.Table, opts ...RunnerOption) *Runner {
	r := &Runner{table: table, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state of one recipe execution.
type run struct {
	*Runner
	env    map[string]any
	result *Result
}

// Run executes every step in order and stops at the first failure, which is
// returned as a *StepError. Cancellation is checked between steps.
func (r *Runner) Run(ctx context.Context, rec *Recipe) (*Result, error) {
	st := &run{
		Runner: r,
		env:    make(map[string]any, len(rec.Vars)),
		result: &Result{Names: make(map[string]workspace.ID)},
	}
	for k, v := range rec.Vars {
		st.env[k] = v
	}

	for i, step := range rec.Steps {
		if err := ctx.Err(); err != nil {
			return st.result, err
		}
		id, err := st.step(step)
		if err != nil {
			return st.result, &StepError{Index: i + 1, Op: step.Op, Err: err}
		}
		if step.As != "" {
			if _, taken := st.env[step.As]; taken {
				return st.result, &StepError{Index: i + 1, Op: step.Op, Err: fmt.Errorf("%q; %w", step.As, ErrDuplicateName)}
			}
			st.env[step.As] = int(id)
			st.result.Names[step.As] = id
		}
		r.logger.Debug("recipe step done", "recipe", rec.Name, "index", i+1, "op", step.Op, "id", id)
	}
	return st.result, nil
}

// step runs one step and returns the id it produced or acted on.
func (st *run) step(s Step) (workspace.ID, error) {
	t := st.table
	switch s.Op {
	case "box":
		v, err := st.floats("size", s.Size, 3)
		if err != nil {
			return 0, err
		}
		return t.MakeBox(v[0], v[1], v[2])
	case "cylinder":
		r, err := st.float("radius", s.Radius)
		if err != nil {
			return 0, err
		}
		h, err := st.float("height", s.Height)
		if err != nil {
			return 0, err
		}
		return t.MakeCylinder(r, h)
	case "sphere":
		r, err := st.float("radius", s.Radius)
		if err != nil {
			return 0, err
		}
		return t.MakeSphere(r)
	case "import":
		if s.Path == "" {
			return 0, fmt.Errorf("path; %w", ErrMissingField)
		}
		return t.Load(st.path(s.Path))
	case "translate", "derive":
		id, err := st.target(s.Target)
		if err != nil {
			return 0, err
		}
		v, err := st.floats("by", s.By, 3)
		if err != nil {
			return 0, err
		}
		return t.Translate(id, v[0], v[1], v[2])
	case "color":
		id, err := st.target(s.Target)
		if err != nil {
			return 0, err
		}
		v, err := st.floats("rgb", s.RGB, 3)
		if err != nil {
			return 0, err
		}
		return id, t.SetColor(id, kernel.Color{R: v[0], G: v[1], B: v[2]})
	case "transparent", "opaque", "hide", "show", "show_only", "activate":
		id, err := st.target(s.Target)
		if err != nil {
			return 0, err
		}
		return id, st.display(s.Op, id)
	case "show_all":
		t.ShowAll()
		return 0, nil
	case "rename":
		id, err := st.target(s.Target)
		if err != nil {
			return 0, err
		}
		if s.Name == "" {
			return 0, fmt.Errorf("name; %w", ErrMissingField)
		}
		return id, t.Rename(id, s.Name)
	case "export":
		return 0, st.export(s)
	default:
		return 0, fmt.Errorf("%q; %w", s.Op, ErrUnknownOp)
	}
}

func (st *run) display(op string, id workspace.ID) error {
	t := st.table
	switch op {
	case "transparent":
		return t.SetTransparent(id)
	case "opaque":
		return t.SetOpaque(id)
	case "hide":
		return t.Hide(id)
	case "show":
		return t.Show(id)
	case "show_only":
		return t.ShowOnly(id)
	default:
		return t.SetActive(id)
	}
}

func (st *run) export(s Step) error {
	if s.Path == "" {
		return fmt.Errorf("path; %w", ErrMissingField)
	}
	opts := []exchange.Option{exchange.WithASCII(s.ASCII)}
	if s.Schema != "" {
		opts = append(opts, exchange.WithSchema(s.Schema))
	}
	if s.IGESVersion != "" {
		opts = append(opts, exchange.WithIGESVersion(s.IGESVersion))
	}
	if s.Tolerance != "" {
		tol, err := st.float("tolerance", s.Tolerance)
		if err != nil {
			return err
		}
		opts = append(opts, exchange.WithTolerance(tol))
	}
	path := st.path(s.Path)
	if err := st.table.Save(path, opts...); err != nil {
		return err
	}
	st.result.Exports = append(st.result.Exports, path)
	return nil
}

func (st *run) path(p string) string {
	if filepath.IsAbs(p) || st.baseDir == "" {
		return p
	}
	return filepath.Join(st.baseDir, p)
}

// target resolves a target expression to a record id; an empty target is the
// active part.
func (st *run) target(e Expr) (workspace.ID, error) {
	if e == "" {
		a, ok := st.table.Active()
		if !ok {
			return 0, ErrNoTarget
		}
		return a.ID, nil
	}
	program, err := expr.Compile(string(e), expr.Env(st.env), expr.AsInt())
	if err != nil {
		return 0, fmt.Errorf("target %q; %w", e, err)
	}
	out, err := expr.Run(program, st.env)
	if err != nil {
		return 0, fmt.Errorf("target %q; %w", e, err)
	}
	return workspace.ID(out.(int)), nil
}

func (st *run) float(field string, e Expr) (float64, error) {
	if e == "" {
		return 0, fmt.Errorf("%s; %w", field, ErrMissingField)
	}
	program, err := expr.Compile(string(e), expr.Env(st.env), expr.AsFloat64())
	if err != nil {
		return 0, fmt.Errorf("%s %q; %w", field, e, err)
	}
	out, err := expr.Run(program, st.env)
	if err != nil {
		return 0, fmt.Errorf("%s %q; %w", field, e, err)
	}
	return out.(float64), nil
}

func (st *run) floats(field string, es []Expr, n int) ([]float64, error) {
	if len(es) != n {
		return nil, fmt.Errorf("%s needs %d values, got %d; %w", field, n, len(es), ErrMissingField)
	}
	out := make([]float64, n)
	for i, e := range es {
		v, err := st.float(fmt.Sprintf("%s[%d]", field, i), e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
