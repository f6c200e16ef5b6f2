package recipe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leefowlercu/aocxchange/internal/brep"
	"github.com/leefowlercu/aocxchange/internal/exchange"
	"github.com/leefowlercu/aocxchange/internal/kernel"
	"github.com/leefowlercu/aocxchange/internal/workspace"
)

const bracket = `
name: bracket
vars:
  w: 60
  r: 5
steps:
  - op: box
    as: base
    size: [w, w, "w / 2"]
  - op: cylinder
    as: pin
    radius: r
    height: "w + 20"
  - op: translate
    target: pin
    as: placed
    by: [30, 30, "w / 2"]
  - op: color
    target: base
    rgb: [0, 0.5, 1]
  - op: rename
    target: placed
    name: dowel
  - op: export
    path: out.step
    schema: ap214cd
`

func newRunner(t *testing.T) (*workspace.Table, *Runner, string) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	tbl := workspace.New(workspace.WithLogger(logger))
	dir := t.TempDir()
	return tbl, NewRunner(tbl, WithBaseDir(dir), WithLogger(logger)), dir
}

func TestParse(t *testing.T) {
	rec, err := Parse(strings.NewReader(bracket))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if rec.Name != "bracket" || len(rec.Steps) != 6 {
		t.Fatalf("recipe = %+v", rec)
	}
	if got := rec.Steps[0].Size; len(got) != 3 || got[0] != "w" || got[2] != "w / 2" {
		t.Errorf("Size = %q", got)
	}
	if rec.Steps[1].Radius != "r" {
		t.Errorf("Radius = %q", rec.Steps[1].Radius)
	}

	if _, err := Parse(strings.NewReader("steps:\n  - op: box\n    colour: red\n")); err == nil {
		t.Error("Parse() accepted an unknown key")
	}
	if _, err := Parse(strings.NewReader("steps:\n  - op: box\n    radius: {a: 1}\n")); err == nil {
		t.Error("Parse() accepted a mapping as expression")
	}
	if rec, err := Parse(strings.NewReader("")); err != nil || len(rec.Steps) != 0 {
		t.Errorf("Parse(empty) = %+v, %v", rec, err)
	}
}

func TestRun_Bracket(t *testing.T) {
	tbl, runner, dir := newRunner(t)
	rec, err := Parse(strings.NewReader(bracket))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	res, err := runner.Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	base, ok := tbl.Get(res.Names["base"])
	if !ok {
		t.Fatal("base not recorded")
	}
	if bb := brep.Bounds(mustBrep(t, base.Shape)); bb.Max.Z != 30 {
		t.Errorf("base height = %v, want 30", bb.Max.Z)
	}
	if base.Color != (kernel.Color{G: 0.5, B: 1}) {
		t.Errorf("base color = %+v", base.Color)
	}

	placed, _ := tbl.Get(res.Names["placed"])
	if placed.Name != "dowel" || placed.Ancestor != res.Names["pin"] {
		t.Errorf("placed = %+v", placed)
	}
	if bb := brep.Bounds(mustBrep(t, placed.Shape)); bb.Max.Z != 110 {
		t.Errorf("placed top = %v, want 110", bb.Max.Z)
	}
	if tbl.IsVisible(res.Names["pin"]) {
		t.Error("pin still visible after translate")
	}

	want := filepath.Join(dir, "out.step")
	if len(res.Exports) != 1 || res.Exports[0] != want {
		t.Fatalf("Exports = %v, want [%s]", res.Exports, want)
	}
	im, err := exchange.NewSTEPImporter(want)
	if err != nil {
		t.Fatalf("NewSTEPImporter() error = %v", err)
	}
	if n := len(im.Shapes()); n != 2 {
		t.Errorf("exported shapes = %d, want 2 visible parts", n)
	}
}

func TestRun_ImportAndDisplay(t *testing.T) {
	tbl, runner, dir := newRunner(t)
	src := workspace.New(workspace.WithLogger(slog.New(slog.DiscardHandler)))
	src.MakeBox(1, 1, 1)
	if err := src.Save(filepath.Join(dir, "in.brep")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec, err := Parse(strings.NewReader(`
steps:
  - op: import
    path: in.brep
    as: assy
  - op: sphere
    radius: 2
  - op: transparent
  - op: hide
    target: assy
  - op: export
    path: out.stl
    ascii: true
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	res, err := runner.Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	parts, err := tbl.PartsInAssembly(res.Names["assy"])
	if err != nil || len(parts) != 1 {
		t.Fatalf("PartsInAssembly() = %v, %v", parts, err)
	}
	if tbl.IsVisible(parts[0]) {
		t.Error("imported part visible after hiding its assembly")
	}
	sphere, _ := tbl.Active()
	if sphere.Name != "Sphere" || sphere.Transparency != workspace.Transparency {
		t.Errorf("active = %+v", sphere)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.stl"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "solid") {
		t.Error("export did not honour ascii")
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		index int
		want  error
	}{
		{"unknown op", "steps:\n  - op: fillet\n", 1, ErrUnknownOp},
		{"missing size", "steps:\n  - op: box\n    size: [1, 2]\n", 1, ErrMissingField},
		{"no active part", "steps:\n  - op: hide\n", 1, ErrNoTarget},
		{"duplicate name", "vars: {a: 1}\nsteps:\n  - op: sphere\n    radius: 1\n    as: a\n", 1, ErrDuplicateName},
		{"bad target", "steps:\n  - op: sphere\n    radius: 1\n  - op: hide\n    target: 7\n", 2, workspace.ErrNotFound},
		{"missing path", "steps:\n  - op: export\n", 1, ErrMissingField},
		{"nothing visible", "steps:\n  - op: sphere\n    radius: 1\n  - op: hide\n  - op: export\n    path: x.igs\n", 3, workspace.ErrNothingVisible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, runner, _ := newRunner(t)
			rec, err := Parse(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			_, err = runner.Run(context.Background(), rec)
			var se *StepError
			if !errors.As(err, &se) {
				t.Fatalf("Run() error = %v, want *StepError", err)
			}
			if se.Index != tt.index || !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want step %d wrapping %v", err, tt.index, tt.want)
			}
		})
	}
}

func TestRun_ExpressionErrors(t *testing.T) {
	for _, doc := range []string{
		"steps:\n  - op: sphere\n    radius: undefined_var\n",
		"steps:\n  - op: sphere\n    radius: \"1 +\"\n",
		"vars: {s: text}\nsteps:\n  - op: sphere\n    radius: s\n",
	} {
		_, runner, _ := newRunner(t)
		rec, err := Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if _, err := runner.Run(context.Background(), rec); err == nil {
			t.Errorf("Run(%q) expected error", doc)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	tbl, runner, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &Recipe{Steps: []Step{{Op: "sphere", Radius: "1"}}}
	if _, err := runner.Run(ctx, rec); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if tbl.Len() != 0 {
		t.Error("steps ran after cancellation")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.yaml")
	if err := os.WriteFile(path, []byte(bracket), 0644); err != nil {
		t.Fatal(err)
	}
	rec, err := Load(path)
	if err != nil || rec.Name != "bracket" {
		t.Errorf("Load() = %+v, %v", rec, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) expected error")
	}
}

func mustBrep(t *testing.T, s kernel.Shape) brep.Shape {
	t.Helper()
	b, ok := brep.FromKernel(s)
	if !ok {
		t.Fatal("not a brep shape")
	}
	return b
}
