package cmdutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leefowlercu/aocxchange/internal/kernel"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolvePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/parts/a.stp", filepath.Join(home, "parts", "a.stp")},
		{"/tmp/x/../y.igs", "/tmp/y.igs"},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.in)
		if err != nil {
			t.Fatalf("ResolvePath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.stp"))
	touch(t, filepath.Join(dir, "sub", "b.stp"))
	touch(t, filepath.Join(dir, "sub", "c.igs"))

	got, err := ExpandArgs([]string{
		filepath.Join(dir, "**", "*.stp"),
		filepath.Join(dir, "a.stp"),
		filepath.Join(dir, "plain.brep"),
	})
	if err != nil {
		t.Fatalf("ExpandArgs() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.stp"),
		filepath.Join(dir, "sub", "b.stp"),
		filepath.Join(dir, "plain.brep"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandArgs() = %v, want %v", got, want)
	}

	if _, err := ExpandArgs([]string{filepath.Join(dir, "*.stl")}); err == nil {
		t.Error("ExpandArgs() expected error for pattern without matches")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    kernel.Format
		wantErr bool
	}{
		{"step", kernel.STEP, false},
		{"STP", kernel.STEP, false},
		{"igs", kernel.IGES, false},
		{"stl", kernel.STL, false},
		{"brep", kernel.BREP, false},
		{"obj", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}
