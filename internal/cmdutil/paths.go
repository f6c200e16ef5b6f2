// Package cmdutil holds helpers shared by the CLI commands.
package cmdutil

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/leefowlercu/aocxchange/internal/config"
	"github.com/leefowlercu/aocxchange/internal/kernel"
)

// ResolvePath expands "~" and returns an absolute, cleaned path.
// Empty input returns an empty string.
func ResolvePath(path string) (string, error) {
	expanded := config.ExpandHome(path)
	if expanded == "" {
		return "", nil
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	return filepath.Clean(absPath), nil
}

// ExpandArgs resolves each argument, expanding doublestar patterns such as
// "parts/**/*.stp". A pattern that matches nothing is an error; plain paths
// pass through unchecked. Duplicates are dropped, order is kept.
func ExpandArgs(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) error {
		abs, err := ResolvePath(p)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
		return nil
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			if err := add(arg); err != nil {
				return nil, err
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(config.ExpandHome(arg), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q; %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if err := add(m); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ParseFormat maps a --to style name ("step", "iges", "stl", "brep") to a
// kernel format.
func ParseFormat(name string) (kernel.Format, error) {
	f, ok := kernel.ParseFormat(strings.ToLower(name))
	if !ok {
		return 0, fmt.Errorf("unknown format %q; want one of %s", name, formatNames())
	}
	return f, nil
}

func formatNames() string {
	var names []string
	for _, f := range kernel.Formats() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}
