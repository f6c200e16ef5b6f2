// Package version reports the aocx build: the embedded release number plus
// commit and date injected at link time or recovered from the module build
// info.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set with
//
//	go build -ldflags "-X github.com/leefowlercu/aocxchange/internal/version.gitCommit=VALUE"
var (
	gitCommit string
	buildDate string
)

const unknown = "unknown"

// Info represents version and build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// String formats Info for human-readable display.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo:         %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// Short is the one-line form used by --version.
func (i Info) Short() string {
	if i.GitCommit == unknown {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit)
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   strings.TrimSpace(versionFile),
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}
	if info.GitCommit == "" {
		info.GitCommit = commitFromBuildInfo()
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// commitFromBuildInfo returns the short VCS revision recorded by the go
// tool, suffixed -dirty for modified trees.
func commitFromBuildInfo() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return unknown
	}
	var revision string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return unknown
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}
