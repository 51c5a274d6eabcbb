// Package version holds the modstream build identity.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X modstream/internal/version.Version=1.0.0 -X modstream/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Details is the machine-readable build identity.
type Details struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

// Get returns the build identity. A commit not set through ldflags is taken
// from the VCS stamp of the binary when present.
func Get() Details {
	d := Details{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if d.Commit == "unknown" {
		d.Commit = vcsRevision(d.Commit)
	}
	return d
}

func vcsRevision(fallback string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fallback
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return fallback
}

// ShortCommit returns the first seven characters of the commit, or "" when
// the commit is unknown or too short to abbreviate.
func (d Details) ShortCommit() string {
	if d.Commit == "unknown" || len(d.Commit) <= 7 {
		return ""
	}
	return d.Commit[:7]
}

// Info returns the version, followed by the short commit when known.
func Info() string {
	d := Get()
	if short := d.ShortCommit(); short != "" {
		return fmt.Sprintf("%s (%s)", d.Version, short)
	}
	return d.Version
}

// Full returns complete version information
func Full() string {
	d := Get()
	return fmt.Sprintf("modstream version %s\nCommit: %s\nBuilt: %s\nGo: %s",
		d.Version, d.Commit, d.BuildDate, d.GoVersion)
}
