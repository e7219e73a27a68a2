// Package version provides the bridge version and build info.
//
//nolint:revive
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "dev"
	// CommitHash is the git commit hash at build time.
	CommitHash = ""
	// BuildTime is the time when the binary was built.
	BuildTime = ""

	vcsOnce sync.Once
)

// Info is the structured build description printed by the version commands.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build info, filling commit and time from the embedded VCS
// settings when ldflags did not set them.
func Get() Info {
	vcsOnce.Do(readVCS)
	return Info{
		Version:   Version,
		Commit:    CommitHash,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetInfo returns "version (shortcommit)".
func GetInfo() string {
	return Get().String()
}

func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	short := i.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s)", i.Version, short)
}

func readVCS() {
	if CommitHash != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			CommitHash = setting.Value
		case "vcs.time":
			if BuildTime == "" {
				BuildTime = setting.Value
			}
		}
	}
}
