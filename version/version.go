package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

// Set at build time via -ldflags "-X github.com/teranos/foundry/version.Version=v1.2.3".
var (
	// Version is the release tag, or "dev" for untagged builds
	Version = "dev"

	// Commit is the git commit hash the binary was built from
	Commit = "unknown"

	// BuildTime is the UTC timestamp of the build
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns build information for the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Release reports whether the binary was built from a tagged release,
// meaning Version parses as a semantic version.
func (i Info) Release() bool {
	_, err := semver.NewVersion(i.Version)
	return err == nil
}

// String returns a single-line description of the build.
func (i Info) String() string {
	if !i.Release() {
		return fmt.Sprintf("foundry dev+%s (built %s)", i.Short(), i.BuildTime)
	}
	return fmt.Sprintf("foundry %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}
