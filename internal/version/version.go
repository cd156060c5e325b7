// Package version reports the nestdump build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via ldflags by GoReleaser
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fromBuildInfo sync.Once

// resolve fills in values left unset by ldflags from the module build info,
// which is present when installed with "go install ...@version".
func resolve() {
	fromBuildInfo.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if Commit != "none" {
					continue
				}
				Commit = setting.Value
				if len(Commit) > 7 {
					Commit = Commit[:7]
				}
			case "vcs.time":
				if Date == "unknown" {
					Date = setting.Value
				}
			}
		}
	})
}

// Info returns formatted version information
func Info() string {
	resolve()
	return fmt.Sprintf("nestdump %s (commit: %s, built: %s) %s",
		Version, Commit, Date, runtime.Version())
}

// Short returns just the version string
func Short() string {
	resolve()
	return Version
}
