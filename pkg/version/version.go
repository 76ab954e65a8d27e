// Package version exposes build metadata stamped at link time.
package version

import "runtime/debug"

// Populated via -ldflags at release builds; Init fills the gaps from the
// embedded module build info for plain go-build binaries.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Init fills unset fields from the embedded build info.
func Init() {
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
			if Commit == "unknown" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}
