// Package version carries build metadata stamped by the release
// pipeline via -ldflags. Unstamped builds resolve to "devel".
package version

// Set with:
//
//	-ldflags "-X .../internal/version.Version=v0.3.0 ..."
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// Resolve returns the stamped build metadata, substituting a fallback
// version for unstamped builds.
func Resolve() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if info.Version == "" {
		if info.BuildTime != "" {
			info.Version = info.BuildTime
		} else {
			info.Version = "devel"
		}
	}
	return info
}

// String renders a one-line form for startup logs.
func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	return info.Version + " (" + info.Commit[:min(len(info.Commit), 12)] + ")"
}
