// Package version carries build metadata injected at link time via
// -ldflags "-X".
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type Info struct {
	Version string
	Commit  string
	Date    string
}

func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// Short is the bare version string, for logs.
func (i Info) Short() string { return i.Version }

func (i Info) String() string {
	return fmt.Sprintf("Murmur %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
