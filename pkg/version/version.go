// Package version reports the ricohctl build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time:
//
//	go build -ldflags "-X github.com/gheeres/ricoh-go/pkg/version.Version=v1.2.0"
var Version = ""

// Product names the client in the User-Agent header.
const Product = "ricohctl"

// Info describes a build.
type Info struct {
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// Get returns the build information. Version falls back to the module
// version recorded by the Go toolchain, then to "(devel)".
func Get() Info {
	info := Info{Version: Version, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Revision = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Version == "" {
		info.Version = "(devel)"
	}
	return info
}

// String returns e.g. "ricohctl v1.2.0 (3f2a1b9c, go1.25.5)".
func (i Info) String() string {
	rev := i.Revision
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if i.Modified {
		rev += "+dirty"
	}
	if rev == "" {
		return fmt.Sprintf("%s %s (%s)", Product, i.Version, i.GoVersion)
	}
	return fmt.Sprintf("%s %s (%s, %s)", Product, i.Version, rev, i.GoVersion)
}

// UserAgent returns the User-Agent header value, e.g. "ricohctl/v1.2.0".
func UserAgent() string {
	return Product + "/" + Get().Version
}
