package core

import (
	"runtime/debug"
	"strings"
	"sync"
)

// Version reports the build's version: the module version for tagged
// releases (without the "v" prefix), or the short VCS revision for
// local builds.
var Version = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return "devel-" + s.Value[:7]
		}
	}
	return "devel"
})
