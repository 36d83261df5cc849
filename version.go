package main

import (
	"fmt"
	rtdebug "runtime/debug"
	"strconv"
	"time"
)

// Version is the version of this program, set at build time with -ldflags "-X main.Version=...".
var Version string

// getVersion returns Version or, when unset, a pseudo-version built from the VCS information
// embedded by the Go toolchain.
func getVersion() (string, error) {
	if Version != "" {
		return Version, nil
	}

	buildInfo, ok := rtdebug.ReadBuildInfo()
	if !ok {
		return "(unknown)", nil
	}
	return pseudoVersion(buildInfo.Settings)
}

func pseudoVersion(settings []rtdebug.BuildSetting) (string, error) {
	var (
		revision string
		modified bool
		vcsTime  time.Time
	)

	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err != nil {
				return "(unknown)", fmt.Errorf("parsing vcs.time: %w", err)
			}
			vcsTime = t
		case "vcs.modified":
			v, err := strconv.ParseBool(setting.Value)
			if err != nil {
				return "(unknown)", fmt.Errorf("parsing vcs.modified: %w", err)
			}
			modified = v
		}
	}

	if revision == "" {
		return "(devel)", nil
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}

	version := fmt.Sprintf("v0.0.0-%s-%s", vcsTime.UTC().Format("20060102150405"), revision)
	if modified {
		version += "+dirty"
	}
	return version, nil
}
