// Package version exposes build metadata for the velum binary.
package version

import "runtime/debug"

const name = "velum"

// Name returns the canonical binary name.
func Name() string {
	return name
}

// Version returns the module version embedded by the Go toolchain,
// or "devel" for local builds.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}

	return info.Main.Version
}

// Commit returns the VCS revision embedded by the Go toolchain, if any.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}

			return setting.Value
		}
	}

	return ""
}
