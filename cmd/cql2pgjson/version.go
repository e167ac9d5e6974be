package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/pthm/cql2pgjson/internal/version"
)

func init() {
	// Without ldflags, fall back to module build info. This works when
	// installed via "go install github.com/pthm/cql2pgjson/cmd/cql2pgjson@version".
	if version.Version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			version.Commit = setting.Value
			if len(setting.Value) >= 7 {
				version.Commit = setting.Value[:7]
			}
		case "vcs.time":
			version.Date = setting.Value
		}
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}
