package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/go-drift/driftui/cmd/driftui/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
		return nil
	},
}

func versionString() string {
	protocol := semver.MajorMinor(config.SupportedProtocol)
	if !semver.IsValid(Version) {
		return fmt.Sprintf("driftui %s (built %s, protocol %s)", Version, BuildTime, protocol)
	}
	build := semver.Canonical(Version)
	if pre := semver.Prerelease(Version); pre != "" {
		build += " (pre-release)"
	}
	return fmt.Sprintf("driftui %s (built %s, protocol %s)", build, BuildTime, protocol)
}
