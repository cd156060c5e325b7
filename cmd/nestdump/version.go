package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/nestdump/internal/cli"
	"github.com/pthm/nestdump/internal/update"
	"github.com/pthm/nestdump/internal/version"
)

var (
	versionShort bool
	versionCheck bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Example: `  # Print version information
  nestdump version

  # Check GitHub for a newer release
  nestdump version --check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionShort {
			fmt.Println(version.Short())
		} else {
			fmt.Println(version.Info())
		}
		if !versionCheck {
			return nil
		}

		info, err := update.NewChecker().Check(cmd.Context())
		if err != nil {
			return cli.GeneralError("checking for updates", err)
		}
		if info.UpdateAvailable {
			fmt.Printf("\nA newer version is available: %s (current: %s)\n", info.LatestVersion, info.CurrentVersion)
			if info.ReleaseURL != "" {
				fmt.Println(info.ReleaseURL)
			}
		} else if !quiet {
			fmt.Println("\nYou are running the latest version.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
