// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package upgrade

import (
	"fmt"
	"strings"

	"github.com/masterminds/semver"
	"github.com/spf13/cobra"

	"github.com/netgrid-labs/stencil"
	"github.com/netgrid-labs/stencil/internal/agent"
	"github.com/netgrid-labs/stencil/internal/cli/cmd"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/prompter"
	"github.com/netgrid-labs/stencil/internal/logging"
)

func UpgradeCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "upgrade",
		Short: "Install or list available stencil binary updates",
		Annotations: map[string]string{
			"type":     "Manage",
			"examples": "{{.Name}} {{.Command}}",
		},
		SilenceErrors: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("version")
			assumeYes, _ := cmd.Flags().GetBool("yes")

			if !isPrivilegedUser() {
				fmt.Println("this command requires a privileged user: authentication may be required")

				upgradeArgs := []string{cmd.Name()}
				if assumeYes {
					upgradeArgs = append(upgradeArgs, "--yes")
				}
				if version != "" {
					upgradeArgs = append(upgradeArgs, "--version", version)
				}

				err := invokeSelfWithSudo(upgradeArgs...)
				if err != nil {
					return fmt.Errorf("could not escalate to privileged user: %w", err)
				}
			}

			repo, err := fetchRepo(stencil.BinaryRepository)
			if err != nil {
				return err
			}

			var candidate *pkgEntry

			if version == "" {
				candidate = repo.update(semver.MustParse(stencil.Version))
				if candidate == nil {
					fmt.Println("no update available")
					return nil
				}
			} else {
				parsedVersion, err := semver.NewVersion(version)
				if err != nil {
					return fmt.Errorf("error parsing version %q: %w", version, err)
				}

				candidate = repo.entry(parsedVersion)
				if candidate == nil {
					return fmt.Errorf("no candidate for version %q", parsedVersion)
				}
			}

			if !assumeYes {
				prompt := prompter.NewBasicPrompter()
				if !prompt.Confirm(fmt.Sprintf("Upgrade stencil %s -> %s?", stencil.Version, candidate.Version), false) {
					fmt.Println("aborted.")
					return nil
				}
			}

			fmt.Println("stopping stencil agent...")
			ag := agent.Agent{}
			err = ag.Stop()
			if err != nil {
				if !strings.Contains(err.Error(), "agent is not running") {
					return err
				}
			}

			fmt.Printf("installing stencil version %s\n", candidate.Version.String())
			err = install(stencil.BinaryRepository, candidate)
			if err != nil {
				return err
			}

			fmt.Println("done.")

			return nil
		},
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)
	command.AddCommand(UpgradeListCmd())

	command.Flags().String("version", "", "Version to install")
	command.Flags().Bool("yes", false, "Install without asking for confirmation")

	return command
}

func UpgradeListCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "list",
		Short: "List available stencil upgrades",
		Annotations: map[string]string{
			"type":     "Manage",
			"examples": "{{.Name}} upgrade list",
		},
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := fetchRepo(stencil.BinaryRepository)
			if err != nil {
				return err
			}

			fmt.Print("Available stencil versions:\n\n")
			for _, entry := range repo.list() {
				fmt.Printf(" %12v  %s\n", entry.Version, entry.Sha256)
			}

			return nil
		},
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	return command
}
