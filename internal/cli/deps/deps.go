// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package deps

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/app"
	"github.com/netgrid-labs/stencil/internal/cli/cmd"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/printer"
	"github.com/netgrid-labs/stencil/internal/cli/renderer"
	"github.com/netgrid-labs/stencil/internal/logging"
)

type DepsOptions struct {
	Stack          string
	Target         string
	OutputConsumer printer.Consumer
	OutputSchema   string
}

func DepsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "deps",
		Short: "Show the planned fetch order for a stack",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &DepsOptions{}
			opts.Stack, _ = command.Flags().GetString("stack")
			opts.Target, _ = command.Flags().GetString("target")
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runDeps(app, opts)
		},
		Annotations: map[string]string{
			"type":     "Inspection",
			"examples": "{{.Name}} {{.Command}} --stack payments  |  {{.Name}} {{.Command}} --stack payments --target router1",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("stack", "", "Stack whose fetch specs to plan. This flag is required.")
	command.Flags().String("target", "", "Plan against one target's scope instead of the shared scope")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func runDeps(app *app.App, opts *DepsOptions) error {
	if opts.Stack == "" {
		return cmd.FlagErrorf("the --stack flag is required")
	}
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}

	resp, err := app.Dependencies(opts.Stack, opts.Target)
	if err != nil {
		msg, renderErr := renderer.RenderErrorMessage(err)
		if renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%s", msg)
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[apimodel.DependenciesResponse](os.Stdout, opts.OutputSchema)
		return p.Print(resp)
	}

	p := printer.NewHumanReadablePrinter[apimodel.DependenciesResponse](os.Stdout)
	return p.Print(resp, printer.PrintOptions{})
}
