// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Status command to inspect a running agent.
package status

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/app"
	"github.com/netgrid-labs/stencil/internal/cli/cmd"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/display"
	"github.com/netgrid-labs/stencil/internal/cli/printer"
	"github.com/netgrid-labs/stencil/internal/logging"
)

type StatusOptions struct {
	OutputConsumer printer.Consumer
	OutputSchema   string
}

func StatusCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "status",
		Short: "Show agent status and counters",
		PreRun: func(command *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &StatusOptions{}
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runStatus(app, opts)
		},
		Annotations: map[string]string{
			"type":     "Inspection",
			"examples": "{{.Name}} {{.Command}}  |  {{.Name}} {{.Command}} --output-consumer machine",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func runStatus(app *app.App, opts *StatusOptions) error {
	if err := validateStatusOptions(opts); err != nil {
		return err
	}

	stats, err := app.Stats()
	if err != nil {
		return err
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[apimodel.Stats](os.Stdout, opts.OutputSchema)
		return p.Print(stats)
	}

	display.PrintBanner()
	p := printer.NewHumanReadablePrinter[apimodel.Stats](os.Stdout)
	return p.Print(stats, printer.PrintOptions{})
}

func validateStatusOptions(options *StatusOptions) error {
	if options.OutputConsumer != printer.ConsumerHuman && options.OutputConsumer != printer.ConsumerMachine {
		return fmt.Errorf("output consumer must be either 'human' or 'machine'")
	}
	if options.OutputConsumer == printer.ConsumerMachine {
		if options.OutputSchema != "json" && options.OutputSchema != "yaml" {
			return fmt.Errorf("output schema must be either 'json' or 'yaml' for machine consumer")
		}
	}

	return nil
}
