// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package inventory

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

type InventoryOptions struct {
	Stack          string
	OutputConsumer printer.Consumer
	OutputSchema   string
	MaxResults     int
}

func validateInventoryOptions(opts *InventoryOptions) error {
	if opts.MaxResults < 0 {
		return fmt.Errorf("max-results must be 0 (unlimited) or a positive number")
	}
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return fmt.Errorf("output-consumer must be 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return fmt.Errorf("output-schema must be 'json' or 'yaml' for machine consumer")
		}
	}

	return nil
}

func optionsFromCmd(command *cobra.Command) *InventoryOptions {
	opts := &InventoryOptions{}
	consumer, _ := command.Flags().GetString("output-consumer")
	opts.OutputConsumer = printer.Consumer(consumer)
	opts.Stack, _ = command.Flags().GetString("stack")
	opts.MaxResults, _ = command.Flags().GetInt("max-results")
	opts.OutputSchema, _ = command.Flags().GetString("output-schema")
	return opts
}

func addCommonFlags(command *cobra.Command, stackRequired bool) {
	usage := "Limit the listing to one stack"
	if stackRequired {
		usage = "Stack to list from. This flag is required."
	}
	command.Flags().String("stack", "", usage)
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command output (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().Int("max-results", 10, "Maximum number of rows to display in the table (0 = unlimited)")
	command.Flags().String("config", "", "Path to config file")
}

// run dispatches one inventory listing through the human or machine printer.
func run[T any](app *app.App, opts *InventoryOptions, list func() (*T, error)) error {
	if err := validateInventoryOptions(opts); err != nil {
		return err
	}

	result, err := list()
	if err != nil {
		return err
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[T](os.Stdout, opts.OutputSchema)
		return p.Print(result)
	}

	display.PrintBanner()
	p := printer.NewHumanReadablePrinter[T](os.Stdout)
	return p.Print(result, printer.PrintOptions{MaxResults: opts.MaxResults})
}

func stacksCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "stacks",
		Short: "List stacks",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := optionsFromCmd(command)

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return run(app, opts, func() (*apimodel.StacksResponse, error) {
				stacks, err := app.ListStacks()
				if err != nil {
					return nil, err
				}
				return &apimodel.StacksResponse{Stacks: stacks}, nil
			})
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} inventory {{.Command}}",
		},
		SilenceErrors: true,
	}

	addCommonFlags(command, false)
	return command
}

func targetsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "targets",
		Short: "List targets of a stack",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := optionsFromCmd(command)
			if opts.Stack == "" {
				return cmd.FlagErrorf("the --stack flag is required")
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return run(app, opts, func() (*apimodel.TargetsResponse, error) {
				targets, err := app.ListTargets(opts.Stack)
				if err != nil {
					return nil, err
				}
				return &apimodel.TargetsResponse{Targets: targets}, nil
			})
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} inventory {{.Command}} --stack payments",
		},
		SilenceErrors: true,
	}

	addCommonFlags(command, true)
	return command
}

func templatesCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "templates",
		Short: "List templates of a stack",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := optionsFromCmd(command)
			if opts.Stack == "" {
				return cmd.FlagErrorf("the --stack flag is required")
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return run(app, opts, func() (*apimodel.TemplatesResponse, error) {
				templates, err := app.ListTemplates(opts.Stack)
				if err != nil {
					return nil, err
				}
				return &apimodel.TemplatesResponse{Templates: templates}, nil
			})
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} inventory {{.Command}} --stack payments",
		},
		SilenceErrors: true,
	}

	addCommonFlags(command, true)
	return command
}

func fetchSpecsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "fetchspecs",
		Short: "List fetch specs of a stack",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := optionsFromCmd(command)
			if opts.Stack == "" {
				return cmd.FlagErrorf("the --stack flag is required")
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return run(app, opts, func() (*apimodel.FetchSpecsResponse, error) {
				specs, err := app.ListFetchSpecs(opts.Stack)
				if err != nil {
					return nil, err
				}
				return &apimodel.FetchSpecsResponse{FetchSpecs: specs}, nil
			})
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} inventory {{.Command}} --stack payments",
		},
		SilenceErrors: true,
	}

	addCommonFlags(command, true)
	return command
}

func InventoryCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "inventory",
		Short: "List what the agent knows about",
		Annotations: map[string]string{
			"type":     "Inspection",
			"examples": "{{.Name}} {{.Command}} stacks  |  {{.Name}} {{.Command}} templates --stack payments",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.AddCommand(stacksCmd(), targetsCmd(), templatesCmd(), fetchSpecsCmd())
	return command
}
