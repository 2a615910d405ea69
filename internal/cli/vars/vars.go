// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package vars

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/app"
	"github.com/netgrid-labs/stencil/internal/cli/cmd"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/display"
	"github.com/netgrid-labs/stencil/internal/cli/printer"
	"github.com/netgrid-labs/stencil/internal/cli/renderer"
	"github.com/netgrid-labs/stencil/internal/logging"
)

func getCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "get",
		Short: "Show stored variables of a scope",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			stack, _ := command.Flags().GetString("stack")
			target, _ := command.Flags().GetString("target")
			consumer, _ := command.Flags().GetString("output-consumer")
			schema, _ := command.Flags().GetString("output-schema")

			if stack == "" {
				return cmd.FlagErrorf("the --stack flag is required")
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runGet(app, stack, target, printer.Consumer(consumer), schema)
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} vars {{.Command}} --stack payments  |  {{.Name}} vars {{.Command}} --stack payments --target router1",
		},
		SilenceErrors: true,
	}

	command.Flags().String("stack", "", "Stack to read from. This flag is required.")
	command.Flags().String("target", "", "Read the per-target scope of this target instead of the shared scope")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func runGet(app *app.App, stack, target string, consumer printer.Consumer, schema string) error {
	variables, err := app.GetVariables(stack, target)
	if err != nil {
		msg, renderErr := renderer.RenderErrorMessage(err)
		if renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%s", msg)
	}

	resp := &apimodel.VariablesResponse{
		Stack:     stack,
		Target:    target,
		Variables: variables,
	}

	if consumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[apimodel.VariablesResponse](os.Stdout, schema)
		return p.Print(resp)
	}

	p := printer.NewHumanReadablePrinter[apimodel.VariablesResponse](os.Stdout)
	return p.Print(resp, printer.PrintOptions{})
}

func setCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "set",
		Short: "Store a variable in the shared or per-target scope",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			assignment := command.Flags().Arg(0)
			stack, _ := command.Flags().GetString("stack")
			target, _ := command.Flags().GetString("target")

			if stack == "" {
				return cmd.FlagErrorf("the --stack flag is required")
			}
			name, value, found := strings.Cut(assignment, "=")
			if !found || name == "" {
				return cmd.FlagErrorf("expected a name=value argument")
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			req := &apimodel.SetVariableRequest{
				Stack:  stack,
				Target: target,
				Name:   name,
				Value:  value,
			}
			if err := app.SetVariable(req); err != nil {
				msg, renderErr := renderer.RenderErrorMessage(err)
				if renderErr != nil {
					return renderErr
				}
				return fmt.Errorf("%s", msg)
			}

			scope := "shared scope"
			if target != "" {
				scope = fmt.Sprintf("target %s", target)
			}
			display.Success(fmt.Sprintf("Stored %s in %s of stack %s\n", name, scope, stack))
			return nil
		},
		Annotations: map[string]string{
			"examples": "{{.Name}} vars {{.Command}} --stack payments region=us-east-1  |  {{.Name}} vars {{.Command}} --stack payments --target router1 port=9090",
			"args":     "<name=value>",
		},
		SilenceErrors: true,
	}

	command.Flags().String("stack", "", "Stack to write to. This flag is required.")
	command.Flags().String("target", "", "Write to the per-target scope of this target instead of the shared scope")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func VarsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "vars",
		Short: "Read and write stored variables",
		Annotations: map[string]string{
			"type":     "Resolution",
			"examples": "{{.Name}} {{.Command}} get --stack payments  |  {{.Name}} {{.Command}} set --stack payments region=us-east-1",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.AddCommand(getCmd(), setCmd())
	return command
}
