// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package scan

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
	"github.com/netgrid-labs/stencil/internal/scan"
)

type ScanOptions struct {
	File           string
	Stack          string
	Template       string
	OutputConsumer printer.Consumer
	OutputSchema   string
}

func ScanCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "scan",
		Short: "List the variables a template references",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &ScanOptions{}
			opts.File = command.Flags().Arg(0)
			opts.Stack, _ = command.Flags().GetString("stack")
			opts.Template, _ = command.Flags().GetString("template")
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")

			// A local file scan never needs the agent.
			if opts.File != "" {
				return runLocalScan(opts)
			}

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runStoredScan(app, opts)
		},
		Annotations: map[string]string{
			"type":     "Resolution",
			"examples": "{{.Name}} {{.Command}} ./router.conf.tmpl  |  {{.Name}} {{.Command}} --stack payments --template router-config",
			"args":     "[template file]",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("stack", "", "Stack of the stored template to scan")
	command.Flags().String("template", "", "Stored template to scan. Requires --stack.")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func validateScanOptions(opts *ScanOptions) error {
	if opts.File == "" && opts.Template == "" {
		return cmd.FlagErrorf("a template file argument or the --template flag is required")
	}
	if opts.File != "" && opts.Template != "" {
		return cmd.FlagErrorf("a template file argument and --template are mutually exclusive")
	}
	if opts.Template != "" && opts.Stack == "" {
		return cmd.FlagErrorf("--template requires --stack")
	}
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}

	return nil
}

func runLocalScan(opts *ScanOptions) error {
	if err := validateScanOptions(opts); err != nil {
		return err
	}

	text, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("error reading template file: %v", err)
	}

	resp := &apimodel.ScanResponse{
		Template:  opts.File,
		Variables: scan.Scan(string(text)),
	}
	return printScan(resp, opts)
}

func runStoredScan(app *app.App, opts *ScanOptions) error {
	if err := validateScanOptions(opts); err != nil {
		return err
	}

	resp, err := app.ScanTemplate(opts.Stack, opts.Template)
	if err != nil {
		msg, renderErr := renderer.RenderErrorMessage(err)
		if renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%s", msg)
	}
	return printScan(resp, opts)
}

func printScan(resp *apimodel.ScanResponse, opts *ScanOptions) error {
	if opts.OutputConsumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[apimodel.ScanResponse](os.Stdout, opts.OutputSchema)
		return p.Print(resp)
	}

	p := printer.NewHumanReadablePrinter[apimodel.ScanResponse](os.Stdout)
	return p.Print(resp, printer.PrintOptions{})
}
