// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package render

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

type RenderOptions struct {
	Stack          string
	Template       string
	Targets        []string
	Overrides      []string
	TestValues     []string
	OutputDir      string
	Diff           bool
	OutputConsumer printer.Consumer
	OutputSchema   string
}

func RenderCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "render",
		Short: "Materialize a template for one or more targets",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &RenderOptions{}
			opts.Stack, _ = command.Flags().GetString("stack")
			opts.Template, _ = command.Flags().GetString("template")
			opts.Targets, _ = command.Flags().GetStringArray("target")
			opts.Overrides, _ = command.Flags().GetStringArray("var")
			opts.TestValues, _ = command.Flags().GetStringArray("test-var")
			opts.OutputDir, _ = command.Flags().GetString("output-dir")
			opts.Diff, _ = command.Flags().GetBool("diff")
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runRender(app, opts)
		},
		Annotations: map[string]string{
			"type":     "Resolution",
			"examples": "{{.Name}} {{.Command}} --stack payments --template router-config  |  {{.Name}} {{.Command}} --stack payments --template router-config --target router1 --var region=us-east-1",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("stack", "", "Stack the template belongs to. This flag is required.")
	command.Flags().String("template", "", "Template to materialize. This flag is required.")
	command.Flags().StringArray("target", nil, "Target to render for, repeatable. Defaults to every target of the stack.")
	command.Flags().StringArray("var", nil, "Manual override as name=value, repeatable. Wins over every stored layer.")
	command.Flags().StringArray("test-var", nil, "Test value as name=value, repeatable. Lowest precedence, suppresses fetching.")
	command.Flags().String("output-dir", "", "Write each target's output to <dir>/<target> instead of stdout")
	command.Flags().Bool("diff", false, "With --output-dir, show a diff against the existing file instead of writing")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine output (json | yaml)")
	command.Flags().String("config", "", "Path to config file")

	return command
}

func runRender(app *app.App, opts *RenderOptions) error {
	if err := validateRenderOptions(opts); err != nil {
		return err
	}

	overrides, err := parseAssignments(opts.Overrides, "var")
	if err != nil {
		return err
	}
	testValues, err := parseAssignments(opts.TestValues, "test-var")
	if err != nil {
		return err
	}

	req := &apimodel.RenderRequest{
		Stack:      opts.Stack,
		Template:   opts.Template,
		Targets:    opts.Targets,
		Overrides:  overrides,
		TestValues: testValues,
	}

	resp, err := app.Render(req)
	if err != nil {
		msg, renderErr := renderer.RenderErrorMessage(err)
		if renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%s", msg)
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		p := printer.NewMachineReadablePrinter[apimodel.RenderResponse](os.Stdout, opts.OutputSchema)
		return p.Print(resp)
	}

	if opts.OutputDir != "" {
		return writeOutputs(resp, opts)
	}

	p := printer.NewHumanReadablePrinter[apimodel.RenderResponse](os.Stdout)
	return p.Print(resp, printer.PrintOptions{ShowText: true})
}

func validateRenderOptions(opts *RenderOptions) error {
	if opts.Stack == "" {
		return cmd.FlagErrorf("the --stack flag is required")
	}
	if opts.Template == "" {
		return cmd.FlagErrorf("the --template flag is required")
	}
	if opts.Diff && opts.OutputDir == "" {
		return cmd.FlagErrorf("--diff requires --output-dir")
	}
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output consumer must be either 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return cmd.FlagErrorf("output schema must be either 'json' or 'yaml' for machine consumer")
		}
	}

	return nil
}

// parseAssignments turns repeated name=value flags into an override map.
// Values stay strings, the agent's scope layer does not care.
func parseAssignments(pairs []string, flag string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, cmd.FlagErrorf("invalid --%s %q, expected name=value", flag, pair)
		}
		values[name] = value
	}
	return values, nil
}

// writeOutputs persists each target's text under the output dir, or previews
// the change as a diff when --diff is set. Failed targets never touch disk.
func writeOutputs(resp *apimodel.RenderResponse, opts *RenderOptions) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %v", err)
	}

	var failed int
	for _, result := range resp.Results {
		if result.Error != "" {
			display.Error(fmt.Sprintf("target %s failed: %s\n", result.Target, result.Error))
			failed++
			continue
		}

		path := fmt.Sprintf("%s/%s", opts.OutputDir, result.Target)

		if opts.Diff {
			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("error reading %s: %v", path, err)
			}

			diff := renderer.RenderDiff(string(existing), result.Text)
			if diff == "" {
				fmt.Printf("%s %s\n", display.Green("unchanged"), path)
				continue
			}
			fmt.Printf("%s %s\n%s", display.Gold("changed"), path, diff)
			continue
		}

		if err := os.WriteFile(path, []byte(result.Text), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %v", path, err)
		}
		display.Success(fmt.Sprintf("Wrote %s\n", path))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(resp.Results))
	}
	return nil
}
