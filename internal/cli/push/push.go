// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package push

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/app"
	"github.com/netgrid-labs/stencil/internal/cli/cmd"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/display"
	"github.com/netgrid-labs/stencil/internal/cli/renderer"
	"github.com/netgrid-labs/stencil/internal/logging"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

type PushOptions struct {
	ManifestFile string
}

func PushCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "push",
		Short: "Push a manifest of templates, targets and fetch specs to the agent",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(fmt.Sprintf("%s/log/client.log", config.Config.DataDirectory()))
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &PushOptions{}
			opts.ManifestFile = command.Flags().Arg(0)

			configFile, _ := command.Flags().GetString("config")
			app, err := cmd.AppFromContext(command.Context(), configFile, command)
			if err != nil {
				return err
			}

			return runPush(app, opts)
		},
		Annotations: map[string]string{
			"type":     "Resolution",
			"examples": "{{.Name}} {{.Command}} ./payments.json",
			"args":     "<manifest file>",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("config", "", "Path to config file")

	return command
}

func runPush(app *app.App, opts *PushOptions) error {
	if opts.ManifestFile == "" {
		return cmd.FlagErrorf("manifest file is required")
	}

	manifest, err := readManifest(opts.ManifestFile)
	if err != nil {
		return err
	}

	display.PrintBanner()

	if err := pushManifest(app, manifest); err != nil {
		msg, renderErr := renderer.RenderErrorMessage(err)
		if renderErr != nil {
			return renderErr
		}
		return fmt.Errorf("%s", msg)
	}

	display.Success(fmt.Sprintf("Pushed stack %s: %d targets, %d templates, %d fetch specs\n",
		manifest.Stack.Label, len(manifest.Targets), len(manifest.Templates), len(manifest.FetchSpecs)))
	return nil
}

func readManifest(path string) (*pkgmodel.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %v", err)
	}

	var manifest pkgmodel.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %v", err)
	}
	if manifest.Stack.Label == "" {
		return nil, fmt.Errorf("manifest must name a stack")
	}

	return &manifest, nil
}

// pushManifest upserts the manifest in dependency order so every later
// entity can reference the stack.
func pushManifest(app *app.App, manifest *pkgmodel.Manifest) error {
	if err := app.CreateStack(&manifest.Stack); err != nil {
		return err
	}

	stack := manifest.Stack.Label

	for i := range manifest.Targets {
		manifest.Targets[i].Stack = stack
		if err := app.UpsertTarget(&manifest.Targets[i]); err != nil {
			return err
		}
	}

	for i := range manifest.Templates {
		manifest.Templates[i].Stack = stack
		if err := app.UpsertTemplate(&manifest.Templates[i]); err != nil {
			return err
		}
	}

	for i := range manifest.FetchSpecs {
		manifest.FetchSpecs[i].Stack = stack
		if err := app.UpsertFetchSpec(&manifest.FetchSpecs[i]); err != nil {
			return err
		}
	}

	for name, value := range manifest.Shared {
		req := &apimodel.SetVariableRequest{Stack: stack, Name: name, Value: value}
		if err := app.SetVariable(req); err != nil {
			return err
		}
	}

	for target, values := range manifest.TargetVariables {
		for name, value := range values {
			req := &apimodel.SetVariableRequest{Stack: stack, Target: target, Name: name, Value: value}
			if err := app.SetVariable(req); err != nil {
				return err
			}
		}
	}

	return nil
}
