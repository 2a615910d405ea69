// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package app carries the CLI's shared state: the loaded configuration and
// the client used to reach the agent. Command packages receive it through the
// cobra context.
package app

import (
	"fmt"
	"os"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/netgrid-labs/stencil"
	"github.com/netgrid-labs/stencil/internal/api"
	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/config"
	"github.com/netgrid-labs/stencil/internal/cli/display"
	"github.com/netgrid-labs/stencil/internal/util"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

type App struct {
	Config *pkgmodel.Config
}

func NewApp() *App {
	app := &App{
		Config: pkgmodel.DefaultConfig(config.Config.DataDirectory()),
	}

	if err := config.Config.EnsureClientID(); err != nil {
		fmt.Println(display.Red("Error: " + err.Error()))
		os.Exit(1)
	}

	return app
}

// LoadConfig reads the configuration file. An explicit path must exist; the
// default location is optional and falls back to the built-in defaults.
func (a *App) LoadConfig(path string, defaultPath string) error {
	if path != "" {
		cfg, err := readConfigFile(util.ExpandHomePath(path))
		if err != nil {
			return fmt.Errorf("failed to load configuration from '%s': %w", path, err)
		}
		a.Config = cfg
		return nil
	}

	cfg, err := readConfigFile(util.ExpandHomePath(defaultPath + ".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	a.Config = cfg
	return nil
}

func readConfigFile(path string) (*pkgmodel.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := pkgmodel.DefaultConfig(config.Config.DataDirectory())
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration file '%s': %w", path, err)
	}

	return cfg, nil
}

func (a *App) Client() *api.Client {
	return api.NewClient(a.Config.Cli.API, nil)
}

// runBeforeCommand verifies the agent is reachable and version-compatible
// before any command talks to it.
func (a *App) runBeforeCommand(client *api.Client) (*apimodel.Stats, error) {
	stats, err := client.Stats()
	if err != nil {
		if err == syscall.ECONNREFUSED {
			return nil, fmt.Errorf("agent is not running; please start the agent and try again\n\n%s %s", display.Gold("Getting started:"), display.DocRoot)
		}
		return nil, fmt.Errorf("error fetching stats from agent: %v", err)
	}

	if stats.Version != stencil.Version {
		return nil, fmt.Errorf("incompatible agent version: expected %s, got %s", stencil.Version, stats.Version)
	}

	return stats, nil
}

func (a *App) Render(req *apimodel.RenderRequest) (*apimodel.RenderResponse, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}

	return client.Render(req)
}

func (a *App) ScanTemplate(stack, template string) (*apimodel.ScanResponse, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}

	return client.ScanTemplate(stack, template)
}

func (a *App) Dependencies(stack, target string) (*apimodel.DependenciesResponse, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}

	return client.Dependencies(stack, target)
}

func (a *App) Stats() (*apimodel.Stats, error) {
	client := a.Client()
	return a.runBeforeCommand(client)
}

func (a *App) ListStacks() ([]pkgmodel.Stack, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}
	return client.ListStacks()
}

func (a *App) ListTargets(stack string) ([]pkgmodel.Target, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}
	return client.ListTargets(stack)
}

func (a *App) ListTemplates(stack string) ([]pkgmodel.Template, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}
	return client.ListTemplates(stack)
}

func (a *App) ListFetchSpecs(stack string) ([]pkgmodel.FetchSpec, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}
	return client.ListFetchSpecs(stack)
}

func (a *App) GetVariables(stack, target string) (map[string]any, error) {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return nil, err
	}
	return client.GetVariables(stack, target)
}

func (a *App) SetVariable(req *apimodel.SetVariableRequest) error {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return err
	}
	return client.SetVariable(req)
}

func (a *App) CreateStack(stack *pkgmodel.Stack) error {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return err
	}
	return client.CreateStack(stack)
}

func (a *App) UpsertTarget(target *pkgmodel.Target) error {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return err
	}
	return client.UpsertTarget(target)
}

func (a *App) UpsertTemplate(tmpl *pkgmodel.Template) error {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return err
	}
	return client.UpsertTemplate(tmpl)
}

func (a *App) UpsertFetchSpec(spec *pkgmodel.FetchSpec) error {
	client := a.Client()
	if _, err := a.runBeforeCommand(client); err != nil {
		return err
	}
	return client.UpsertFetchSpec(spec)
}
