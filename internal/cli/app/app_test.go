// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netgrid-labs/stencil/internal/cli/config"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stencil.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultApp() *App {
	return &App{Config: pkgmodel.DefaultConfig(config.Config.DataDirectory())}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	t.Run("overrides the defaults", func(t *testing.T) {
		path := writeConfig(t, `{"Agent": {"Server": {"Port": 9999}}}`)

		app := defaultApp()
		require.NoError(t, app.LoadConfig(path, ""))
		assert.Equal(t, 9999, app.Config.Agent.Server.Port)
	})

	t.Run("keeps defaults for untouched sections", func(t *testing.T) {
		path := writeConfig(t, `{"Agent": {"Server": {"Port": 9999}}}`)
		defaults := pkgmodel.DefaultConfig(config.Config.DataDirectory())

		app := defaultApp()
		require.NoError(t, app.LoadConfig(path, ""))
		assert.Equal(t, defaults.Agent.Proxy.Port, app.Config.Agent.Proxy.Port)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		app := defaultApp()
		err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.json"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := writeConfig(t, "{not json")

		app := defaultApp()
		err := app.LoadConfig(path, "")
		require.Error(t, err)
	})
}

func TestLoadConfigDefaultPath(t *testing.T) {
	t.Run("missing default file falls back to built-in defaults", func(t *testing.T) {
		defaults := pkgmodel.DefaultConfig(config.Config.DataDirectory())

		app := defaultApp()
		require.NoError(t, app.LoadConfig("", filepath.Join(t.TempDir(), "stencil")))
		assert.Equal(t, defaults.Agent.Server.Port, app.Config.Agent.Server.Port)
	})

	t.Run("present default file is loaded", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stencil.json"),
			[]byte(`{"Agent": {"Server": {"Port": 8888}}}`), 0o644))

		app := defaultApp()
		require.NoError(t, app.LoadConfig("", filepath.Join(dir, "stencil")))
		assert.Equal(t, 8888, app.Config.Agent.Server.Port)
	})
}
