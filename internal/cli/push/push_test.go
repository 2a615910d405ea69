// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package push

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifest(t *testing.T) {
	t.Run("parses a full manifest", func(t *testing.T) {
		path := writeManifest(t, `{
			"Stack": {"Label": "payments", "Description": "payment routers"},
			"Targets": [{"Label": "router1"}],
			"Templates": [{"Label": "router-config", "Text": "listen {{port}}"}],
			"FetchSpecs": [{"variable": "api_key", "resource_id": "vault", "endpoint": "/v1/keys"}],
			"Shared": {"port": 8080},
			"TargetVariables": {"router1": {"region": "us-east-1"}}
		}`)

		manifest, err := readManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "payments", manifest.Stack.Label)
		assert.Len(t, manifest.Targets, 1)
		assert.Len(t, manifest.Templates, 1)
		assert.Equal(t, "api_key", manifest.FetchSpecs[0].Variable)
		assert.Equal(t, float64(8080), manifest.Shared["port"])
		assert.Equal(t, "us-east-1", manifest.TargetVariables["router1"]["region"])
	})

	t.Run("rejects a manifest without a stack", func(t *testing.T) {
		path := writeManifest(t, `{"Targets": []}`)

		_, err := readManifest(path)
		assert.ErrorContains(t, err, "must name a stack")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		path := writeManifest(t, `{`)

		_, err := readManifest(path)
		assert.Error(t, err)
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		_, err := readManifest("/does/not/exist.json")
		assert.Error(t, err)
	})
}
