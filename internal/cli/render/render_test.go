// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netgrid-labs/stencil/internal/cli/printer"
)

func TestValidateRenderOptions(t *testing.T) {
	t.Run("stack is required", func(t *testing.T) {
		err := validateRenderOptions(&RenderOptions{Template: "t", OutputConsumer: printer.ConsumerHuman})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "--stack")
	})

	t.Run("template is required", func(t *testing.T) {
		err := validateRenderOptions(&RenderOptions{Stack: "s", OutputConsumer: printer.ConsumerHuman})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "--template")
	})

	t.Run("diff requires output-dir", func(t *testing.T) {
		err := validateRenderOptions(&RenderOptions{Stack: "s", Template: "t", Diff: true, OutputConsumer: printer.ConsumerHuman})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "--output-dir")
	})

	t.Run("machine consumer needs a known schema", func(t *testing.T) {
		err := validateRenderOptions(&RenderOptions{Stack: "s", Template: "t", OutputConsumer: printer.ConsumerMachine, OutputSchema: "xml"})
		assert.Error(t, err)
	})

	t.Run("accepts a minimal human invocation", func(t *testing.T) {
		err := validateRenderOptions(&RenderOptions{Stack: "s", Template: "t", OutputConsumer: printer.ConsumerHuman})
		assert.NoError(t, err)
	})
}

func TestParseAssignments(t *testing.T) {
	t.Run("parses name=value pairs", func(t *testing.T) {
		values, err := parseAssignments([]string{"region=us-east-1", "port=9090"}, "var")
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"region": "us-east-1", "port": "9090"}, values)
	})

	t.Run("keeps equals signs in the value", func(t *testing.T) {
		values, err := parseAssignments([]string{"query=a=b"}, "var")
		assert.NoError(t, err)
		assert.Equal(t, "a=b", values["query"])
	})

	t.Run("rejects pairs without a value", func(t *testing.T) {
		_, err := parseAssignments([]string{"region"}, "var")
		assert.Error(t, err)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := parseAssignments([]string{"=value"}, "test-var")
		assert.Error(t, err)
	})

	t.Run("nil for no pairs", func(t *testing.T) {
		values, err := parseAssignments(nil, "var")
		assert.NoError(t, err)
		assert.Nil(t, values)
	})
}
