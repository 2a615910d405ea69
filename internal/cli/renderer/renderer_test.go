// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package renderer

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

func stripAnsiCodes(t *testing.T, s string) string {
	t.Helper()

	ansi := regexp.MustCompile("\x1b\\[[0-9;]*m")
	return ansi.ReplaceAllString(s, "")
}

func TestRenderRenderResponse_Success(t *testing.T) {
	resp := &apimodel.RenderResponse{
		Stack:    "payments",
		Template: "router-config",
		Results: []apimodel.TargetResult{
			{
				Target: "router1",
				Text:   "listen 8080\n",
				Values: []apimodel.ResolvedValue{
					{Variable: "port", Value: float64(8080), Source: "Shared"},
					{Variable: "region", Value: "us-east-1", Source: "PerTarget"},
				},
			},
		},
	}

	result, err := RenderRenderResponse(resp, true)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "target router1")
	assert.Contains(t, result, "template router-config, stack payments")
	assert.Contains(t, result, "port")
	assert.Contains(t, result, "8080")
	assert.Contains(t, result, "PerTarget")
	assert.Contains(t, result, "listen 8080")
}

func TestRenderRenderResponse_PerTargetFailure(t *testing.T) {
	resp := &apimodel.RenderResponse{
		Stack:    "payments",
		Template: "router-config",
		Results: []apimodel.TargetResult{
			{Target: "router1", Text: "ok", Values: []apimodel.ResolvedValue{{Variable: "port", Value: "80", Source: "Shared"}}},
			{Target: "router2", Error: "missing variables: region"},
		},
	}

	result, err := RenderRenderResponse(resp, false)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "target router1")
	assert.Contains(t, result, "target router2 failed: missing variables: region")
	assert.NotContains(t, result, "listen")
}

func TestRenderRenderResponse_FetchFailureNote(t *testing.T) {
	resp := &apimodel.RenderResponse{
		Stack:    "payments",
		Template: "router-config",
		Results: []apimodel.TargetResult{
			{
				Target: "router1",
				Text:   "ok",
				Values: []apimodel.ResolvedValue{{Variable: "api_key", Value: "stored", Source: "Shared"}},
				Failures: []apimodel.FetchFailure{
					{Variable: "api_key", Error: "proxy returned status 503"},
				},
			},
		},
	}

	result, err := RenderRenderResponse(resp, false)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "fetch for `api_key` failed")
	assert.Contains(t, result, "proxy returned status 503")
}

func TestRenderScan(t *testing.T) {
	result, err := RenderScan(&apimodel.ScanResponse{
		Template:  "router-config",
		Variables: []string{"port", "region"},
	})
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "router-config")
	assert.Contains(t, result, "references 2 variables")
	assert.Contains(t, result, "port")
	assert.Contains(t, result, "region")
}

func TestRenderScan_Empty(t *testing.T) {
	result, err := RenderScan(&apimodel.ScanResponse{Template: "static"})
	assert.NoError(t, err)
	assert.Contains(t, stripAnsiCodes(t, result), "No variables referenced")
}

func TestRenderDependencies(t *testing.T) {
	result, err := RenderDependencies(&apimodel.DependenciesResponse{
		Stack: "payments",
		Order: []apimodel.DependencyNode{
			{Variable: "session_token"},
			{Variable: "api_key", Dependencies: []string{"session_token"}},
		},
	})
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "stack payments")
	assert.Contains(t, result, "1. session_token")
	assert.Contains(t, result, "2. api_key")
	assert.Contains(t, result, "needs session_token")
}

func TestRenderInventoryTargets_MasksSensitiveConfig(t *testing.T) {
	targets := []pkgmodel.Target{
		{
			Label:  "router1",
			Stack:  "payments",
			Config: json.RawMessage(`{"host":"10.0.0.1","api_token":"very-secret"}`),
		},
	}

	result, err := RenderInventoryTargets(targets, 0)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "router1")
	assert.Contains(t, result, "host: 10.0.0.1")
	assert.Contains(t, result, "api_token: ****")
	assert.NotContains(t, result, "very-secret")
	assert.Contains(t, result, "Showing 1 of 1 total targets")
}

func TestRenderInventoryTemplates_MaxRows(t *testing.T) {
	now := time.Now()
	templates := []pkgmodel.Template{
		{Label: "a", Stack: "s", Text: "x", UpdatedAt: now},
		{Label: "b", Stack: "s", Structured: json.RawMessage(`{}`), UpdatedAt: now},
		{Label: "c", Stack: "s", Text: "y", UpdatedAt: now},
	}

	result, err := RenderInventoryTemplates(templates, 2)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "structured")
	assert.Contains(t, result, "Showing 2 of 3 total templates")
	assert.Contains(t, result, "--max-results 3")
}

func TestRenderInventoryStacks_Empty(t *testing.T) {
	result, err := RenderInventoryStacks(nil, 0)
	assert.NoError(t, err)
	assert.Contains(t, stripAnsiCodes(t, result), "No stacks found")
}

func TestRenderVariables(t *testing.T) {
	result, err := RenderVariables(&apimodel.VariablesResponse{
		Stack:     "payments",
		Target:    "router1",
		Variables: map[string]any{"region": "us-east-1", "port": float64(9090)},
	})
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "2 variables in target router1 of stack payments")
	assert.Contains(t, result, "region")
	assert.Contains(t, result, "us-east-1")
}

func TestRenderDiff(t *testing.T) {
	before := "line one\nline two\n"
	after := "line one\nline 2\n"

	result := stripAnsiCodes(t, RenderDiff(before, after))

	assert.Contains(t, result, "  line one")
	assert.Contains(t, result, "- line two")
	assert.Contains(t, result, "+ line 2")
}

func TestRenderDiff_IdenticalIsEmpty(t *testing.T) {
	assert.Empty(t, RenderDiff("same\n", "same\n"))
}

func TestRenderStats(t *testing.T) {
	stats := &apimodel.Stats{
		Version:        "0.3.0",
		AgentID:        "agent-1",
		Stacks:         2,
		Targets:        4,
		Templates:      3,
		FetchSpecs:     5,
		FetchAttempted: 10,
		FetchSucceeded: 9,
		FetchFailed:    1,
		System: &apimodel.SystemStats{
			CPUPercent:    12.5,
			MemoryUsedMB:  512,
			MemoryTotalMB: 2048,
			UptimeSeconds: 3700,
		},
	}

	result, err := RenderStats(stats)
	assert.NoError(t, err)

	result = stripAnsiCodes(t, result)

	assert.Contains(t, result, "Inventory")
	assert.Contains(t, result, "Fetches")
	assert.Contains(t, result, "Agent")
	assert.Contains(t, result, "0.3.0")
	assert.Contains(t, result, "512/2048 MB")
	assert.Contains(t, result, "1h 1m")
}

func TestRenderErrorMessage_MissingVariables(t *testing.T) {
	err := &apimodel.ErrorResponse[apimodel.MissingVariablesData]{
		ErrorType: apimodel.MissingVariables,
		Data:      apimodel.MissingVariablesData{Names: []string{"port", "region"}, TargetID: "router1"},
	}

	msg, renderErr := RenderErrorMessage(err)
	assert.NoError(t, renderErr)

	msg = stripAnsiCodes(t, msg)

	assert.Contains(t, msg, "render for target `router1` rejected")
	assert.Contains(t, msg, "port")
	assert.Contains(t, msg, "region")
	assert.Contains(t, msg, "stencil vars set")
}

func TestRenderErrorMessage_DependencyCycle(t *testing.T) {
	err := &apimodel.ErrorResponse[apimodel.DependencyCycleData]{
		ErrorType: apimodel.DependencyCycle,
		Data:      apimodel.DependencyCycleData{Variables: []string{"a", "b", "a"}},
	}

	msg, renderErr := RenderErrorMessage(err)
	assert.NoError(t, renderErr)

	msg = stripAnsiCodes(t, msg)

	assert.Contains(t, msg, "dependency cycle")
	assert.Contains(t, msg, "a -> b -> a")
}

func TestRenderErrorMessage_UnknownPassesThrough(t *testing.T) {
	err := assert.AnError

	msg, renderErr := RenderErrorMessage(err)
	assert.Empty(t, msg)
	assert.Equal(t, err, renderErr)
}
