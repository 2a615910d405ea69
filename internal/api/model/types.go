// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package model holds the agent's REST wire types. Everything here is shared
// between the server and the CLI client, nothing here reaches the resolution
// core.
package model

import (
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// RenderRequest asks the agent to materialize one template for a set of
// targets. Overrides become the manual layer for this pass only; TestValues
// feed the test layer and never participate in fetch pre-flight.
type RenderRequest struct {
	Stack      string         `json:"Stack"`
	Template   string         `json:"Template"`
	Targets    []string       `json:"Targets,omitempty"`
	Overrides  map[string]any `json:"Overrides,omitempty"`
	TestValues map[string]any `json:"TestValues,omitempty"`
}

type RenderResponse struct {
	Stack    string         `json:"Stack"`
	Template string         `json:"Template"`
	Results  []TargetResult `json:"Results"`
}

// TargetResult is the per-target outcome. Text is only meaningful when Error
// is empty; Failures lists fetches that failed even when the render as a
// whole succeeded through another layer.
type TargetResult struct {
	Target   string          `json:"Target"`
	Text     string          `json:"Text,omitempty"`
	Values   []ResolvedValue `json:"Values,omitempty"`
	Failures []FetchFailure  `json:"Failures,omitempty"`
	Error    string          `json:"Error,omitempty"`
}

type ResolvedValue struct {
	Variable string `json:"Variable"`
	Value    any    `json:"Value"`
	Source   string `json:"Source"`
}

type FetchFailure struct {
	Variable string `json:"Variable"`
	Error    string `json:"Error"`
}

// ScanResponse lists the distinct variable names a template references, in
// sorted order.
type ScanResponse struct {
	Template  string   `json:"Template"`
	Variables []string `json:"Variables"`
}

// DependencyNode is one fetch spec plus the variables its call pattern
// references. Order reflects the planned fetch sequence.
type DependencyNode struct {
	Variable     string   `json:"Variable"`
	Dependencies []string `json:"Dependencies,omitempty"`
}

type DependenciesResponse struct {
	Stack string           `json:"Stack"`
	Order []DependencyNode `json:"Order"`
}

// SetVariableRequest writes one stored variable. Target empty means the
// shared layer, otherwise the per-target layer of that target.
type SetVariableRequest struct {
	Stack  string `json:"Stack"`
	Target string `json:"Target,omitempty"`
	Name   string `json:"Name"`
	Value  any    `json:"Value"`
}

type VariablesResponse struct {
	Stack     string         `json:"Stack"`
	Target    string         `json:"Target,omitempty"`
	Variables map[string]any `json:"Variables"`
}

type TemplatesResponse struct {
	Templates []pkgmodel.Template `json:"Templates"`
}

type TargetsResponse struct {
	Targets []pkgmodel.Target `json:"Targets"`
}

type StacksResponse struct {
	Stacks []pkgmodel.Stack `json:"Stacks"`
}

type FetchSpecsResponse struct {
	FetchSpecs []pkgmodel.FetchSpec `json:"FetchSpecs"`
}

// Stats mirrors the agent stats endpoint payload.
type Stats struct {
	Version        string       `json:"Version"`
	AgentID        string       `json:"AgentId"`
	Stacks         int          `json:"Stacks"`
	Targets        int          `json:"Targets"`
	Templates      int          `json:"Templates"`
	FetchSpecs     int          `json:"FetchSpecs"`
	FetchAttempted int64        `json:"FetchAttempted"`
	FetchSucceeded int64        `json:"FetchSucceeded"`
	FetchFailed    int64        `json:"FetchFailed"`
	System         *SystemStats `json:"System,omitempty"`
}

type SystemStats struct {
	CPUPercent    float64 `json:"CpuPercent"`
	MemoryUsedMB  uint64  `json:"MemoryUsedMb"`
	MemoryTotalMB uint64  `json:"MemoryTotalMb"`
	UptimeSeconds uint64  `json:"UptimeSeconds"`
}
