// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

// Manifest is the file format `stencil push` consumes. Everything in it is
// upserted against the agent in dependency order: stack first, then targets,
// templates, fetch specs and stored variables.
type Manifest struct {
	Stack           Stack                     `json:"Stack"`
	Targets         []Target                  `json:"Targets,omitempty"`
	Templates       []Template                `json:"Templates,omitempty"`
	FetchSpecs      []FetchSpec               `json:"FetchSpecs,omitempty"`
	Shared          map[string]any            `json:"Shared,omitempty"`
	TargetVariables map[string]map[string]any `json:"TargetVariables,omitempty"`
}
