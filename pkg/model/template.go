// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

import (
	"encoding/json"
	"time"
)

// Template is an operator-authored configuration template. Text carries the
// raw template; Structured, when set, carries a structured configuration that
// is serialized before scanning and substitution.
type Template struct {
	ID          string          `json:"ID,omitempty"`
	Label       string          `json:"Label"`
	Stack       string          `json:"Stack"`
	Description string          `json:"Description,omitempty"`
	Text        string          `json:"Text,omitempty"`
	Structured  json.RawMessage `json:"Structured,omitempty"`
	CreatedAt   time.Time       `json:"CreatedAt,omitempty"`
	UpdatedAt   time.Time       `json:"UpdatedAt,omitempty"`
}

// Body returns the text a resolution pass scans and substitutes into.
// A structured template is handled through its serialized form.
func (t *Template) Body() string {
	if len(t.Structured) > 0 {
		return string(t.Structured)
	}
	return t.Text
}

// Stack groups templates, targets and shared variables.
type Stack struct {
	ID          string    `json:"ID,omitempty"`
	Label       string    `json:"Label"`
	Description string    `json:"Description,omitempty"`
	CreatedAt   time.Time `json:"CreatedAt,omitempty"`
	UpdatedAt   time.Time `json:"UpdatedAt,omitempty"`
}

// Target is a deployment target a template is materialized for. Config is an
// opaque transport descriptor consumed by the deployment executor, not by the
// resolution core.
type Target struct {
	ID          string          `json:"ID,omitempty"`
	Label       string          `json:"Label"`
	Stack       string          `json:"Stack"`
	Description string          `json:"Description,omitempty"`
	Config      json.RawMessage `json:"Config,omitempty"`
	CreatedAt   time.Time       `json:"CreatedAt,omitempty"`
	UpdatedAt   time.Time       `json:"UpdatedAt,omitempty"`
}
