// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ScopeLayer identifies the source a variable value was resolved from.
// Precedence is fixed: ManualOverride > PerTarget > Shared > Test.
type ScopeLayer string

const (
	LayerManualOverride ScopeLayer = "ManualOverride"
	LayerPerTarget      ScopeLayer = "PerTarget"
	LayerShared         ScopeLayer = "Shared"
	LayerTest           ScopeLayer = "Test"
)

var variableNameRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidVariableName reports whether s is a legal placeholder name.
// Names are case-sensitive and unique within a scope.
func ValidVariableName(s string) bool {
	return variableNameRE.MatchString(s)
}

// ResolutionRequest asks the resolver for one variable on one target.
// An empty TargetID means the shared scope only.
type ResolutionRequest struct {
	Variable string `json:"Variable"`
	TargetID string `json:"TargetId,omitempty"`
}

// ResolvedValue is the immutable outcome of resolving one (variable, target)
// pair. It is recomputed on every resolution pass and never persisted.
type ResolvedValue struct {
	Variable string     `json:"Variable"`
	Value    any        `json:"Value"`
	Source   ScopeLayer `json:"Source"`
	TargetID string     `json:"TargetId,omitempty"`
}

// StringValue renders the value for literal substitution into template text.
func (rv ResolvedValue) StringValue() string {
	switch val := rv.Value.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		// JSON numbers decode to float64; keep integers free of a trailing .0
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
