// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

import "strings"

// FetchSpec declares an external API call that supplies one variable's value.
// Endpoint and Body may themselves embed {{name}} tokens; those dependencies
// must be resolvable before the call is issued. ResourceID references a
// resource descriptor (base URL + auth) owned by the HTTP proxy service.
type FetchSpec struct {
	Variable    string `json:"variable"`
	ResourceID  string `json:"resource_id"`
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	Body        string `json:"body,omitempty"`
	JSONPath    string `json:"json_path,omitempty"`
	Description string `json:"description,omitempty"`
	Stack       string `json:"stack,omitempty"`
}

// PatternText returns the operator-authored text a dependency scan runs over.
func (fs *FetchSpec) PatternText() string {
	if fs.Body == "" {
		return fs.Endpoint
	}
	return fs.Endpoint + "\n" + fs.Body
}

func (fs *FetchSpec) MethodOrDefault() string {
	if fs.Method == "" {
		return "GET"
	}
	return strings.ToUpper(fs.Method)
}
