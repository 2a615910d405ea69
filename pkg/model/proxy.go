// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

import "encoding/json"

// ProxyRequest is the wire form of a call to the HTTP proxy service.
// Endpoint and Body are fully substituted before the request is built; the
// Variables field is a compatibility echo for older proxy versions and must
// never drive a second substitution pass.
type ProxyRequest struct {
	ResourceID string            `json:"resource_id"`
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	Body       string            `json:"body,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// ProxyResponse is the proxy's envelope around the remote call's outcome.
// Raw holds the decoded envelope bytes; path expressions are applied to it.
type ProxyResponse struct {
	Success    bool            `json:"success"`
	Status     int             `json:"status"`
	StatusText string          `json:"statusText,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}
