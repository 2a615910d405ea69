// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

// APIError is the stable wire discriminator for failure responses. Clients
// switch on it instead of parsing messages.
type APIError string

const (
	MissingVariables    APIError = "MissingVariables"
	DependencyCycle     APIError = "DependencyCycle"
	ExtractionFailure   APIError = "ExtractionFailure"
	ProxyFailure        APIError = "ProxyFailure"
	NotFound            APIError = "NotFound"
	InvalidVariableName APIError = "InvalidVariableName"
)

type ErrorResponse[T any] struct {
	ErrorType APIError `json:"error"`
	Data      T        `json:"data"`
}

// Error allows ErrorResponse satisfy the error interface
func (e ErrorResponse[T]) Error() string {
	return string(e.ErrorType)
}

// MissingVariablesData names exactly which variables could not be satisfied
// for which target. The names are sorted and deduplicated server-side.
type MissingVariablesData struct {
	Names    []string `json:"Names"`
	TargetID string   `json:"TargetID,omitempty"`
}

type DependencyCycleData struct {
	Variables []string `json:"Variables"`
}

type ExtractionFailureData struct {
	Variable string `json:"Variable"`
	Path     string `json:"Path"`
	Reason   string `json:"Reason"`
}

type ProxyFailureData struct {
	Variable string `json:"Variable"`
	Status   int    `json:"Status"`
	Message  string `json:"Message"`
}

type NotFoundData struct {
	Kind  string `json:"Kind"`
	Label string `json:"Label"`
}

type InvalidVariableNameData struct {
	Name string `json:"Name"`
}
