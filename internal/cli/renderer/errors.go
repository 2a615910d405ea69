// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package renderer

import (
	"fmt"
	"strings"

	"github.com/ddddddO/gtree"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/display"
)

// RenderErrorMessage turns a typed agent error into operator guidance. The
// original error is returned unchanged when no specific rendering applies.
func RenderErrorMessage(err error) (string, error) {
	var msg string

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.MissingVariablesData]); ok {
		rendered, renderErr := renderMissingVariablesError(&errResp.Data)
		if renderErr != nil {
			return "", renderErr
		}
		msg = rendered
	}

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.DependencyCycleData]); ok {
		msg = display.Red("render rejected because the fetch specs form a dependency cycle:\n\n") +
			fmt.Sprintf("  %s\n\n", display.LightBlue(strings.Join(errResp.Data.Variables, " -> "))) +
			display.Gold("Break the cycle by storing one of these variables in the shared or per-target scope,\n"+
				"or by removing the reference from a fetch spec's endpoint or body.\n")
	}

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.ExtractionFailureData]); ok {
		msg = display.Redf("extraction for variable `%s` failed.\n\n", errResp.Data.Variable) +
			fmt.Sprintf("  path:   %s\n  reason: %s\n\n", errResp.Data.Path, errResp.Data.Reason) +
			display.Gold("Check the fetch spec's json path against the payload the endpoint actually returns.\n")
	}

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.ProxyFailureData]); ok {
		msg = display.Redf("fetch for variable `%s` failed: proxy returned status %d: %s\n",
			errResp.Data.Variable, errResp.Data.Status, errResp.Data.Message)
	}

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.NotFoundData]); ok {
		msg = display.Redf("%s `%s` was not found.\n", errResp.Data.Kind, errResp.Data.Label) +
			display.Goldf("Run `stencil inventory %ss` to list what the agent knows about.\n", errResp.Data.Kind)
	}

	if errResp, ok := err.(*apimodel.ErrorResponse[apimodel.InvalidVariableNameData]); ok {
		msg = display.Redf("`%s` is not a legal variable name.\n", errResp.Data.Name) +
			display.Gold("Names may only contain letters, digits and underscores.\n")
	}

	if msg == "" {
		return "", err
	}

	return msg, nil
}

func renderMissingVariablesError(data *apimodel.MissingVariablesData) (string, error) {
	headline := display.Red("render rejected because the following variables have no value and no fetch spec:")
	if data.TargetID != "" {
		headline = display.Redf("render for target `%s` rejected because the following variables have no value and no fetch spec:", data.TargetID)
	}

	root := gtree.NewRoot(headline)
	for _, name := range data.Names {
		root.Add(name)
	}

	var buf strings.Builder
	if err := gtree.OutputFromRoot(&buf, root); err != nil {
		return "", err
	}

	buf.WriteString("\n")
	buf.WriteString(display.Gold("Store a value with `stencil vars set`, or register a fetch spec that supplies one.\n"))

	return buf.String(), nil
}
