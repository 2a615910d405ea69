// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package renderer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ddddddO/gtree"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/tidwall/gjson"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/display"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

func newTable(buf *strings.Builder) *tablewriter.Table {
	return tablewriter.NewTable(buf,
		tablewriter.WithRowAutoWrap(tw.WrapBreak),
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On, ShowHeader: tw.On}},
		})))
}

func coloredSource(source string) string {
	switch source {
	case string(pkgmodel.LayerManualOverride):
		return display.Gold(source)
	case string(pkgmodel.LayerPerTarget):
		return display.Green(source)
	case string(pkgmodel.LayerShared):
		return display.LightBlue(source)
	case string(pkgmodel.LayerTest):
		return display.Grey(source)
	}
	return source
}

// RenderRenderResponse renders the outcome of a render pass, one section per
// target. Resolved values are shown as a table; the materialized text follows
// untouched so it can be piped or copied.
func RenderRenderResponse(resp *apimodel.RenderResponse, showText bool) (string, error) {
	var out strings.Builder

	for i, result := range resp.Results {
		if i > 0 {
			out.WriteString("\n")
		}

		if result.Error != "" {
			out.WriteString(display.Redf("target %s failed: %s\n", result.Target, result.Error))
			continue
		}

		out.WriteString(display.Greenf("target %s", result.Target))
		out.WriteString(display.Greyf(" (template %s, stack %s)\n", resp.Template, resp.Stack))

		values, err := RenderResolvedValues(result.Values)
		if err != nil {
			return "", err
		}
		out.WriteString(values)

		for _, failure := range result.Failures {
			out.WriteString(display.Goldf("fetch for `%s` failed, value served from a stored layer: %s\n",
				failure.Variable, failure.Error))
		}

		if showText {
			out.WriteString("\n")
			out.WriteString(result.Text)
			if !strings.HasSuffix(result.Text, "\n") {
				out.WriteString("\n")
			}
		}
	}

	if len(resp.Results) == 0 {
		return display.Gold("No targets rendered.\n"), nil
	}

	return out.String(), nil
}

func RenderResolvedValues(values []apimodel.ResolvedValue) (string, error) {
	if len(values) == 0 {
		return display.Grey("template references no variables\n"), nil
	}

	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Variable"), "Value", "Source")

	data := make([][]string, len(values))
	for i, value := range values {
		data[i] = []string{
			display.LightBlue(value.Variable),
			fmt.Sprintf("%v", value.Value),
			coloredSource(value.Source),
		}
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting resolved values: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering resolved values: %v", err)
	}

	return buf.String(), nil
}

// RenderScan lists the variable names a template references.
func RenderScan(resp *apimodel.ScanResponse) (string, error) {
	if len(resp.Variables) == 0 {
		return display.Gold("No variables referenced.\n"), nil
	}

	root := gtree.NewRoot(display.LightBluef("%s", resp.Template) + display.Greyf(" references %d variables", len(resp.Variables)))
	for _, name := range resp.Variables {
		root.Add(name)
	}

	var buf strings.Builder
	if err := gtree.OutputFromRoot(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDependencies renders the planned fetch order as a tree. Nodes appear
// in issue order; a node's children are the variables its call pattern needs
// resolved first.
func RenderDependencies(resp *apimodel.DependenciesResponse) (string, error) {
	if len(resp.Order) == 0 {
		return display.Gold("No fetches planned, every variable is satisfied from stored scope.\n"), nil
	}

	root := gtree.NewRoot(display.LightBluef("stack %s", resp.Stack) + display.Greyf(" fetch order (%d calls)", len(resp.Order)))
	for i, node := range resp.Order {
		n := root.Add(fmt.Sprintf("%d. %s", i+1, display.Green(node.Variable)))
		for _, dep := range node.Dependencies {
			n.Add(display.Grey("needs ") + dep)
		}
	}

	var buf strings.Builder
	if err := gtree.OutputFromRoot(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderInventoryStacks renders a list of stacks in a table format
func RenderInventoryStacks(stacks []pkgmodel.Stack, maxRows int) (string, error) {
	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Label"), "Description", "Created")

	effectiveMaxRows := capRows(len(stacks), maxRows)
	data := make([][]string, effectiveMaxRows)
	for i := 0; i < effectiveMaxRows; i++ {
		stack := stacks[i]
		data[i] = []string{
			display.LightBlue(stack.Label),
			stack.Description,
			stack.CreatedAt.Format("01/02/2006 3:04PM"),
		}
	}

	return finishInventoryTable(table, &buf, data, len(stacks), maxRows, "stacks")
}

// RenderInventoryTargets renders a list of targets in a table format
func RenderInventoryTargets(targets []pkgmodel.Target, maxRows int) (string, error) {
	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Label"), "Stack", "Description", "Config")

	effectiveMaxRows := capRows(len(targets), maxRows)
	data := make([][]string, effectiveMaxRows)
	for i := 0; i < effectiveMaxRows; i++ {
		target := targets[i]
		data[i] = []string{
			display.LightBlue(target.Label),
			target.Stack,
			target.Description,
			formatTargetConfig(target.Config),
		}
	}

	return finishInventoryTable(table, &buf, data, len(targets), maxRows, "targets")
}

func RenderInventoryTemplates(templates []pkgmodel.Template, maxRows int) (string, error) {
	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Label"), "Stack", "Kind", "Description", "Updated")

	effectiveMaxRows := capRows(len(templates), maxRows)
	data := make([][]string, effectiveMaxRows)
	for i := 0; i < effectiveMaxRows; i++ {
		tmpl := templates[i]
		kind := "text"
		if len(tmpl.Structured) > 0 {
			kind = "structured"
		}
		data[i] = []string{
			display.LightBlue(tmpl.Label),
			tmpl.Stack,
			kind,
			tmpl.Description,
			tmpl.UpdatedAt.Format("01/02/2006 3:04PM"),
		}
	}

	return finishInventoryTable(table, &buf, data, len(templates), maxRows, "templates")
}

func RenderInventoryFetchSpecs(specs []pkgmodel.FetchSpec, maxRows int) (string, error) {
	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Variable"), "Resource", "Method", "Endpoint", "Path")

	effectiveMaxRows := capRows(len(specs), maxRows)
	data := make([][]string, effectiveMaxRows)
	for i := 0; i < effectiveMaxRows; i++ {
		spec := specs[i]
		data[i] = []string{
			display.LightBlue(spec.Variable),
			spec.ResourceID,
			spec.MethodOrDefault(),
			spec.Endpoint,
			spec.JSONPath,
		}
	}

	return finishInventoryTable(table, &buf, data, len(specs), maxRows, "fetch specs")
}

func RenderVariables(resp *apimodel.VariablesResponse) (string, error) {
	scope := "shared scope"
	if resp.Target != "" {
		scope = fmt.Sprintf("target %s", resp.Target)
	}

	if len(resp.Variables) == 0 {
		return display.Goldf("No variables stored for %s of stack %s.\n", scope, resp.Stack), nil
	}

	var buf strings.Builder
	table := newTable(&buf)
	table.Header(display.LightBlue("Name"), "Value")

	names := make([]string, 0, len(resp.Variables))
	for name := range resp.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make([][]string, len(names))
	for i, name := range names {
		data[i] = []string{display.LightBlue(name), fmt.Sprintf("%v", resp.Variables[name])}
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting variables: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering variables: %v", err)
	}

	header := display.Greyf("%d variables in %s of stack ", len(names), scope) + display.LightBlue(resp.Stack) + "\n"
	return header + buf.String(), nil
}

func capRows(total, maxRows int) int {
	if maxRows > 0 && maxRows < total {
		return maxRows
	}
	return total
}

func finishInventoryTable(table *tablewriter.Table, buf *strings.Builder, data [][]string, total, maxRows int, noun string) (string, error) {
	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting %s: %v", noun, err)
	}

	if total == 0 {
		return display.Goldf("No %s found.\n", noun), nil
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering %s: %v", noun, err)
	}

	summary := fmt.Sprintf("\n%s Showing %d of %d total %s",
		display.Gold("Summary:"),
		len(data),
		total,
		noun)

	if maxRows > 0 && total > maxRows {
		summary += fmt.Sprintf(" (use --max-results %d to see all)", total)
	}

	return buf.String() + summary + "\n", nil
}

// formatTargetConfig renders a target's transport config one key per line,
// masking fields that look like credentials.
func formatTargetConfig(config []byte) string {
	if len(config) == 0 {
		return ""
	}

	parsed := gjson.ParseBytes(config)
	if !parsed.IsObject() {
		return string(config)
	}

	var lines []string
	parsed.ForEach(func(key, value gjson.Result) bool {
		rendered := value.String()
		if isSensitiveKey(key.String()) {
			rendered = "****"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", key.String(), rendered))
		return true
	})
	sort.Strings(lines)

	return strings.Join(lines, "\n")
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, fragment := range []string{"secret", "password", "token", "key", "credential"} {
		if strings.Contains(k, fragment) {
			return true
		}
	}
	return false
}
