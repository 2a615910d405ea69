// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package renderer

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/display"
)

type statsTable struct {
	Headline string
	Rows     [][]string
}

func RenderStats(stats *apimodel.Stats) (string, error) {
	var tables []statsTable

	tables = append(tables, statsTable{
		Headline: "Inventory",
		Rows: [][]string{
			{"Stacks", fmt.Sprintf("%d", stats.Stacks)},
			{"Targets", fmt.Sprintf("%d", stats.Targets)},
			{"Templates", fmt.Sprintf("%d", stats.Templates)},
			{"Fetch Specs", fmt.Sprintf("%d", stats.FetchSpecs)},
		},
	})

	failedColor := display.Green
	if stats.FetchFailed > 0 {
		failedColor = display.Red
	}
	tables = append(tables, statsTable{
		Headline: "Fetches",
		Rows: [][]string{
			{"Attempted", fmt.Sprintf("%d", stats.FetchAttempted)},
			{display.Green("Succeeded"), display.Green(fmt.Sprintf("%d", stats.FetchSucceeded))},
			{failedColor("Failed"), failedColor(fmt.Sprintf("%d", stats.FetchFailed))},
		},
	})

	agent := statsTable{
		Headline: "Agent",
		Rows: [][]string{
			{"Version", stats.Version},
			{"ID", stats.AgentID},
		},
	}
	if stats.System != nil {
		agent.Rows = append(agent.Rows,
			[]string{"CPU", fmt.Sprintf("%.1f%%", stats.System.CPUPercent)},
			[]string{"Memory", fmt.Sprintf("%d/%d MB", stats.System.MemoryUsedMB, stats.System.MemoryTotalMB)},
			[]string{"Uptime", formatUptime(stats.System.UptimeSeconds)})
	}
	tables = append(tables, agent)

	return renderTablesSideBySide(tables), nil
}

func formatUptime(seconds uint64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	if seconds < 86400 {
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
	return fmt.Sprintf("%dd %dh", seconds/86400, (seconds%86400)/3600)
}

func renderTablesSideBySide(tables []statsTable) string {
	var tableOutputs []string

	for _, table := range tables {
		var buf strings.Builder

		fmt.Fprintf(&buf, "%s\n", display.LightBlue(table.Headline))

		t := tablewriter.NewTable(&buf,
			tablewriter.WithMaxWidth(100),
			tablewriter.WithRowAutoWrap(tw.WrapBreak),
			tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
				Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On, ShowHeader: tw.On}},
			})))

		for _, row := range table.Rows {
			_ = t.Append(row)
		}

		_ = t.Render()

		tableOutputs = append(tableOutputs, buf.String())
	}

	return combineTablesSideBySide(tableOutputs)
}

func combineTablesSideBySide(tableOutputs []string) string {
	var buf strings.Builder

	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenRows:    tw.Off,
					BetweenColumns: tw.Off,
					ShowHeader:     tw.Off,
				},
				Lines: tw.Lines{
					ShowTop:    tw.Off,
					ShowBottom: tw.Off,
				},
			},
		})))

	var rows [][]string
	for _, tableOutput := range tableOutputs {
		lines := strings.Split(strings.TrimRight(tableOutput, "\n"), "\n")
		rows = append(rows, lines)
	}

	numColumns := 3
	numRows := (len(rows) + numColumns - 1) / numColumns

	for i := range numRows {
		var combinedRow []string
		for j := range numColumns {
			index := i*numColumns + j
			if index < len(rows) {
				combinedRow = append(combinedRow, strings.Join(rows[index], "\n"))
			} else {
				combinedRow = append(combinedRow, "")
			}
		}
		_ = table.Append(combinedRow)
	}

	_ = table.Render()

	// Strip the outer borders so the grid reads as free-standing tables.
	output := buf.String()
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "│") && strings.HasSuffix(l, "│") {
			lines[i] = strings.Trim(l, "│")
		}
	}

	return strings.Join(lines, "\n")
}
