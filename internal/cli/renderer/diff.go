// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package renderer

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/netgrid-labs/stencil/internal/cli/display"
)

// RenderDiff produces a colored line diff between the previously written
// output and a freshly rendered one. Returns the empty string when the two
// are identical so callers can skip the write.
func RenderDiff(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		for _, line := range splitDiffLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				out.WriteString(display.Redf("- %s\n", line))
			case diffmatchpatch.DiffInsert:
				out.WriteString(display.Greenf("+ %s\n", line))
			case diffmatchpatch.DiffEqual:
				out.WriteString(display.Greyf("  %s\n", line))
			}
		}
	}

	return out.String()
}

func splitDiffLines(chunk string) []string {
	lines := strings.Split(chunk, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
