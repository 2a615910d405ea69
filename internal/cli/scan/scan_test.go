// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build unit

package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netgrid-labs/stencil/internal/cli/printer"
)

func TestValidateScanOptions(t *testing.T) {
	t.Run("needs a file or a stored template", func(t *testing.T) {
		err := validateScanOptions(&ScanOptions{OutputConsumer: printer.ConsumerHuman})
		assert.Error(t, err)
	})

	t.Run("file and stored template are exclusive", func(t *testing.T) {
		err := validateScanOptions(&ScanOptions{
			File:           "a.tmpl",
			Stack:          "s",
			Template:       "t",
			OutputConsumer: printer.ConsumerHuman,
		})
		assert.Error(t, err)
	})

	t.Run("stored template needs a stack", func(t *testing.T) {
		err := validateScanOptions(&ScanOptions{Template: "t", OutputConsumer: printer.ConsumerHuman})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "--stack")
	})

	t.Run("accepts a plain file scan", func(t *testing.T) {
		err := validateScanOptions(&ScanOptions{File: "a.tmpl", OutputConsumer: printer.ConsumerHuman})
		assert.NoError(t, err)
	})
}
