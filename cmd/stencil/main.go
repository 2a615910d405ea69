// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package main

import (
	"github.com/netgrid-labs/stencil/internal/cli"
	"github.com/netgrid-labs/stencil/internal/logging"
)

func main() {
	logging.SetupInitialLogging()
	cli.Start()
}
