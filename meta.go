// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package stencil

var Version = "0.0.0"

const BinaryRepository = "https://hub.netgrid.dev/binaries"

const DefaultInstallPrefix = "/opt/netgrid"
const DefaultInstallPath = "/opt/netgrid/stencil"
