// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package display

const (
	Tool       = "stencil"
	BannerBlue = `
  ooooo  oooooooo ooooooo o0o    oo  ooooo0 ooo0o0o
 0o        o0o    oo      0o0o   oo 0o        o0o
  o0oo     o0o    ooooo   oo 0o  oo oo        o0o
     oo0   o0o    oo      oo  0o oo oo        o0o
 ooooo     o0o    ooooooo oo   0ooo  o0ooo0 ooo0o0o
`
	BannerGold = `
  o0o   oo
  0o    oo
  o0    oo
  oo    oo
  o0ooo oooo0    vversion
`
	DocRoot = "https://docs.netgrid.dev/stencil/latest"
)
