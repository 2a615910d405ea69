// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package imconc tracks the agent's long-running components so shutdown can
// stop them as a unit.
package imconc

import "github.com/sourcegraph/conc"

// Routine is a component with its own lifecycle.
type Routine interface {
	Stop()
}

type ConcGroup struct {
	routines []Routine
	wg       *conc.WaitGroup
}

func NewConcGroup() *ConcGroup {
	return &ConcGroup{
		wg: &conc.WaitGroup{},
	}
}

func (c *ConcGroup) Add(routine Routine) *ConcGroup {
	c.routines = append(c.routines, routine)
	return c
}

func (c *ConcGroup) Go(fn func()) {
	c.wg.Go(fn)
}

func (c *ConcGroup) Stop() {
	for _, routine := range c.routines {
		routine.Stop()
	}
}

func (c *ConcGroup) Wait() {
	c.wg.Wait()
}
