// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package scope resolves variable names against layered value sources with
// fixed precedence: manual overrides for the current pass, per-target stored
// values, shared stack-level values, then ad-hoc test values. Values fetched
// from external APIs are written back into the per-target or shared layer for
// the remainder of the pass.
package scope

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/netgrid-labs/stencil/internal/scan"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// Snapshot is the read-only view of all stored variable sources a resolution
// pass works from. It is built once at the start of a pass and never mutated,
// so every component sees the same data.
type Snapshot struct {
	Shared     map[string]any
	PerTarget  map[string]map[string]any
	Test       map[string]any
	FetchSpecs map[string]pkgmodel.FetchSpec
}

// MissingVariableError lists the exact names that could not be resolved for
// one target. The resolver never silently substitutes an empty string.
type MissingVariableError struct {
	Names    []string
	TargetID string
}

func (e *MissingVariableError) Error() string {
	if e.TargetID == "" {
		return fmt.Sprintf("unresolved variables: %s", strings.Join(e.Names, ", "))
	}
	return fmt.Sprintf("unresolved variables for target %s: %s", e.TargetID, strings.Join(e.Names, ", "))
}

// DependencyCycleError reports a cycle in the fetch dependency graph.
type DependencyCycleError struct {
	Names []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("fetch dependency cycle involving: %s", strings.Join(e.Names, ", "))
}

// Resolver layers one snapshot with per-pass manual overrides and the values
// written back by completed fetches. Safe for concurrent use: fetches for
// independent targets run in parallel.
type Resolver struct {
	snap      *Snapshot
	overrides map[string]any

	mu            sync.RWMutex
	fetchedShared map[string]any
	fetchedTarget map[string]map[string]any
}

func NewResolver(snap *Snapshot, overrides map[string]any) *Resolver {
	if snap == nil {
		snap = &Snapshot{}
	}
	return &Resolver{
		snap:          snap,
		overrides:     overrides,
		fetchedShared: make(map[string]any),
		fetchedTarget: make(map[string]map[string]any),
	}
}

func (r *Resolver) Snapshot() *Snapshot {
	return r.snap
}

// FetchSpec returns the fetch spec backing name, if any.
func (r *Resolver) FetchSpec(name string) (pkgmodel.FetchSpec, bool) {
	fs, ok := r.snap.FetchSpecs[name]
	return fs, ok
}

// Resolve returns the value for name on targetID from the highest-precedence
// layer holding it, or a MissingVariableError naming it.
func (r *Resolver) Resolve(name, targetID string) (pkgmodel.ResolvedValue, error) {
	if rv, ok := r.lookup(name, targetID, true); ok {
		return rv, nil
	}
	return pkgmodel.ResolvedValue{}, &MissingVariableError{Names: []string{name}, TargetID: targetID}
}

// Resolvable reports whether name resolves for targetID through any layer.
func (r *Resolver) Resolvable(name, targetID string) bool {
	_, ok := r.lookup(name, targetID, true)
	return ok
}

// ResolvableForFetch reports whether name can satisfy a fetch dependency for
// targetID. Fetch pre-flight considers manual overrides, per-target and
// shared values (including completed fetch write-backs) but not the test
// layer.
func (r *Resolver) ResolvableForFetch(name, targetID string) bool {
	_, ok := r.lookup(name, targetID, false)
	return ok
}

func (r *Resolver) lookup(name, targetID string, includeTest bool) (pkgmodel.ResolvedValue, bool) {
	if v, ok := r.overrides[name]; ok {
		return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerManualOverride, TargetID: targetID}, true
	}

	if targetID != "" {
		if v, ok := r.snap.PerTarget[targetID][name]; ok {
			return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerPerTarget, TargetID: targetID}, true
		}
		r.mu.RLock()
		v, ok := r.fetchedTarget[targetID][name]
		r.mu.RUnlock()
		if ok {
			return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerPerTarget, TargetID: targetID}, true
		}
	}

	if v, ok := r.snap.Shared[name]; ok {
		return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerShared, TargetID: targetID}, true
	}
	r.mu.RLock()
	v, ok := r.fetchedShared[name]
	r.mu.RUnlock()
	if ok {
		return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerShared, TargetID: targetID}, true
	}

	if includeTest {
		if v, ok := r.snap.Test[name]; ok {
			return pkgmodel.ResolvedValue{Variable: name, Value: v, Source: pkgmodel.LayerTest, TargetID: targetID}, true
		}
	}

	return pkgmodel.ResolvedValue{}, false
}

// StoreFetched records a completed fetch's value, scoped to targetID when
// present, else to the shared layer. Only successful fetches call this; a
// concurrent write to the same key is last-writer-wins since both writers
// computed from identical inputs.
func (r *Resolver) StoreFetched(name, targetID string, value any) pkgmodel.ResolvedValue {
	r.mu.Lock()
	defer r.mu.Unlock()

	if targetID != "" {
		if r.fetchedTarget[targetID] == nil {
			r.fetchedTarget[targetID] = make(map[string]any)
		}
		r.fetchedTarget[targetID][name] = value
		return pkgmodel.ResolvedValue{Variable: name, Value: value, Source: pkgmodel.LayerPerTarget, TargetID: targetID}
	}

	r.fetchedShared[name] = value
	return pkgmodel.ResolvedValue{Variable: name, Value: value, Source: pkgmodel.LayerShared}
}

// Dependencies returns the distinct variable names a fetch spec's endpoint
// and body patterns reference.
func (r *Resolver) Dependencies(spec pkgmodel.FetchSpec) []string {
	return scan.Scan(spec.PatternText())
}

// Preflight validates that every dependency of spec is already resolvable for
// targetID. It fails with exactly the unresolved names, so a request that is
// guaranteed to fail locally never reaches the proxy.
func (r *Resolver) Preflight(spec pkgmodel.FetchSpec, targetID string) error {
	var missing []string
	for _, dep := range r.Dependencies(spec) {
		if !r.ResolvableForFetch(dep, targetID) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &MissingVariableError{Names: missing, TargetID: targetID}
	}
	return nil
}

// Plan classifies the required names for targetID and returns the ones that
// need a fetch, in dependency order. Names resolvable through the layers need
// no fetch; names with neither a value nor a fetch spec fail the plan with a
// MissingVariableError listing all of them.
func (r *Resolver) Plan(required []string, targetID string) ([]string, error) {
	needed := make(map[string]struct{})
	var missing []string

	var classify func(name string)
	classify = func(name string) {
		if _, ok := needed[name]; ok {
			return
		}
		if r.Resolvable(name, targetID) {
			return
		}
		spec, ok := r.snap.FetchSpecs[name]
		if !ok {
			missing = append(missing, name)
			return
		}
		needed[name] = struct{}{}
		for _, dep := range r.Dependencies(spec) {
			if r.ResolvableForFetch(dep, targetID) {
				continue
			}
			classify(dep)
		}
	}

	for _, name := range required {
		classify(name)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		missing = dedupe(missing)
		return nil, &MissingVariableError{Names: missing, TargetID: targetID}
	}

	return r.topoSort(needed, targetID)
}

// topoSort orders the fetch-needed names so every dependency fetch completes
// before the spec that consumes it (Kahn's algorithm, deterministic order).
func (r *Resolver) topoSort(needed map[string]struct{}, targetID string) ([]string, error) {
	indegree := make(map[string]int, len(needed))
	dependents := make(map[string][]string, len(needed))

	for name := range needed {
		indegree[name] = 0
	}
	for name := range needed {
		spec := r.snap.FetchSpecs[name]
		for _, dep := range r.Dependencies(spec) {
			if _, ok := needed[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		next := dependents[name]
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(needed) {
		var cyclic []string
		for name, deg := range indegree {
			if deg > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, &DependencyCycleError{Names: cyclic}
	}

	return order, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
