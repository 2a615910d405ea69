// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package materialize drives one resolution pass: scan the template, plan
// which names need a fetch per target, run the fetches, then substitute every
// resolved value into the template body. Each target succeeds or fails on its
// own; a missing value is a hard per-target error, never an implicit empty
// substitution.
package materialize

import (
	"context"
	"errors"
	"sort"

	"github.com/sourcegraph/conc"

	"github.com/netgrid-labs/stencil/internal/fetch"
	"github.com/netgrid-labs/stencil/internal/scan"
	"github.com/netgrid-labs/stencil/internal/scope"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// Request describes one resolution pass over one template. TargetIDs may be
// empty to materialize against the shared scope only. Overrides are the
// manual layer for this pass.
type Request struct {
	Template  pkgmodel.Template
	TargetIDs []string
	Overrides map[string]any
}

// Result is the per-target outcome. Err is set when any required name failed
// to resolve for this target; Text is only valid when Err is nil.
type Result struct {
	TargetID string
	Text     string
	Values   []pkgmodel.ResolvedValue
	Failures []fetch.Failure
	Err      error
}

// Run materializes the request's template for every target. The snapshot is
// read-only for the whole pass; values produced here are discarded with the
// resolver when the pass completes.
func Run(ctx context.Context, snap *scope.Snapshot, caller fetch.Caller, req Request) []Result {
	resolver := scope.NewResolver(snap, req.Overrides)
	orchestrator := fetch.NewOrchestrator(caller, resolver)
	return RunWithOrchestrator(ctx, resolver, orchestrator, req)
}

// RunWithOrchestrator is Run with a caller-owned orchestrator, so the agent
// can keep one set of fetch counters across passes.
func RunWithOrchestrator(ctx context.Context, resolver *scope.Resolver, orchestrator *fetch.Orchestrator, req Request) []Result {
	body := req.Template.Body()
	names := scan.Scan(body)

	targets := req.TargetIDs
	if len(targets) == 0 {
		targets = []string{""}
	}

	results := make([]Result, len(targets))

	var wg conc.WaitGroup
	for i, targetID := range targets {
		wg.Go(func() {
			results[i] = materializeTarget(ctx, resolver, orchestrator, body, names, targetID)
		})
	}
	wg.Wait()

	return results
}

func materializeTarget(ctx context.Context, resolver *scope.Resolver, orchestrator *fetch.Orchestrator, body string, names []string, targetID string) Result {
	result := Result{TargetID: targetID}

	order, err := resolver.Plan(names, targetID)
	if err != nil {
		result.Err = err
		return result
	}

	if len(order) > 0 {
		outcome := orchestrator.Run(ctx, map[string][]string{targetID: order})[targetID]
		result.Failures = outcome.Failures
		result.Values = append(result.Values, outcome.Resolved...)
	}

	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		rv, err := resolver.Resolve(name, targetID)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		values[name] = rv.StringValue()
		result.Values = appendValue(result.Values, rv)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		result.Err = &scope.MissingVariableError{Names: missing, TargetID: targetID}
		return result
	}

	result.Text = scan.Substitute(body, values)
	return result
}

// appendValue keeps Values free of duplicates when a fetched value is also
// re-resolved during substitution.
func appendValue(values []pkgmodel.ResolvedValue, rv pkgmodel.ResolvedValue) []pkgmodel.ResolvedValue {
	for _, v := range values {
		if v.Variable == rv.Variable && v.TargetID == rv.TargetID {
			return values
		}
	}
	return append(values, rv)
}

// FirstError returns the first per-target error, if any. Useful for exit
// codes; callers still report each target individually.
func FirstError(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
