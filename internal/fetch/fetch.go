// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package fetch executes the API-backed side of a resolution pass: it
// substitutes known values into a fetch spec, delegates the call to the HTTP
// proxy service, extracts the result with a path expression and writes the
// value back into the resolver. Fetches for distinct (variable, target) pairs
// are independent; one failure never aborts the others.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netgrid-labs/stencil/internal/extract"
	"github.com/netgrid-labs/stencil/internal/scan"
	"github.com/netgrid-labs/stencil/internal/scope"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("stencil/fetch")
}

// Caller is the HTTP proxy collaborator. It performs the outbound network
// call described by req and returns the decoded envelope. The caller performs
// no substitution: req arrives fully resolved.
type Caller interface {
	Call(ctx context.Context, req *pkgmodel.ProxyRequest) (*pkgmodel.ProxyResponse, error)
}

// ProxyError reports a transport, auth or remote-side failure surfaced by the
// proxy. No retry happens here; retrying is a caller decision.
type ProxyError struct {
	Status  int
	Message string
}

func (e *ProxyError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("proxy call failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("proxy call failed: %s", e.Message)
}

// Failure ties one fetch error to the exact (variable, target) pair it
// belongs to. Aggregate booleans are never enough on their own.
type Failure struct {
	Variable string
	TargetID string
	Err      error
}

// Counters accumulates fetch outcomes for the stats endpoint.
type Counters struct {
	Attempted atomic.Int64
	Succeeded atomic.Int64
	Failed    atomic.Int64
}

type Orchestrator struct {
	caller   Caller
	resolver *scope.Resolver
	Counters Counters
}

func NewOrchestrator(caller Caller, resolver *scope.Resolver) *Orchestrator {
	return &Orchestrator{caller: caller, resolver: resolver}
}

// Fetch resolves one variable through its fetch spec for one target. On
// success the value is written back into the resolver, scoped to targetID if
// present, else shared. A canceled context never mutates resolver state.
func (o *Orchestrator) Fetch(ctx context.Context, spec pkgmodel.FetchSpec, targetID string) (pkgmodel.ResolvedValue, error) {
	ctx, span := tracer.Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("variable", spec.Variable),
		attribute.String("target", targetID),
		attribute.String("resource", spec.ResourceID),
	))
	defer span.End()

	o.Counters.Attempted.Add(1)

	rv, err := o.fetch(ctx, spec, targetID)
	if err != nil {
		o.Counters.Failed.Add(1)
		span.RecordError(err)
		return pkgmodel.ResolvedValue{}, err
	}

	o.Counters.Succeeded.Add(1)
	return rv, nil
}

func (o *Orchestrator) fetch(ctx context.Context, spec pkgmodel.FetchSpec, targetID string) (pkgmodel.ResolvedValue, error) {
	if err := o.resolver.Preflight(spec, targetID); err != nil {
		return pkgmodel.ResolvedValue{}, err
	}

	values := make(map[string]string)
	for _, dep := range o.resolver.Dependencies(spec) {
		rv, err := o.resolver.Resolve(dep, targetID)
		if err != nil {
			// Preflight passed, so this only happens on a genuine
			// invariant violation.
			return pkgmodel.ResolvedValue{}, err
		}
		values[dep] = rv.StringValue()
	}

	req := &pkgmodel.ProxyRequest{
		ResourceID: spec.ResourceID,
		Endpoint:   scan.Substitute(spec.Endpoint, values),
		Method:     spec.MethodOrDefault(),
		Body:       scan.Substitute(spec.Body, values),
		Variables:  values, // compatibility echo only
	}

	resp, err := o.caller.Call(ctx, req)
	if err != nil {
		return pkgmodel.ResolvedValue{}, &ProxyError{Message: err.Error()}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.StatusText
		}
		return pkgmodel.ResolvedValue{}, &ProxyError{Status: resp.Status, Message: msg}
	}

	node, err := extract.ExtractBytes(resp.Raw, spec.JSONPath)
	if err != nil {
		return pkgmodel.ResolvedValue{}, err
	}

	// An abandoned fetch must leave scope state untouched.
	if err := ctx.Err(); err != nil {
		return pkgmodel.ResolvedValue{}, err
	}

	rv := o.resolver.StoreFetched(spec.Variable, targetID, node.Value())
	slog.Debug("Fetched variable value", "variable", spec.Variable, "target", targetID, "source", rv.Source)

	return rv, nil
}

// Outcome is the per-target result of running a planned fetch order.
type Outcome struct {
	Resolved []pkgmodel.ResolvedValue
	Failures []Failure
}

// Run executes the planned fetch order for each target. Targets run
// concurrently, one goroutine per target; within a target the order is
// sequential so a spec's dependency fetches complete before its own call. A
// failure is recorded and the remaining fetches still run - those depending
// on the failed value fail their own pre-flight locally.
func (o *Orchestrator) Run(ctx context.Context, orders map[string][]string) map[string]*Outcome {
	outcomes := make(map[string]*Outcome, len(orders))
	for targetID := range orders {
		outcomes[targetID] = &Outcome{}
	}

	var mu sync.Mutex
	var wg conc.WaitGroup

	for targetID, order := range orders {
		wg.Go(func() {
			for _, name := range order {
				spec, ok := o.resolver.FetchSpec(name)
				if !ok {
					// Plan only emits names with specs.
					continue
				}

				rv, err := o.Fetch(ctx, spec, targetID)
				mu.Lock()
				if err != nil {
					outcomes[targetID].Failures = append(outcomes[targetID].Failures, Failure{
						Variable: name,
						TargetID: targetID,
						Err:      err,
					})
				} else {
					outcomes[targetID].Resolved = append(outcomes[targetID].Resolved, rv)
				}
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	return outcomes
}
