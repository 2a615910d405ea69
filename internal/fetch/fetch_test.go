// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netgrid-labs/stencil/internal/extract"
	"github.com/netgrid-labs/stencil/internal/scope"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// fakeCaller records every proxy request and answers from a canned table
// keyed by endpoint.
type fakeCaller struct {
	mu        sync.Mutex
	requests  []*pkgmodel.ProxyRequest
	responses map[string]*pkgmodel.ProxyResponse
	err       error
}

func (c *fakeCaller) Call(_ context.Context, req *pkgmodel.ProxyRequest) (*pkgmodel.ProxyResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if resp, ok := c.responses[req.Endpoint]; ok {
		return resp, nil
	}
	return &pkgmodel.ProxyResponse{Success: false, Status: 404, StatusText: "Not Found"}, nil
}

func okResponse(raw string) *pkgmodel.ProxyResponse {
	return &pkgmodel.ProxyResponse{Success: true, Status: 200, Raw: []byte(raw)}
}

func newResolver(snap *scope.Snapshot) *scope.Resolver {
	return scope.NewResolver(snap, nil)
}

func TestFetchSubstitutesAndWritesBack(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/devices/10.1.0.1": okResponse(`{"device": {"serial": "SN-42"}}`),
	}}
	resolver := newResolver(&scope.Snapshot{
		PerTarget: map[string]map[string]any{"router1": {"mgmt_ip": "10.1.0.1"}},
	})
	orchestrator := NewOrchestrator(caller, resolver)

	spec := pkgmodel.FetchSpec{
		Variable:   "serial",
		ResourceID: "netbox",
		Endpoint:   "/devices/{{mgmt_ip}}",
		JSONPath:   "device.serial",
	}

	rv, err := orchestrator.Fetch(context.Background(), spec, "router1")
	require.NoError(t, err)
	assert.Equal(t, "SN-42", rv.Value)
	assert.Equal(t, pkgmodel.LayerPerTarget, rv.Source)

	require.Len(t, caller.requests, 1)
	req := caller.requests[0]
	assert.Equal(t, "/devices/10.1.0.1", req.Endpoint)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "netbox", req.ResourceID)

	// Written back for the rest of the pass.
	got, err := resolver.Resolve("serial", "router1")
	require.NoError(t, err)
	assert.Equal(t, "SN-42", got.Value)

	assert.Equal(t, int64(1), orchestrator.Counters.Attempted.Load())
	assert.Equal(t, int64(1), orchestrator.Counters.Succeeded.Load())
	assert.Equal(t, int64(0), orchestrator.Counters.Failed.Load())
}

func TestFetchPreflightFailsLocally(t *testing.T) {
	caller := &fakeCaller{}
	resolver := newResolver(&scope.Snapshot{})
	orchestrator := NewOrchestrator(caller, resolver)

	spec := pkgmodel.FetchSpec{
		Variable: "serial",
		Endpoint: "/devices/{{mgmt_ip}}",
	}

	_, err := orchestrator.Fetch(context.Background(), spec, "router1")
	require.Error(t, err)

	var missing *scope.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"mgmt_ip"}, missing.Names)

	// The proxy is never contacted for a request that cannot succeed.
	assert.Empty(t, caller.requests)
	assert.Equal(t, int64(1), orchestrator.Counters.Failed.Load())
}

func TestFetchTestLayerDoesNotSatisfyDependencies(t *testing.T) {
	caller := &fakeCaller{}
	resolver := newResolver(&scope.Snapshot{
		Test: map[string]any{"mgmt_ip": "10.9.9.9"},
	})
	orchestrator := NewOrchestrator(caller, resolver)

	spec := pkgmodel.FetchSpec{Variable: "serial", Endpoint: "/devices/{{mgmt_ip}}"}

	_, err := orchestrator.Fetch(context.Background(), spec, "router1")
	require.Error(t, err)

	var missing *scope.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"mgmt_ip"}, missing.Names)
	assert.Empty(t, caller.requests)
}

func TestFetchProxyFailure(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		caller := &fakeCaller{err: errors.New("connection refused")}
		orchestrator := NewOrchestrator(caller, newResolver(&scope.Snapshot{}))

		_, err := orchestrator.Fetch(context.Background(), pkgmodel.FetchSpec{Variable: "v", Endpoint: "/x"}, "")
		require.Error(t, err)

		var proxyErr *ProxyError
		require.ErrorAs(t, err, &proxyErr)
		assert.Equal(t, 0, proxyErr.Status)
		assert.Contains(t, proxyErr.Message, "connection refused")
	})

	t.Run("remote error envelope", func(t *testing.T) {
		caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
			"/x": {Success: false, Status: 502, Error: "upstream timed out"},
		}}
		orchestrator := NewOrchestrator(caller, newResolver(&scope.Snapshot{}))

		_, err := orchestrator.Fetch(context.Background(), pkgmodel.FetchSpec{Variable: "v", Endpoint: "/x"}, "")
		require.Error(t, err)

		var proxyErr *ProxyError
		require.ErrorAs(t, err, &proxyErr)
		assert.Equal(t, 502, proxyErr.Status)
		assert.Equal(t, "proxy call failed with status 502: upstream timed out", proxyErr.Error())
	})
}

func TestFetchExtractionFailure(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/x": okResponse(`{"other": 1}`),
	}}
	resolver := newResolver(&scope.Snapshot{})
	orchestrator := NewOrchestrator(caller, resolver)

	spec := pkgmodel.FetchSpec{Variable: "v", Endpoint: "/x", JSONPath: "missing.path"}

	_, err := orchestrator.Fetch(context.Background(), spec, "")
	require.Error(t, err)

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)

	// A failed extraction never writes a value back.
	assert.False(t, resolver.Resolvable("v", ""))
}

func TestFetchCanceledContextNeverMutatesScope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/x": okResponse(`{"value": "late"}`),
	}}
	resolver := newResolver(&scope.Snapshot{})
	orchestrator := NewOrchestrator(caller, resolver)

	cancel()
	_, err := orchestrator.Fetch(ctx, pkgmodel.FetchSpec{Variable: "v", Endpoint: "/x", JSONPath: "value"}, "router1")
	require.ErrorIs(t, err, context.Canceled)

	assert.False(t, resolver.Resolvable("v", "router1"))
}

func TestRunSequentialWithinTarget(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/auth":          okResponse(`{"token": "tok-1"}`),
		"/devices/tok-1": okResponse(`{"serial": "SN-7"}`),
	}}
	snap := &scope.Snapshot{
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"token":  {Variable: "token", Endpoint: "/auth", JSONPath: "token"},
			"serial": {Variable: "serial", Endpoint: "/devices/{{token}}", JSONPath: "serial"},
		},
	}
	resolver := newResolver(snap)
	orchestrator := NewOrchestrator(caller, resolver)

	outcomes := orchestrator.Run(context.Background(), map[string][]string{
		"router1": {"token", "serial"},
	})

	outcome := outcomes["router1"]
	require.Empty(t, outcome.Failures)
	require.Len(t, outcome.Resolved, 2)

	// The dependency fetch completed before the consumer was built.
	require.Len(t, caller.requests, 2)
	assert.Equal(t, "/auth", caller.requests[0].Endpoint)
	assert.Equal(t, "/devices/tok-1", caller.requests[1].Endpoint)
}

func TestRunFailureDoesNotAbortOthers(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/ok": okResponse(`{"value": "fine"}`),
		// "/bad" falls through to the canned 404.
	}}
	snap := &scope.Snapshot{
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"bad":  {Variable: "bad", Endpoint: "/bad", JSONPath: "value"},
			"good": {Variable: "good", Endpoint: "/ok", JSONPath: "value"},
		},
	}
	orchestrator := NewOrchestrator(caller, newResolver(snap))

	outcomes := orchestrator.Run(context.Background(), map[string][]string{
		"router1": {"bad", "good"},
	})

	outcome := outcomes["router1"]
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "bad", outcome.Failures[0].Variable)
	assert.Equal(t, "router1", outcome.Failures[0].TargetID)

	require.Len(t, outcome.Resolved, 1)
	assert.Equal(t, "good", outcome.Resolved[0].Variable)
	assert.Equal(t, "fine", outcome.Resolved[0].Value)

	assert.Equal(t, int64(2), orchestrator.Counters.Attempted.Load())
	assert.Equal(t, int64(1), orchestrator.Counters.Succeeded.Load())
	assert.Equal(t, int64(1), orchestrator.Counters.Failed.Load())
}

func TestRunTargetsConcurrently(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/devices/10.1.0.1": okResponse(`{"serial": "SN-1"}`),
		"/devices/10.2.0.1": okResponse(`{"serial": "SN-2"}`),
	}}
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"mgmt_ip": "10.1.0.1"},
			"router2": {"mgmt_ip": "10.2.0.1"},
		},
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"serial": {Variable: "serial", Endpoint: "/devices/{{mgmt_ip}}", JSONPath: "serial"},
		},
	}
	resolver := newResolver(snap)
	orchestrator := NewOrchestrator(caller, resolver)

	outcomes := orchestrator.Run(context.Background(), map[string][]string{
		"router1": {"serial"},
		"router2": {"serial"},
	})

	require.Len(t, outcomes, 2)
	require.Len(t, outcomes["router1"].Resolved, 1)
	require.Len(t, outcomes["router2"].Resolved, 1)
	assert.Equal(t, "SN-1", outcomes["router1"].Resolved[0].Value)
	assert.Equal(t, "SN-2", outcomes["router2"].Resolved[0].Value)

	// Each target keeps its own fetched value.
	rv, err := resolver.Resolve("serial", "router1")
	require.NoError(t, err)
	assert.Equal(t, "SN-1", rv.Value)
	rv, err = resolver.Resolve("serial", "router2")
	require.NoError(t, err)
	assert.Equal(t, "SN-2", rv.Value)
}
