// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package materialize

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netgrid-labs/stencil/internal/scope"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

type fakeCaller struct {
	mu        sync.Mutex
	requests  []*pkgmodel.ProxyRequest
	responses map[string]*pkgmodel.ProxyResponse
}

func (c *fakeCaller) Call(_ context.Context, req *pkgmodel.ProxyRequest) (*pkgmodel.ProxyResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if resp, ok := c.responses[req.Endpoint]; ok {
		return resp, nil
	}
	return &pkgmodel.ProxyResponse{Success: false, Status: 404, StatusText: "Not Found"}, nil
}

func okResponse(raw string) *pkgmodel.ProxyResponse {
	return &pkgmodel.ProxyResponse{Success: true, Status: 200, Raw: []byte(raw)}
}

func TestRunSubstitutesStoredValues(t *testing.T) {
	snap := &scope.Snapshot{
		Shared: map[string]any{"domain": "corp.example"},
		PerTarget: map[string]map[string]any{
			"router1": {"hostname": "edge-1"},
			"router2": {"hostname": "edge-2"},
		},
	}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template:  pkgmodel.Template{Text: "fqdn: {{hostname}}.{{domain}}"},
		TargetIDs: []string{"router1", "router2"},
	})

	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	assert.Equal(t, "router1", results[0].TargetID)
	assert.Equal(t, "fqdn: edge-1.corp.example", results[0].Text)
	assert.Equal(t, "router2", results[1].TargetID)
	assert.Equal(t, "fqdn: edge-2.corp.example", results[1].Text)
}

func TestRunWithoutTargetsUsesSharedScope(t *testing.T) {
	snap := &scope.Snapshot{Shared: map[string]any{"ntp": "10.0.0.5"}}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template: pkgmodel.Template{Text: "server {{ntp}}"},
	})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "", results[0].TargetID)
	assert.Equal(t, "server 10.0.0.5", results[0].Text)
}

func TestRunOverridesWinForEveryTarget(t *testing.T) {
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"region": "eu-west"},
		},
	}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template:  pkgmodel.Template{Text: "region={{region}}"},
		TargetIDs: []string{"router1"},
		Overrides: map[string]any{"region": "maintenance"},
	})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "region=maintenance", results[0].Text)

	require.Len(t, results[0].Values, 1)
	assert.Equal(t, pkgmodel.LayerManualOverride, results[0].Values[0].Source)
}

func TestRunFetchesMissingValues(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/devices/10.1.0.1": okResponse(`{"device": {"serial": "SN-1"}}`),
		"/devices/10.2.0.1": okResponse(`{"device": {"serial": "SN-2"}}`),
	}}
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"mgmt_ip": "10.1.0.1"},
			"router2": {"mgmt_ip": "10.2.0.1"},
		},
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"serial": {Variable: "serial", Endpoint: "/devices/{{mgmt_ip}}", JSONPath: "device.serial"},
		},
	}

	results := Run(context.Background(), snap, caller, Request{
		Template:  pkgmodel.Template{Text: "serial: {{serial}}"},
		TargetIDs: []string{"router1", "router2"},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "serial: SN-1", results[0].Text)
	assert.Equal(t, "serial: SN-2", results[1].Text)
	assert.Len(t, caller.requests, 2)
}

func TestRunMissingValueIsAHardError(t *testing.T) {
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"asn": 65001},
		},
	}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template:  pkgmodel.Template{Text: "asn {{asn}} peer {{peer_ip}}"},
		TargetIDs: []string{"router1", "router2"},
	})

	require.Len(t, results, 2)

	// router1 is only missing peer_ip.
	var missing *scope.MissingVariableError
	require.ErrorAs(t, results[0].Err, &missing)
	assert.Equal(t, []string{"peer_ip"}, missing.Names)
	assert.Empty(t, results[0].Text)

	// router2 is missing both.
	require.ErrorAs(t, results[1].Err, &missing)
	assert.Equal(t, []string{"asn", "peer_ip"}, missing.Names)
}

func TestRunTargetsFailIndependently(t *testing.T) {
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"hostname": "edge-1"},
			"router2": {},
		},
	}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template:  pkgmodel.Template{Text: "host {{hostname}}"},
		TargetIDs: []string{"router1", "router2"},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "host edge-1", results[0].Text)
	require.Error(t, results[1].Err)
}

func TestRunTestValueSuppressesFetch(t *testing.T) {
	// A name covered by the test layer never needs its fetch spec, so the
	// proxy is not contacted at all.
	caller := &fakeCaller{}
	snap := &scope.Snapshot{
		Test: map[string]any{"serial": "TEST-SN"},
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"serial": {Variable: "serial", Endpoint: "/devices/router1", JSONPath: "serial"},
		},
	}

	results := Run(context.Background(), snap, caller, Request{
		Template:  pkgmodel.Template{Text: "serial {{serial}}"},
		TargetIDs: []string{"router1"},
	})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "serial TEST-SN", results[0].Text)
	assert.Empty(t, results[0].Failures)
	assert.Empty(t, caller.requests)
}

func TestRunFetchFailureIsReportedPerTarget(t *testing.T) {
	// router1's fetch succeeds, router2's 404s. The failing target reports
	// both the fetch failure and the unresolved name; the other is untouched.
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/devices/10.1.0.1": okResponse(`{"serial": "SN-1"}`),
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

	results := Run(context.Background(), snap, caller, Request{
		Template:  pkgmodel.Template{Text: "serial {{serial}}"},
		TargetIDs: []string{"router1", "router2"},
	})

	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "serial SN-1", results[0].Text)

	require.Error(t, results[1].Err)
	require.Len(t, results[1].Failures, 1)
	assert.Equal(t, "serial", results[1].Failures[0].Variable)
	assert.Equal(t, "router2", results[1].Failures[0].TargetID)
}

func TestRunStructuredTemplate(t *testing.T) {
	snap := &scope.Snapshot{
		PerTarget: map[string]map[string]any{
			"router1": {"mgmt_ip": "10.1.0.1"},
		},
	}

	results := Run(context.Background(), snap, &fakeCaller{}, Request{
		Template: pkgmodel.Template{
			Structured: []byte(`{"interfaces": [{"name": "eth0", "address": "{{mgmt_ip}}/24"}]}`),
		},
		TargetIDs: []string{"router1"},
	})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.JSONEq(t, `{"interfaces": [{"name": "eth0", "address": "10.1.0.1/24"}]}`, results[0].Text)
}

func TestRunValuesAreFreeOfDuplicates(t *testing.T) {
	caller := &fakeCaller{responses: map[string]*pkgmodel.ProxyResponse{
		"/token": okResponse(`{"token": "tok-1"}`),
	}}
	snap := &scope.Snapshot{
		FetchSpecs: map[string]pkgmodel.FetchSpec{
			"token": {Variable: "token", Endpoint: "/token", JSONPath: "token"},
		},
	}

	results := Run(context.Background(), snap, caller, Request{
		Template:  pkgmodel.Template{Text: "auth {{token}}"},
		TargetIDs: []string{"router1"},
	})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	// Fetched once, re-resolved during substitution, reported once.
	require.Len(t, results[0].Values, 1)
	assert.Equal(t, "token", results[0].Values[0].Variable)
}

func TestFirstError(t *testing.T) {
	assert.NoError(t, FirstError([]Result{{TargetID: "a"}, {TargetID: "b"}}))

	err := FirstError([]Result{
		{TargetID: "a"},
		{TargetID: "b", Err: &scope.MissingVariableError{Names: []string{"x"}, TargetID: "b"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved variables for target b: x")
}
