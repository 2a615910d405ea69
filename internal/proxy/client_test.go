// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewClient(pkgmodel.ProxyConfig{URL: "http://" + u.Hostname(), Port: port}, srv.Client())
}

func TestCall(t *testing.T) {
	var seen *pkgmodel.ProxyRequest
	var requestID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/call", r.URL.Path)
		requestID = r.Header.Get("X-Request-ID")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &seen))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "status": 200, "data": {"serial": "SN-1"}}`))
	}))
	defer srv.Close()

	client := clientFor(t, srv)

	resp, err := client.Call(context.Background(), &pkgmodel.ProxyRequest{
		ResourceID: "netbox",
		Endpoint:   "/devices/10.1.0.1",
		Method:     "GET",
		Variables:  map[string]string{"mgmt_ip": "10.1.0.1"},
	})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "netbox", seen.ResourceID)
	assert.Equal(t, "/devices/10.1.0.1", seen.Endpoint)
	assert.Equal(t, map[string]string{"mgmt_ip": "10.1.0.1"}, seen.Variables)
	assert.NotEmpty(t, requestID)

	assert.True(t, resp.Success)
	assert.Equal(t, 200, resp.Status)
	// Raw keeps the whole envelope for path extraction.
	assert.JSONEq(t, `{"success": true, "status": 200, "data": {"serial": "SN-1"}}`, string(resp.Raw))
}

func TestCallUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "proxy is draining", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := clientFor(t, srv)

	_, err := client.Call(context.Background(), &pkgmodel.ProxyRequest{Endpoint: "/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code from proxy: 503")
}

func TestCallMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client := clientFor(t, srv)

	_, err := client.Call(context.Background(), &pkgmodel.ProxyRequest{Endpoint: "/x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode proxy response")
}
