// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package proxy is the client for the HTTP proxy service, the collaborator
// that performs outbound network calls against operator-registered resources.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"resty.dev/v3"

	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

type Client struct {
	endpoint string
	resty    *resty.Client
}

func NewClient(cfg pkgmodel.ProxyConfig, net *http.Client) *Client {
	client := resty.New()

	if net != nil {
		client = resty.NewWithClient(net)
	}

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		endpoint: fmt.Sprintf("%s:%d", cfg.URL, cfg.Port),
		resty:    client,
	}
}

// Call submits a fully substituted request to the proxy and returns the
// decoded envelope with its raw bytes attached for path extraction. The
// variables map travels along as a compatibility echo; the proxy performs no
// substitution of its own.
func (c *Client) Call(ctx context.Context, req *pkgmodel.ProxyRequest) (*pkgmodel.ProxyResponse, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetContentType("application/json").
		SetBody(req).
		Post(c.endpoint + "/api/v1/call")
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, syscall.ECONNREFUSED
		}

		return nil, err
	}

	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from proxy: %d - %s", resp.StatusCode(), resp.String())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response body: %w", err)
	}

	var envelope pkgmodel.ProxyResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode proxy response: %w", err)
	}
	envelope.Raw = body

	return &envelope, nil
}
