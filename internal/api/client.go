// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"

	"resty.dev/v3"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

// Client is the CLI's view of a running agent.
type Client struct {
	endpoint string
	resty    *resty.Client
}

func NewClient(cfg pkgmodel.APIConfig, net *http.Client) *Client {
	client := resty.New()

	if net != nil {
		client = resty.NewWithClient(net)
	}

	return &Client{
		endpoint: fmt.Sprintf("%s:%d", cfg.URL, cfg.Port),
		resty:    client,
	}
}

func (c *Client) Stats() (*apimodel.Stats, error) {
	resp, err := c.resty.R().
		Get(c.endpoint + StatsRoute)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, syscall.ECONNREFUSED
		}

		return nil, err
	}

	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var stats apimodel.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &stats, nil
}

// Render submits one resolution pass. A 200 still carries per-target errors;
// only transport failures and wire errors surface as a Go error here.
func (c *Client) Render(req *apimodel.RenderRequest) (*apimodel.RenderResponse, error) {
	var result apimodel.RenderResponse

	resp, err := c.resty.R().
		SetResult(&result).
		SetContentType("application/json").
		SetBody(req).
		Post(c.endpoint + RenderRoute)
	if err != nil {
		return nil, fmt.Errorf("failed to submit render request: %w", err)
	}

	//nolint:errcheck
	defer resp.Body.Close()

	switch resp.StatusCode() {
	case http.StatusOK:
		return &result, nil
	case http.StatusNotFound, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, parseErrorResponse(resp.Body)
	default:
		return nil, fmt.Errorf("unexpected response code from the agent: %d - %s", resp.StatusCode(), resp.String())
	}
}

func (c *Client) ScanTemplate(stack, template string) (*apimodel.ScanResponse, error) {
	var result apimodel.ScanResponse

	resp, err := c.resty.R().
		SetResult(&result).
		SetQueryParam("stack", stack).
		SetQueryParam("template", template).
		Get(c.endpoint + ScanRoute)
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	//nolint:errcheck
	defer resp.Body.Close()

	switch resp.StatusCode() {
	case http.StatusOK:
		return &result, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, parseErrorResponse(resp.Body)
	default:
		return nil, fmt.Errorf("unexpected response code from the agent: %d - %s", resp.StatusCode(), resp.String())
	}
}

func (c *Client) Dependencies(stack, target string) (*apimodel.DependenciesResponse, error) {
	var result apimodel.DependenciesResponse

	req := c.resty.R().
		SetResult(&result).
		SetQueryParam("stack", stack)
	if target != "" {
		req.SetQueryParam("target", target)
	}

	resp, err := req.Get(c.endpoint + DependenciesRoute)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}

	//nolint:errcheck
	defer resp.Body.Close()

	switch resp.StatusCode() {
	case http.StatusOK:
		return &result, nil
	case http.StatusNotFound, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, parseErrorResponse(resp.Body)
	default:
		return nil, fmt.Errorf("unexpected response code from the agent: %d - %s", resp.StatusCode(), resp.String())
	}
}

func (c *Client) ListStacks() ([]pkgmodel.Stack, error) {
	var result apimodel.StacksResponse
	if err := c.get(StacksRoute, nil, &result); err != nil {
		return nil, err
	}
	return result.Stacks, nil
}

func (c *Client) CreateStack(stack *pkgmodel.Stack) error {
	return c.post(StacksRoute, stack, http.StatusCreated)
}

func (c *Client) ListTargets(stack string) ([]pkgmodel.Target, error) {
	var result apimodel.TargetsResponse
	if err := c.get(TargetsRoute, map[string]string{"stack": stack}, &result); err != nil {
		return nil, err
	}
	return result.Targets, nil
}

func (c *Client) UpsertTarget(target *pkgmodel.Target) error {
	return c.post(TargetsRoute, target, http.StatusOK)
}

func (c *Client) ListTemplates(stack string) ([]pkgmodel.Template, error) {
	var result apimodel.TemplatesResponse
	if err := c.get(TemplatesRoute, map[string]string{"stack": stack}, &result); err != nil {
		return nil, err
	}
	return result.Templates, nil
}

func (c *Client) UpsertTemplate(tmpl *pkgmodel.Template) error {
	return c.post(TemplatesRoute, tmpl, http.StatusOK)
}

func (c *Client) ListFetchSpecs(stack string) ([]pkgmodel.FetchSpec, error) {
	var result apimodel.FetchSpecsResponse
	if err := c.get(FetchSpecsRoute, map[string]string{"stack": stack}, &result); err != nil {
		return nil, err
	}
	return result.FetchSpecs, nil
}

func (c *Client) UpsertFetchSpec(spec *pkgmodel.FetchSpec) error {
	return c.post(FetchSpecsRoute, spec, http.StatusOK)
}

func (c *Client) GetVariables(stack, target string) (map[string]any, error) {
	params := map[string]string{"stack": stack}
	if target != "" {
		params["target"] = target
	}

	var result apimodel.VariablesResponse
	if err := c.get(VariablesRoute, params, &result); err != nil {
		return nil, err
	}
	return result.Variables, nil
}

func (c *Client) SetVariable(req *apimodel.SetVariableRequest) error {
	resp, err := c.resty.R().
		SetContentType("application/json").
		SetBody(req).
		Put(c.endpoint + VariablesRoute)
	if err != nil {
		return fmt.Errorf("failed to set variable: %w", err)
	}

	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode() != http.StatusOK {
		return parseErrorResponse(resp.Body)
	}

	return nil
}

func (c *Client) get(route string, params map[string]string, result any) error {
	req := c.resty.R().SetResult(result)
	for k, v := range params {
		req.SetQueryParam(k, v)
	}

	resp, err := req.Get(c.endpoint + route)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return syscall.ECONNREFUSED
		}
		return err
	}

	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode() != http.StatusOK {
		return parseErrorResponse(resp.Body)
	}

	return nil
}

func (c *Client) post(route string, body any, expect int) error {
	resp, err := c.resty.R().
		SetContentType("application/json").
		SetBody(body).
		Post(c.endpoint + route)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return syscall.ECONNREFUSED
		}
		return err
	}

	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode() != expect {
		return parseErrorResponse(resp.Body)
	}

	return nil
}

// parseErrorResponse decodes the typed wire error into the matching
// ErrorResponse[T] so callers can branch with errors.As.
func parseErrorResponse(body io.ReadCloser) error {
	bodyBytes, readErr := io.ReadAll(body)
	if readErr != nil {
		return fmt.Errorf("failed to read error response body: %w", readErr)
	}

	var baseError struct {
		Error apimodel.APIError `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &baseError); err != nil || baseError.Error == "" {
		return fmt.Errorf("agent error: %s", string(bodyBytes))
	}

	switch baseError.Error {
	case apimodel.MissingVariables:
		var errResp apimodel.ErrorResponse[apimodel.MissingVariablesData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse MissingVariables error: %w", err)
		}
		return &errResp

	case apimodel.DependencyCycle:
		var errResp apimodel.ErrorResponse[apimodel.DependencyCycleData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse DependencyCycle error: %w", err)
		}
		return &errResp

	case apimodel.ExtractionFailure:
		var errResp apimodel.ErrorResponse[apimodel.ExtractionFailureData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse ExtractionFailure error: %w", err)
		}
		return &errResp

	case apimodel.ProxyFailure:
		var errResp apimodel.ErrorResponse[apimodel.ProxyFailureData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse ProxyFailure error: %w", err)
		}
		return &errResp

	case apimodel.NotFound:
		var errResp apimodel.ErrorResponse[apimodel.NotFoundData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse NotFound error: %w", err)
		}
		return &errResp

	case apimodel.InvalidVariableName:
		var errResp apimodel.ErrorResponse[apimodel.InvalidVariableNameData]
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("failed to parse InvalidVariableName error: %w", err)
		}
		return &errResp

	default:
		return fmt.Errorf("unknown error type: %s", baseError.Error)
	}
}
