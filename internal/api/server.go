// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package api is the agent's REST surface. It translates HTTP requests into
// resolution passes and datastore operations and maps the core error types
// onto stable wire errors.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/extract"
	"github.com/netgrid-labs/stencil/internal/fetch"
	"github.com/netgrid-labs/stencil/internal/logging"
	"github.com/netgrid-labs/stencil/internal/materialize"
	"github.com/netgrid-labs/stencil/internal/scan"
	"github.com/netgrid-labs/stencil/internal/scope"
	"github.com/netgrid-labs/stencil/internal/stats"
	"github.com/netgrid-labs/stencil/internal/store"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

const (
	BasePath = "/api/v1"

	RenderRoute       = BasePath + "/render"
	ScanRoute         = BasePath + "/scan"
	DependenciesRoute = BasePath + "/dependencies"

	StacksRoute     = BasePath + "/stacks"
	TargetsRoute    = BasePath + "/targets"
	TemplatesRoute  = BasePath + "/templates"
	FetchSpecsRoute = BasePath + "/fetchspecs"
	VariablesRoute  = BasePath + "/variables"

	StatsRoute   = BasePath + "/stats"
	HealthRoute  = BasePath + "/health"
	MetricsRoute = "/metrics"
)

// fetchTotals aggregates per-pass orchestrator counters across the agent's
// lifetime.
type fetchTotals struct {
	attempted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

type Server struct {
	echo           *echo.Echo
	store          store.Store
	caller         fetch.Caller
	ctx            context.Context
	serverConfig   *pkgmodel.ServerConfig
	agentID        string
	otel           *OTel
	metricsHandler http.Handler
	totals         fetchTotals
}

func NewServer(ctx context.Context, st store.Store, caller fetch.Caller, serverConfig *pkgmodel.ServerConfig, otelConfig *pkgmodel.OTelConfig, agentID string) *Server {
	server := &Server{
		store:        st,
		caller:       caller,
		ctx:          ctx,
		serverConfig: serverConfig,
		agentID:      agentID,
		otel:         &OTel{otelConfig: otelConfig},
	}

	if server.isOTelEnabled() && otelConfig.Prometheus.Enabled {
		server.setupOTelMetrics()
	}

	server.echo = server.configureEcho()

	return server
}

// Start launches the server in a separate goroutine
func (s *Server) Start() {
	go func() {
		listen := fmt.Sprintf(":%d", s.serverConfig.Port)

		if s.serverConfig.TLSCert != "" && s.serverConfig.TLSKey != "" {
			if err := s.echo.StartTLS(listen, s.serverConfig.TLSCert, s.serverConfig.TLSKey); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.echo.Logger.Error(err)
			}
		} else {
			if err := s.echo.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.echo.Logger.Error(err)
			}
		}
	}()
	<-s.ctx.Done()
	s.Stop()
}

// Stop gracefully shuts down the server, waiting for ongoing requests to complete
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	slog.Info("API server received shutdown")
	s.shutdownOTel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		slog.Info("API server error when shutting down", "error", err)
	}
	slog.Info("API Server successfully shutdown")
}

func (s *Server) configureEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Logger = logging.NewEchoLogger()
	e.StdLogger = log.Default()

	// Resolution endpoints
	e.POST(RenderRoute, s.Render)
	e.GET(ScanRoute, s.Scan)
	e.GET(DependenciesRoute, s.Dependencies)

	// Inventory endpoints
	e.GET(StacksRoute, s.ListStacks)
	e.POST(StacksRoute, s.CreateStack)
	e.GET(TargetsRoute, s.ListTargets)
	e.POST(TargetsRoute, s.UpsertTarget)
	e.GET(TemplatesRoute, s.ListTemplates)
	e.POST(TemplatesRoute, s.UpsertTemplate)
	e.GET(FetchSpecsRoute, s.ListFetchSpecs)
	e.POST(FetchSpecsRoute, s.UpsertFetchSpec)
	e.GET(VariablesRoute, s.GetVariables)
	e.PUT(VariablesRoute, s.SetVariable)

	// Usage stats endpoint
	e.GET(StatsRoute, s.Stats)

	// Health endpoint
	e.GET(HealthRoute, s.Health)

	// Prometheus metrics endpoint (if enabled)
	if s.metricsHandler != nil {
		e.GET(MetricsRoute, echo.WrapHandler(s.metricsHandler))
	}

	return e
}

// Render materializes one stored template for the requested targets. Targets
// resolve independently; a failing target is reported in its own result and
// never aborts the others.
func (s *Server) Render(c echo.Context) error {
	var req apimodel.RenderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Stack == "" || req.Template == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Stack and Template are required")
	}

	tmpl, err := s.store.GetTemplate(req.Stack, req.Template)
	if err != nil {
		return mapError(c, err)
	}

	snap, err := s.store.Snapshot(req.Stack)
	if err != nil {
		return mapError(c, err)
	}
	snap.Test = req.TestValues

	targets := req.Targets
	if len(targets) == 0 {
		for label := range snap.PerTarget {
			targets = append(targets, label)
		}
		sort.Strings(targets)
	}

	resolver := scope.NewResolver(snap, req.Overrides)
	orchestrator := fetch.NewOrchestrator(s.caller, resolver)

	results := materialize.RunWithOrchestrator(c.Request().Context(), resolver, orchestrator, materialize.Request{
		Template:  *tmpl,
		TargetIDs: targets,
		Overrides: req.Overrides,
	})

	s.totals.attempted.Add(orchestrator.Counters.Attempted.Load())
	s.totals.succeeded.Add(orchestrator.Counters.Succeeded.Load())
	s.totals.failed.Add(orchestrator.Counters.Failed.Load())

	resp := apimodel.RenderResponse{
		Stack:    req.Stack,
		Template: req.Template,
	}
	for _, r := range results {
		resp.Results = append(resp.Results, toTargetResult(r))
	}

	return c.JSON(http.StatusOK, resp)
}

// Scan lists the distinct variables a stored template references.
func (s *Server) Scan(c echo.Context) error {
	stack := c.QueryParam("stack")
	template := c.QueryParam("template")
	if stack == "" || template == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack and template query parameters are required")
	}

	tmpl, err := s.store.GetTemplate(stack, template)
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, apimodel.ScanResponse{
		Template:  template,
		Variables: scan.Scan(tmpl.Body()),
	})
}

// Dependencies returns the planned fetch order for a stack's fetch specs, as
// seen from one target. Variables already satisfied by a stored layer are
// omitted since no fetch would run for them.
func (s *Server) Dependencies(c echo.Context) error {
	stack := c.QueryParam("stack")
	if stack == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack query parameter is required")
	}
	target := c.QueryParam("target")

	snap, err := s.store.Snapshot(stack)
	if err != nil {
		return mapError(c, err)
	}

	var required []string
	for name := range snap.FetchSpecs {
		required = append(required, name)
	}
	sort.Strings(required)

	resolver := scope.NewResolver(snap, nil)
	order, err := resolver.Plan(required, target)
	if err != nil {
		return mapError(c, err)
	}

	resp := apimodel.DependenciesResponse{Stack: stack}
	for _, name := range order {
		spec := snap.FetchSpecs[name]
		resp.Order = append(resp.Order, apimodel.DependencyNode{
			Variable:     name,
			Dependencies: resolver.Dependencies(spec),
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) ListStacks(c echo.Context) error {
	stacks, err := s.store.ListStacks()
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, apimodel.StacksResponse{Stacks: stacks})
}

func (s *Server) CreateStack(c echo.Context) error {
	var stack pkgmodel.Stack
	if err := c.Bind(&stack); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if stack.Label == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Label is required")
	}
	if err := s.store.CreateStack(&stack); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusCreated, stack)
}

func (s *Server) ListTargets(c echo.Context) error {
	stack := c.QueryParam("stack")
	if stack == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack query parameter is required")
	}
	targets, err := s.store.ListTargets(stack)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, apimodel.TargetsResponse{Targets: targets})
}

func (s *Server) UpsertTarget(c echo.Context) error {
	var target pkgmodel.Target
	if err := c.Bind(&target); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if target.Stack == "" || target.Label == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Stack and Label are required")
	}
	if err := s.store.UpsertTarget(&target); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, target)
}

func (s *Server) ListTemplates(c echo.Context) error {
	stack := c.QueryParam("stack")
	if stack == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack query parameter is required")
	}
	templates, err := s.store.ListTemplates(stack)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, apimodel.TemplatesResponse{Templates: templates})
}

func (s *Server) UpsertTemplate(c echo.Context) error {
	var tmpl pkgmodel.Template
	if err := c.Bind(&tmpl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if tmpl.Stack == "" || tmpl.Label == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Stack and Label are required")
	}
	if err := s.store.UpsertTemplate(&tmpl); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, tmpl)
}

func (s *Server) ListFetchSpecs(c echo.Context) error {
	stack := c.QueryParam("stack")
	if stack == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack query parameter is required")
	}
	specs, err := s.store.ListFetchSpecs(stack)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, apimodel.FetchSpecsResponse{FetchSpecs: specs})
}

func (s *Server) UpsertFetchSpec(c echo.Context) error {
	var spec pkgmodel.FetchSpec
	if err := c.Bind(&spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if spec.Stack == "" || spec.Variable == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Stack and Variable are required")
	}
	if err := s.store.UpsertFetchSpec(&spec); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, spec)
}

// GetVariables reads the shared layer (no target parameter) or one target's
// layer.
func (s *Server) GetVariables(c echo.Context) error {
	stack := c.QueryParam("stack")
	if stack == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "stack query parameter is required")
	}
	target := c.QueryParam("target")

	var vars map[string]any
	var err error
	if target == "" {
		vars, err = s.store.StackVariables(stack)
	} else {
		vars, err = s.store.TargetVariables(stack, target)
	}
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, apimodel.VariablesResponse{
		Stack:     stack,
		Target:    target,
		Variables: vars,
	})
}

func (s *Server) SetVariable(c echo.Context) error {
	var req apimodel.SetVariableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Stack == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Stack and Name are required")
	}
	if !pkgmodel.ValidVariableName(req.Name) {
		return apiError(c, http.StatusBadRequest, apimodel.InvalidVariableName,
			apimodel.InvalidVariableNameData{Name: req.Name})
	}

	var err error
	if req.Target == "" {
		err = s.store.SetStackVariable(req.Stack, req.Name, req.Value)
	} else {
		err = s.store.SetTargetVariable(req.Stack, req.Target, req.Name, req.Value)
	}
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, req)
}

func (s *Server) Stats(c echo.Context) error {
	counts, err := s.store.Counts()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, apimodel.Stats{
		Version:        stats.Version(),
		AgentID:        s.agentID,
		Stacks:         counts.Stacks,
		Targets:        counts.Targets,
		Templates:      counts.Templates,
		FetchSpecs:     counts.FetchSpecs,
		FetchAttempted: s.totals.attempted.Load(),
		FetchSucceeded: s.totals.succeeded.Load(),
		FetchFailed:    s.totals.failed.Load(),
		System:         stats.System(),
	})
}

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, nil)
}

func toTargetResult(r materialize.Result) apimodel.TargetResult {
	out := apimodel.TargetResult{Target: r.TargetID}

	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		out.Text = r.Text
	}

	for _, v := range r.Values {
		out.Values = append(out.Values, apimodel.ResolvedValue{
			Variable: v.Variable,
			Value:    v.Value,
			Source:   string(v.Source),
		})
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, apimodel.FetchFailure{
			Variable: f.Variable,
			Error:    f.Err.Error(),
		})
	}

	return out
}

// mapError maps core errors to appropriate HTTP responses
func mapError(c echo.Context, err error) error {
	var missing *scope.MissingVariableError
	if errors.As(err, &missing) {
		return apiError(c, http.StatusUnprocessableEntity, apimodel.MissingVariables, apimodel.MissingVariablesData{
			Names:    missing.Names,
			TargetID: missing.TargetID,
		})
	}

	var cycle *scope.DependencyCycleError
	if errors.As(err, &cycle) {
		return apiError(c, http.StatusBadRequest, apimodel.DependencyCycle, apimodel.DependencyCycleData{
			Variables: cycle.Names,
		})
	}

	var extraction *extract.Error
	if errors.As(err, &extraction) {
		return apiError(c, http.StatusBadGateway, apimodel.ExtractionFailure, apimodel.ExtractionFailureData{
			Path:   extraction.Path,
			Reason: extraction.Reason,
		})
	}

	var proxyErr *fetch.ProxyError
	if errors.As(err, &proxyErr) {
		return apiError(c, http.StatusBadGateway, apimodel.ProxyFailure, apimodel.ProxyFailureData{
			Status:  proxyErr.Status,
			Message: proxyErr.Message,
		})
	}

	var notFound *store.NotFoundError
	if errors.As(err, &notFound) {
		return apiError(c, http.StatusNotFound, apimodel.NotFound, apimodel.NotFoundData{
			Kind:  notFound.Kind,
			Label: notFound.Label,
		})
	}

	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return nil
}

// apiError is a helper to wrap error data in ErrorResponse[T] and return as json
func apiError[T any](c echo.Context, status int, errorType apimodel.APIError, data T) error {
	return c.JSON(status, apimodel.ErrorResponse[T]{
		ErrorType: errorType,
		Data:      data,
	})
}
