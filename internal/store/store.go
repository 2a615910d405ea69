// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package store persists stacks, targets, templates, fetch specs and stored
// variable documents. Resolution passes read a point-in-time snapshot from
// here; resolved values themselves are never written back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/mattn/go-sqlite3"
	"github.com/segmentio/ksuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.22.0"
	"go.opentelemetry.io/otel/trace"

	"log/slog"

	"github.com/netgrid-labs/stencil/internal/scope"
	"github.com/netgrid-labs/stencil/internal/util"
	pkgmodel "github.com/netgrid-labs/stencil/pkg/model"
)

var sqliteTracer trace.Tracer

const sqliteOtelDriverName = "sqlite3-otel"

func init() {
	sqliteTracer = otel.Tracer("stencil/store/sqlite")

	// Register otelsql-instrumented SQLite driver for automatic query tracing
	sql.Register(sqliteOtelDriverName, otelsql.WrapDriver(&sqlite3.SQLiteDriver{},
		otelsql.WithAttributes(
			semconv.DBSystemSqlite,
		),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableErrSkip: true,
		}),
	))
}

// Counts feeds the agent's stats endpoint.
type Counts struct {
	Stacks     int `json:"Stacks"`
	Targets    int `json:"Targets"`
	Templates  int `json:"Templates"`
	FetchSpecs int `json:"FetchSpecs"`
}

type Store interface {
	CreateStack(s *pkgmodel.Stack) error
	ListStacks() ([]pkgmodel.Stack, error)
	GetStack(label string) (*pkgmodel.Stack, error)

	UpsertTarget(t *pkgmodel.Target) error
	ListTargets(stack string) ([]pkgmodel.Target, error)
	GetTarget(stack, label string) (*pkgmodel.Target, error)

	UpsertTemplate(t *pkgmodel.Template) error
	ListTemplates(stack string) ([]pkgmodel.Template, error)
	GetTemplate(stack, label string) (*pkgmodel.Template, error)

	UpsertFetchSpec(fs *pkgmodel.FetchSpec) error
	ListFetchSpecs(stack string) ([]pkgmodel.FetchSpec, error)

	SetStackVariable(stack, name string, value any) error
	StackVariables(stack string) (map[string]any, error)
	SetTargetVariable(stack, target, name string, value any) error
	TargetVariables(stack, target string) (map[string]any, error)

	Snapshot(stack string) (*scope.Snapshot, error)
	Counts() (*Counts, error)

	Close() error
}

// NotFoundError identifies a lookup miss the caller must branch on.
type NotFoundError struct {
	Kind  string
	Label string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Label)
}

type SQLiteStore struct {
	conn *sql.DB
	ctx  context.Context
}

func NewSQLiteStore(ctx context.Context, cfg *pkgmodel.DatastoreConfig) (Store, error) {
	isMemoryDb := cfg.Sqlite.FilePath == ":memory:" ||
		strings.HasPrefix(cfg.Sqlite.FilePath, "file::memory:")

	if cfg.Sqlite.FilePath != "" && !isMemoryDb {
		if err := util.EnsureFileFolderHierarchy(cfg.Sqlite.FilePath); err != nil {
			slog.Error("Failed to create datastore folder hierarchy", "error", err)
			return nil, err
		}
	}

	conn, err := sql.Open(sqliteOtelDriverName, cfg.Sqlite.FilePath)
	if err != nil {
		slog.Error("Failed to connect to sqlite database", "error", err)
		return nil, err
	}

	// WAL lets readers proceed while a pass writes variable documents.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		slog.Error("Failed to enable WAL mode", "error", err)
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=10000"); err != nil {
		slog.Error("Failed to set busy timeout", "error", err)
		return nil, err
	}

	// SQLite doesn't handle concurrent writes well - keep a single connection.
	conn.SetMaxOpenConns(1)

	if err = runMigrations(conn); err != nil {
		return nil, err
	}

	slog.Info("Started SQLite store", "filePath", cfg.Sqlite.FilePath)

	return &SQLiteStore{conn: conn, ctx: ctx}, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) CreateStack(stack *pkgmodel.Stack) error {
	_, span := sqliteTracer.Start(context.Background(), "CreateStack")
	defer span.End()

	now := time.Now().UTC()
	if stack.ID == "" {
		stack.ID = ksuid.New().String()
	}
	stack.CreatedAt = now
	stack.UpdatedAt = now

	_, err := s.conn.Exec(
		`INSERT INTO stacks (id, label, description, created_ts, updated_ts) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (label) DO UPDATE SET description = excluded.description, updated_ts = excluded.updated_ts`,
		stack.ID, stack.Label, stack.Description, stack.CreatedAt, stack.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stack %s: %w", stack.Label, err)
	}

	_, err = s.conn.Exec(
		`INSERT INTO stack_variables (stack, document, updated_ts) VALUES (?, '{}', ?)
		 ON CONFLICT (stack) DO NOTHING`,
		stack.Label, now)
	if err != nil {
		return fmt.Errorf("failed to initialize stack variables for %s: %w", stack.Label, err)
	}

	return nil
}

func (s *SQLiteStore) ListStacks() ([]pkgmodel.Stack, error) {
	rows, err := s.conn.Query(`SELECT id, label, description, created_ts, updated_ts FROM stacks ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var stacks []pkgmodel.Stack
	for rows.Next() {
		var st pkgmodel.Stack
		if err := rows.Scan(&st.ID, &st.Label, &st.Description, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		stacks = append(stacks, st)
	}

	return stacks, rows.Err()
}

func (s *SQLiteStore) GetStack(label string) (*pkgmodel.Stack, error) {
	var st pkgmodel.Stack
	err := s.conn.QueryRow(
		`SELECT id, label, description, created_ts, updated_ts FROM stacks WHERE label = ?`, label).
		Scan(&st.ID, &st.Label, &st.Description, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "stack", Label: label}
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) UpsertTarget(t *pkgmodel.Target) error {
	_, span := sqliteTracer.Start(context.Background(), "UpsertTarget")
	defer span.End()

	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = ksuid.New().String()
	}
	t.UpdatedAt = now

	_, err := s.conn.Exec(
		`INSERT INTO targets (id, stack, label, description, config, variables, created_ts, updated_ts)
		 VALUES (?, ?, ?, ?, ?, '{}', ?, ?)
		 ON CONFLICT (stack, label) DO UPDATE SET
		   description = excluded.description,
		   config = excluded.config,
		   updated_ts = excluded.updated_ts`,
		t.ID, t.Stack, t.Label, t.Description, nullableString(t.Config), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert target %s: %w", t.Label, err)
	}

	return nil
}

func (s *SQLiteStore) ListTargets(stack string) ([]pkgmodel.Target, error) {
	rows, err := s.conn.Query(
		`SELECT id, stack, label, description, config, created_ts, updated_ts FROM targets WHERE stack = ? ORDER BY label`, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var targets []pkgmodel.Target
	for rows.Next() {
		var t pkgmodel.Target
		var config sql.NullString
		if err := rows.Scan(&t.ID, &t.Stack, &t.Label, &t.Description, &config, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if config.Valid {
			t.Config = []byte(config.String)
		}
		targets = append(targets, t)
	}

	return targets, rows.Err()
}

func (s *SQLiteStore) GetTarget(stack, label string) (*pkgmodel.Target, error) {
	var t pkgmodel.Target
	var config sql.NullString
	err := s.conn.QueryRow(
		`SELECT id, stack, label, description, config, created_ts, updated_ts FROM targets WHERE stack = ? AND label = ?`,
		stack, label).
		Scan(&t.ID, &t.Stack, &t.Label, &t.Description, &config, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "target", Label: label}
	}
	if err != nil {
		return nil, err
	}
	if config.Valid {
		t.Config = []byte(config.String)
	}
	return &t, nil
}

func (s *SQLiteStore) UpsertTemplate(t *pkgmodel.Template) error {
	_, span := sqliteTracer.Start(context.Background(), "UpsertTemplate")
	defer span.End()

	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = ksuid.New().String()
	}
	t.UpdatedAt = now

	_, err := s.conn.Exec(
		`INSERT INTO templates (id, stack, label, description, body, structured, created_ts, updated_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stack, label) DO UPDATE SET
		   description = excluded.description,
		   body = excluded.body,
		   structured = excluded.structured,
		   updated_ts = excluded.updated_ts`,
		t.ID, t.Stack, t.Label, t.Description, t.Text, nullableString(t.Structured), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s: %w", t.Label, err)
	}

	return nil
}

func (s *SQLiteStore) ListTemplates(stack string) ([]pkgmodel.Template, error) {
	rows, err := s.conn.Query(
		`SELECT id, stack, label, description, body, structured, created_ts, updated_ts FROM templates WHERE stack = ? ORDER BY label`, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var templates []pkgmodel.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}

	return templates, rows.Err()
}

func (s *SQLiteStore) GetTemplate(stack, label string) (*pkgmodel.Template, error) {
	rows, err := s.conn.Query(
		`SELECT id, stack, label, description, body, structured, created_ts, updated_ts FROM templates WHERE stack = ? AND label = ?`,
		stack, label)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer rows.Close()

	if !rows.Next() {
		return nil, &NotFoundError{Kind: "template", Label: label}
	}

	return scanTemplate(rows)
}

func scanTemplate(rows *sql.Rows) (*pkgmodel.Template, error) {
	var t pkgmodel.Template
	var structured sql.NullString
	if err := rows.Scan(&t.ID, &t.Stack, &t.Label, &t.Description, &t.Text, &structured, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if structured.Valid {
		t.Structured = []byte(structured.String)
	}
	return &t, nil
}

func (s *SQLiteStore) UpsertFetchSpec(fs *pkgmodel.FetchSpec) error {
	_, span := sqliteTracer.Start(context.Background(), "UpsertFetchSpec")
	defer span.End()

	if !pkgmodel.ValidVariableName(fs.Variable) {
		return fmt.Errorf("invalid variable name for fetch spec: %q", fs.Variable)
	}

	now := time.Now().UTC()

	_, err := s.conn.Exec(
		`INSERT INTO fetch_specs (id, stack, variable, resource_id, endpoint, method, body, json_path, description, created_ts, updated_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stack, variable) DO UPDATE SET
		   resource_id = excluded.resource_id,
		   endpoint = excluded.endpoint,
		   method = excluded.method,
		   body = excluded.body,
		   json_path = excluded.json_path,
		   description = excluded.description,
		   updated_ts = excluded.updated_ts`,
		ksuid.New().String(), fs.Stack, fs.Variable, fs.ResourceID, fs.Endpoint, fs.MethodOrDefault(),
		fs.Body, fs.JSONPath, fs.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert fetch spec for %s: %w", fs.Variable, err)
	}

	return nil
}

func (s *SQLiteStore) ListFetchSpecs(stack string) ([]pkgmodel.FetchSpec, error) {
	rows, err := s.conn.Query(
		`SELECT stack, variable, resource_id, endpoint, method, body, json_path, description FROM fetch_specs WHERE stack = ? ORDER BY variable`, stack)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch specs: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var specs []pkgmodel.FetchSpec
	for rows.Next() {
		var fs pkgmodel.FetchSpec
		var body, jsonPath sql.NullString
		if err := rows.Scan(&fs.Stack, &fs.Variable, &fs.ResourceID, &fs.Endpoint, &fs.Method, &body, &jsonPath, &fs.Description); err != nil {
			return nil, err
		}
		fs.Body = body.String
		fs.JSONPath = jsonPath.String
		specs = append(specs, fs)
	}

	return specs, rows.Err()
}

func (s *SQLiteStore) SetStackVariable(stack, name string, value any) error {
	_, span := sqliteTracer.Start(context.Background(), "SetStackVariable")
	defer span.End()

	if !pkgmodel.ValidVariableName(name) {
		return fmt.Errorf("invalid variable name: %q", name)
	}

	doc, err := s.stackDocument(stack)
	if err != nil {
		return err
	}

	updated, err := sjson.Set(doc, escapeKey(name), value)
	if err != nil {
		return fmt.Errorf("failed to set stack variable %s: %w", name, err)
	}

	_, err = s.conn.Exec(
		`UPDATE stack_variables SET document = ?, updated_ts = ? WHERE stack = ?`,
		updated, time.Now().UTC(), stack)
	return err
}

func (s *SQLiteStore) StackVariables(stack string) (map[string]any, error) {
	doc, err := s.stackDocument(stack)
	if err != nil {
		return nil, err
	}
	return documentToMap(doc), nil
}

func (s *SQLiteStore) stackDocument(stack string) (string, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT document FROM stack_variables WHERE stack = ?`, stack).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", &NotFoundError{Kind: "stack", Label: stack}
	}
	if err != nil {
		return "", err
	}
	return doc, nil
}

func (s *SQLiteStore) SetTargetVariable(stack, target, name string, value any) error {
	_, span := sqliteTracer.Start(context.Background(), "SetTargetVariable")
	defer span.End()

	if !pkgmodel.ValidVariableName(name) {
		return fmt.Errorf("invalid variable name: %q", name)
	}

	doc, err := s.targetDocument(stack, target)
	if err != nil {
		return err
	}

	updated, err := sjson.Set(doc, escapeKey(name), value)
	if err != nil {
		return fmt.Errorf("failed to set target variable %s: %w", name, err)
	}

	_, err = s.conn.Exec(
		`UPDATE targets SET variables = ?, updated_ts = ? WHERE stack = ? AND label = ?`,
		updated, time.Now().UTC(), stack, target)
	return err
}

func (s *SQLiteStore) TargetVariables(stack, target string) (map[string]any, error) {
	doc, err := s.targetDocument(stack, target)
	if err != nil {
		return nil, err
	}
	return documentToMap(doc), nil
}

func (s *SQLiteStore) targetDocument(stack, target string) (string, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT variables FROM targets WHERE stack = ? AND label = ?`, stack, target).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", &NotFoundError{Kind: "target", Label: target}
	}
	if err != nil {
		return "", err
	}
	return doc, nil
}

// Snapshot builds the read-only view one resolution pass works from: shared
// variables, every target's variables, and the stack's fetch specs.
func (s *SQLiteStore) Snapshot(stack string) (*scope.Snapshot, error) {
	_, span := sqliteTracer.Start(context.Background(), "Snapshot")
	defer span.End()

	shared, err := s.StackVariables(stack)
	if err != nil {
		return nil, err
	}

	targets, err := s.ListTargets(stack)
	if err != nil {
		return nil, err
	}

	perTarget := make(map[string]map[string]any, len(targets))
	for _, t := range targets {
		vars, err := s.TargetVariables(stack, t.Label)
		if err != nil {
			return nil, err
		}
		perTarget[t.Label] = vars
	}

	specs, err := s.ListFetchSpecs(stack)
	if err != nil {
		return nil, err
	}

	fetchSpecs := make(map[string]pkgmodel.FetchSpec, len(specs))
	for _, fs := range specs {
		fetchSpecs[fs.Variable] = fs
	}

	return &scope.Snapshot{
		Shared:     shared,
		PerTarget:  perTarget,
		FetchSpecs: fetchSpecs,
	}, nil
}

func (s *SQLiteStore) Counts() (*Counts, error) {
	var c Counts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"stacks", &c.Stacks},
		{"targets", &c.Targets},
		{"templates", &c.Templates},
		{"fetch_specs", &c.FetchSpecs},
	} {
		if err := s.conn.QueryRow(`SELECT COUNT(*) FROM ` + q.table).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", q.table, err)
		}
	}
	return &c, nil
}

func documentToMap(doc string) map[string]any {
	out := make(map[string]any)
	gjson.Parse(doc).ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = value.Value()
		return true
	})
	return out
}

// escapeKey guards sjson path metacharacters. Variable names are
// [A-Za-z0-9_]+ so nothing needs escaping today; kept as the single place to
// extend if the name grammar ever widens.
func escapeKey(name string) string {
	return name
}

func nullableString[T ~string | ~[]byte](v T) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}
