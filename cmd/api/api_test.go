package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/store"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeMigrations struct {
	statuses []migrate.Status
	err      error
}

func (f fakeMigrations) Status(context.Context) ([]migrate.Status, error) { return f.statuses, f.err }

func (f fakeMigrations) Pending(context.Context) ([]migrate.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []migrate.Status
	for _, s := range f.statuses {
		if !s.Applied {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Enums(context.Context) ([]store.EnumType, error) {
	return []store.EnumType{{Name: "sexo", Labels: []string{"masculino", "feminino"}}}, nil
}
func (fakeCatalog) EnumUsages(context.Context) ([]store.EnumUsage, error) {
	return []store.EnumUsage{{Type: "sexo", Table: "cidadao", Column: "sexo"}}, nil
}
func (fakeCatalog) Tables(context.Context) ([]store.Table, error) {
	return []store.Table{{Name: "cidadao", HasUpdatedAt: true, UpdatedAtTrigger: true}}, nil
}
func (fakeCatalog) Constraints(context.Context) ([]store.Constraint, error) { return nil, nil }
func (fakeCatalog) Indexes(context.Context) ([]store.Index, error)          { return nil, nil }
func (fakeCatalog) Triggers(context.Context) ([]store.Trigger, error)       { return nil, nil }
func (fakeCatalog) Functions(context.Context) ([]store.Function, error)     { return nil, nil }
func (fakeCatalog) Policies(context.Context) ([]store.Policy, error)        { return nil, nil }
func (fakeCatalog) Extensions(context.Context) ([]store.Extension, error)   { return nil, nil }

func newTestApp(ping error, migrations fakeMigrations) *application {
	return &application{
		config:     config{Addr: ":0"},
		db:         fakePinger{err: ping},
		catalog:    fakeCatalog{},
		migrations: migrations,
		metrics:    http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }),
		logger:     logger.Discard(),
	}
}

var sampleStatuses = []migrate.Status{
	{Version: 20240101000000, Name: "Extensoes", Key: "Extensoes20240101000000", Applied: true},
	{Version: 20240101000100, Name: "EstruturaOrganizacional", Key: "EstruturaOrganizacional20240101000100"},
}

func serve(t *testing.T, app *application, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	app.mount().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{}), "/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, version, body["version"])
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	rec := serve(t, newTestApp(errors.New("connection refused"), fakeMigrations{}), "/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestGetMigrations(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{statuses: sampleStatuses}), "/v1/migrations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Success bool             `json:"success"`
		Data    []migrate.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.True(t, body.Data[0].Applied)
	assert.Equal(t, "EstruturaOrganizacional20240101000100", body.Data[1].Key)
}

func TestGetMigrationsError(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{err: errors.New("boom")}), "/v1/migrations")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to read migration status")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestGetPendingMigrations(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{statuses: sampleStatuses}), "/v1/migrations/pending")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []migrate.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(20240101000100), body.Data[0].Version)
}

func TestGetPendingMigrationsUpToDate(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{statuses: sampleStatuses[:1]}), "/v1/migrations/pending")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema is up to date")
}

func TestGetSchemaReport(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{statuses: sampleStatuses}), "/v1/schema/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Enums []struct {
				Name   string   `json:"name"`
				Usages []string `json:"usages"`
			} `json:"enums"`
			Problems []struct {
				Kind   string `json:"kind"`
				Object string `json:"object"`
			} `json:"problems"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data.Enums, 1)
	assert.Equal(t, []string{"cidadao.sexo"}, body.Data.Enums[0].Usages)
	require.Len(t, body.Data.Problems, 1)
	assert.Equal(t, "pending_migration", body.Data.Problems[0].Kind)
}

func TestMetricsRoute(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(t, newTestApp(nil, fakeMigrations{}), "/v1/beneficios")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
