package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dataport/internal/config"
	"github.com/JonMunkholm/dataport/internal/core"
	_ "github.com/JonMunkholm/dataport/internal/core/tables"
	"github.com/JonMunkholm/dataport/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey   = "test-key"
	testOwner = "7b0c5c36-3f7e-4a8e-9b55-2d7b2a8f3f10"
	otherKey  = "other-key"
	otherUser = "0d7c7a1e-5f9a-4f7e-8f55-9b6c2d1e0a22"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second},
		Security: config.SecurityConfig{
			RequireAPIKey: true,
			APIKeys:       []string{testKey + ":" + testOwner, otherKey + ":" + otherUser},
			DefaultOwner:  "00000000-0000-0000-0000-000000000001",
			CORSOrigins:   []string{"https://app.example"},
			EnableCSP:     true,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc, err := core.NewService(store, core.ServiceConfig{MaxConcurrent: 2, MaxWaitTime: time.Second})
	require.NoError(t, err)

	srv, err := NewServer(svc, cfg)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request, key string) *httptest.ResponseRecorder {
	t.Helper()
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, schema, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+schema, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz_NoAuth(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAPI_RequiresKey(t *testing.T) {
	srv := newTestServer(t, testConfig())

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "nope", http.StatusForbidden},
		{"valid", testKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/schemas", nil), tt.key)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListSchemas(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/schemas", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)

	views := decode[[]schemaView](t, rec)
	require.Len(t, views, 2)
	assert.Equal(t, core.SchemaTasks, views[0].Key)
	assert.Equal(t, "title", views[0].Fields[0].Name)
	assert.True(t, views[0].Fields[0].Required)
	assert.Equal(t, "enum", views[0].Fields[2].Kind)
	assert.Equal(t, []string{"todo", "in-progress", "completed"}, views[0].Fields[2].Values)
	assert.Equal(t, core.SchemaTeamMembers, views[1].Key)
}

func TestDownloadTemplate(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/template/tasks", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "title,description,status,priority,due_date\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tasks_template.csv")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/template/invoices", nil), testKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SCH001", decode[ErrorResponse](t, rec).Code)
}

func TestExport_NoData(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/export/tasks", nil), testKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "EXP001", resp.Code)
	assert.Equal(t, "No data found to export", resp.Message)
}

func TestImportFlow(t *testing.T) {
	srv := newTestServer(t, testConfig())

	csv := "title,status,priority\nFix bug,todo,high\n,todo,low\nWrite docs,in-progress,medium\n"
	rec := do(t, srv, uploadRequest(t, "tasks", "tasks.csv", csv), testKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	view := decode[core.SessionView](t, rec)
	assert.Equal(t, core.StateFileSelected, view.State)
	assert.Equal(t, []string{"title", "status", "priority"}, view.Headers)
	assert.Equal(t, 3, view.TotalRows)
	require.Len(t, view.Mapping.Entries, 3)
	assert.Equal(t, "priority", view.Mapping.Entries[2].Target)

	base := "/api/imports/session/" + view.ID

	// Another owner cannot see the session.
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base, nil), otherKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodPut, base+"/mapping", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.StateMapped, decode[core.SessionView](t, rec).State)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/analyze", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode[core.AnalysisResult](t, rec)
	assert.Equal(t, 2, analysis.ValidRows)
	assert.Equal(t, 1, analysis.InvalidRows)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/run", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[runResponse](t, rec)
	assert.Equal(t, 3, run.Summary.TotalRows)
	assert.Equal(t, 2, run.Summary.ImportedCount)
	assert.Equal(t, 1, run.Summary.FailedCount)
	require.Len(t, run.Rejected, 1)
	assert.Equal(t, 2, run.Rejected[0].Row)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/report", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasks.csv")
	assert.Contains(t, rec.Body.String(), "Title is required")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/export/tasks", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"title","description","status","priority","due_date","created_at"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Fix bug","","todo","high","",`), lines[1])
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tasks_export_")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/export/tasks", nil), otherKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/imports/history", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]core.AuditRecord](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, core.StatusCompletedWithErrors, history[0].Status)
	assert.Equal(t, 2, history[0].ImportedRows)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, base, nil), testKey)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base, nil), testKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateImport_Errors(t *testing.T) {
	srv := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		schema   string
		file     string
		content  string
		wantCode int
		wantErr  string
	}{
		{"unknown schema", "invoices", "a.csv", "title\nx\n", http.StatusNotFound, "SCH001"},
		{"not a csv", "tasks", "a.txt", "title\nx\n", http.StatusUnsupportedMediaType, "FILE003"},
		{"empty file", "tasks", "a.csv", "", http.StatusBadRequest, "FILE005"},
		{"too many columns", "tasks", "a.csv", strings.Repeat("c,", 50) + "c\n", http.StatusBadRequest, "FILE006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, uploadRequest(t, tt.schema, tt.file, tt.content), testKey)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}

	assert.Equal(t, 0, srv.service.SessionCount(), "failed uploads leave no session behind")
}

func TestCreateImport_TooManyColumnsDetail(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, uploadRequest(t, "tasks", "wide.csv", strings.Repeat("c,", 50)+"c\n"), testKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Detail, "Too many columns (51). Maximum allowed is 50.")
}

func TestSetMapping_ByColumns(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, uploadRequest(t, "tasks", "t.csv", "Task Name,State\nShip it,todo\n"), testKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[core.SessionView](t, rec)
	assert.Equal(t, "", view.Mapping.Entries[0].Target)

	body := strings.NewReader(`{"columns":{"Task Name":"title","State":"status"}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/imports/session/"+view.ID+"/mapping", body)
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, srv, req, testKey)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view = decode[core.SessionView](t, rec)
	assert.Equal(t, "title", view.Mapping.Entries[0].Target)
	assert.Equal(t, "status", view.Mapping.Entries[1].Target)

	body = strings.NewReader(`{"columns":{"Task Name":"owner"}}`)
	rec = do(t, srv, httptest.NewRequest(http.MethodPut, "/api/imports/session/"+view.ID+"/mapping", body), testKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MAP003", decode[ErrorResponse](t, rec).Code)
}

func TestRun_MappingConflict(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, uploadRequest(t, "tasks", "t.csv", "title,name\nA,B\n"), testKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[core.SessionView](t, rec)
	base := "/api/imports/session/" + view.ID

	body := strings.NewReader(`{"columns":{"name":"title"}}`)
	rec = do(t, srv, httptest.NewRequest(http.MethodPut, base+"/mapping", body), testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[core.SessionView](t, rec).Conflicts, 1)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, base+"/run", nil), testKey)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "MAP001", decode[ErrorResponse](t, rec).Code)
}

func TestRun_BeforeMapping(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, uploadRequest(t, "tasks", "t.csv", "title\nA\n"), testKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[core.SessionView](t, rec)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/imports/session/"+view.ID+"/run", nil), testKey)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "IMP003", decode[ErrorResponse](t, rec).Code)
}

func TestRun_HTMXRendersReport(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, uploadRequest(t, "tasks", "t.csv", "title\n<b>bold</b>\n"), testKey)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[core.SessionView](t, rec)
	base := "/api/imports/session/" + view.ID

	rec = do(t, srv, httptest.NewRequest(http.MethodPut, base+"/mapping", nil), testKey)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/run", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(t, srv, req, testKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "import-success")
}

func TestErrorResponse_HTMX(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/imports/session/missing", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(t, srv, req, testKey)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-code="IMP001"`)
}

func TestDefaultOwner_WhenKeyOptional(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = false
	srv := newTestServer(t, cfg)

	rec := do(t, srv, uploadRequest(t, "tasks", "t.csv", "title\nA\n"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[core.SessionView](t, rec)

	// The anonymous session belongs to the default owner, not to a keyed one.
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/imports/session/"+view.ID, nil), testKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/imports/session/"+view.ID, nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/schemas", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
	rec := do(t, srv, req, "")

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	srv := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrSessionNotFound, http.StatusNotFound},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{badRequest("no file provided"), http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
