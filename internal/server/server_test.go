package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/metrics"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/store"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
)

var fixedNow = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	store   *store.SQLiteStore
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	st, err := store.NewStore(store.Config{DBPath: store.MemoryPath, Clock: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m, err := metrics.New(false)
	require.NoError(t, err)

	p := pipeline.New(
		pipeline.WithClock(func() time.Time { return fixedNow }),
		pipeline.WithLocation(time.UTC),
		pipeline.WithObserver(m),
	)

	deps := Deps{
		Parser:   p,
		Store:    st,
		Metrics:  m,
		MaxBatch: 3,
		Workers:  2,
		Version:  "test",
		Clock:    func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	return &testEnv{handler: NewRouter(deps), store: st, metrics: m}
}

type apiResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp string          `json:"timestamp"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), ServiceName)
	assert.Equal(t, "2025-10-01T09:00:00Z", resp.Timestamp)

	rec, resp = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"ACC API"}`, string(resp.Data))
}

func TestHealth_StoreDown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	rec, resp := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestParse(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/parse", `{"text":"CSC101 final exam 2025-11-15 at 2:00pm"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)

	var result pipeline.ParseResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, []string{"CSC101"}, result.Courses)
	assert.Contains(t, result.Keywords, "exam")
	require.NotNil(t, result.ResolvedDatetime)
	y, m, d := result.ResolvedDatetime.Date()
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.November, m)
	assert.Equal(t, 15, d)
}

func TestParse_EmptyTextIsARecord(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/parse", `{"text":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"error":"empty input text"`)
}

func TestParse_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     string
	}{
		{"not json content type", `text=hi`, "text/plain", "Request must be JSON"},
		{"malformed json", `{"text":`, "application/json", "Request body must be a JSON object"},
		{"json array", `["hi"]`, "application/json", "Request body must be a JSON object"},
		{"missing text", `{"body":"hi"}`, "application/json", "Missing required field: 'text'"},
		{"numeric text", `{"text":42}`, "application/json", "Field 'text' must be a string"},
		{"null text", `{"text":null}`, "application/json", "Field 'text' must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp apiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestParseBatch(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/parse/batch", `{"texts":["MTH 201 quiz","hello",7]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		Results []pipeline.ParseResult `json:"results"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, 3, data.Count)
	require.Len(t, data.Results, 3)

	assert.Equal(t, []string{"MTH 201"}, data.Results[0].Courses)
	assert.Equal(t, "hello", data.Results[1].OriginalText)
	assert.Empty(t, data.Results[1].Error)
	assert.Equal(t, "invalid input type: expected string, got float64", data.Results[2].Error)
}

func TestParseBatch_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		body    string
		wantErr string
	}{
		{`{}`, "Missing required field: 'texts'"},
		{`{"texts":"one"}`, "Field 'texts' must be a list"},
		{`{"texts":null}`, "Field 'texts' must be a list"},
		{`{"texts":["a","b","c","d"]}`, "Maximum batch size is 3 texts"},
	}

	for _, tt := range tests {
		rec, resp := env.do(t, http.MethodPost, "/parse/batch", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.wantErr, resp.Error, tt.body)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/tasks",
		`{"title":"Final","description":"room 4","text":"CSC101 final exam 2025-11-15 at 2:00pm"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created store.Task
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotZero(t, created.ID)
	assert.Equal(t, "Final", created.Title)
	assert.Equal(t, []string{"CSC101"}, created.Courses)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, store.StatusPending, created.Status)

	_, resp = env.do(t, http.MethodPost, "/tasks", `{"title":"Undated"}`)
	var undated store.Task
	require.NoError(t, json.Unmarshal(resp.Data, &undated))

	rec, resp = env.do(t, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tasks []store.Task `json:"tasks"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, created.ID, list.Tasks[0].ID, "dated tasks sort first")

	path := "/tasks/" + jsonNumber(created.ID)

	rec, resp = env.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"parsed_data"`)

	rec, _ = env.do(t, http.MethodPut, path, `{"title":"Final exam","due_date":"2025-12-01T10:00:00+01:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final exam", got.Title)
	assert.Equal(t, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), *got.DueDate)

	rec, _ = env.do(t, http.MethodPut, path, `{"due_date":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	rec, resp = env.do(t, http.MethodPost, path+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":`+jsonNumber(created.ID)+`,"status":"completed"}`, string(resp.Data))

	rec, resp = env.do(t, http.MethodGet, "/tasks?status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 1, list.Count)

	rec, _ = env.do(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", resp.Error)
}

func TestCreateTask_ParsedDataEncodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	env := newTestEnv(t, func(d *Deps) { d.Logger = logging.NewLoggerFromCore(core) })

	orig := marshalParsed
	marshalParsed = func(any) ([]byte, error) { return nil, errors.New("encode failed") }
	t.Cleanup(func() { marshalParsed = orig })

	rec, resp := env.do(t, http.MethodPost, "/tasks", `{"title":"Quiz","text":"CSC101 quiz tomorrow"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created store.Task
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, []string{"CSC101"}, created.Courses)
	assert.Nil(t, created.ParsedData)

	entries := logs.FilterMessage("parsed data not stored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "encode failed", entries[0].ContextMap()["error"])
}

func TestTasks_BadRequests(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodPost, "/tasks", `{"title":"x"}`)
	var task store.Task
	require.NoError(t, json.Unmarshal(resp.Data, &task))
	path := "/tasks/" + jsonNumber(task.ID)

	tests := []struct {
		method, path, body string
		wantStatus         int
		wantErr            string
	}{
		{http.MethodPost, "/tasks", `{"description":"no title"}`, 400, "Missing required field: 'title'"},
		{http.MethodPost, "/tasks", `{"title":""}`, 400, "Title must not be empty"},
		{http.MethodPost, "/tasks", `{"title":"x","text":5}`, 400, "Field 'text' must be a string"},
		{http.MethodGet, "/tasks?status=archived", "", 400, "Invalid status (must be pending, completed, or cancelled)"},
		{http.MethodGet, "/tasks/abc", "", 400, "Invalid task id"},
		{http.MethodPut, path, `{}`, 400, "No fields to update"},
		{http.MethodPut, path, `{"status":"done"}`, 400, "Invalid status (must be pending, completed, or cancelled)"},
		{http.MethodPut, path, `{"due_date":"next friday"}`, 400, "Field 'due_date' must be an RFC 3339 string or null"},
		{http.MethodPut, "/tasks/999", `{"title":"y"}`, 404, "Task not found"},
		{http.MethodDelete, "/tasks/999", "", 404, "Task not found"},
		{http.MethodPost, "/tasks/999/complete", "", 404, "Task not found"},
	}

	for _, tt := range tests {
		rec, resp := env.do(t, tt.method, tt.path, tt.body)
		assert.Equal(t, tt.wantStatus, rec.Code, "%s %s %s", tt.method, tt.path, tt.body)
		assert.Equal(t, tt.wantErr, resp.Error, "%s %s %s", tt.method, tt.path, tt.body)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", resp.Error)

	rec, resp = env.do(t, http.MethodGet, "/parse", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", resp.Error)
}

func TestRequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.CORSOrigins = []string{"https://calendar.example"} })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://calendar.example")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "https://calendar.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/parse", nil)
	req.Header.Set("Origin", "https://calendar.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

type panicParser struct{}

func (panicParser) Parse(string) *pipeline.ParseResult { panic("boom") }
func (panicParser) ParseBatch(context.Context, []any, int) ([]*pipeline.ParseResult, error) {
	return nil, errors.New("unused")
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Parser = panicParser{} })

	rec, resp := env.do(t, http.MethodPost, "/parse", `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", resp.Error)

	rec, resp = env.do(t, http.MethodPost, "/parse/batch", `{"texts":["hi"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Batch parse interrupted", resp.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/parse", `{"text":"quiz tomorrow"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "acc_parse_total")
	assert.Contains(t, body, `acc_http_requests_total{method="POST",route="/parse",status="200"} 1`)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(config.ServerConfig{ListenAddr: ":0"}, Deps{})
	assert.Error(t, err)
}

func TestServer_Serve(t *testing.T) {
	st, err := store.NewStore(store.Config{DBPath: store.MemoryPath})
	require.NoError(t, err)
	defer st.Close()

	srv, err := New(config.ServerConfig{ListenAddr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Deps{Parser: pipeline.New(), Store: st})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/parse", "application/json",
		bytes.NewBufferString(`{"text":"HCI lab"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
