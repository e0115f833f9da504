package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/config"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
)

const upload = `Order,Mo Sold,Yr Sold,Notes
1,06,2010, a b
1,06,2010, a b
2,07,2009,
`

type stubHistory struct {
	runs  []core.Report
	err   error
	limit int
}

func (h *stubHistory) Recent(_ context.Context, limit int) ([]core.Report, error) {
	h.limit = limit
	return h.runs, h.err
}

func testServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Config: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			MaxConcurrentRuns: 2,
			RunWait:           time.Second,
		},
		MaxFileSize: 1 << 20,
		Pipeline:    core.NewPipeline(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewServer(opts)
}

// multipartBody builds a form with a single "file" part.
func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFile(t *testing.T, s *Server, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleClean(t *testing.T) {
	s := testServer(t, nil)

	rec := postFile(t, s, "/api/clean", "houses.csv", upload)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Order,Notes,Date When Sold\n1,ab,6/2010\n2,N/A,7/2009\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="applied_changes_houses.csv"`)
	assert.Equal(t, "3", rec.Header().Get("X-Clean-Rows-Read"))
	assert.Equal(t, "1", rec.Header().Get("X-Clean-Duplicates-Removed"))
	assert.Equal(t, "2", rec.Header().Get("X-Clean-Rows-Written"))
	assert.NotEmpty(t, rec.Header().Get("X-Clean-Run-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHandleCleanReport(t *testing.T) {
	s := testServer(t, nil)

	rec := postFile(t, s, "/api/clean/report", "houses.csv", upload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "houses.csv", report.Input)
	assert.Equal(t, "applied_changes_houses.csv", report.Output)
	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, 2, report.RowsWritten)
	assert.True(t, report.ColumnsCombined)
	assert.Equal(t, []string{"Order", "Notes", "Date When Sold"}, report.Columns)
}

func TestHandleClean_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"unsupported extension", "houses.json", upload, http.StatusBadRequest, "FILE006"},
		{"ragged rows", "houses.csv", "a,b\n1,2,3\n", http.StatusUnprocessableEntity, "VAL001"},
		{"duplicate header", "houses.csv", "a,a\n1,2\n", http.StatusUnprocessableEntity, "VAL002"},
		{"empty file", "houses.csv", "", http.StatusUnprocessableEntity, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t, nil)
			rec := postFile(t, s, "/api/clean", tt.filename, tt.content)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestHandleClean_NoFile(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/clean", strings.NewReader(""))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE007", decodeError(t, rec).Code)
}

func TestHandleClean_TooLarge(t *testing.T) {
	s := testServer(t, func(o *Options) { o.MaxFileSize = 16 })

	rec := postFile(t, s, "/api/clean", "houses.csv", upload+strings.Repeat("3,01,2011,x\n", formOverhead/8))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)
}

func TestHandleClean_Busy(t *testing.T) {
	s := testServer(t, func(o *Options) {
		o.Config.MaxConcurrentRuns = 1
		o.Config.RunWait = 10 * time.Millisecond
	})
	require.NoError(t, s.limiter.Acquire(context.Background()))
	defer s.limiter.Release()

	rec := postFile(t, s, "/api/clean", "houses.csv", upload)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RUN003", decodeError(t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	s := testServer(t, func(o *Options) { o.Config.APIKeys = []string{"secret"} })

	rec := postFile(t, s, "/api/clean", "houses.csv", upload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body, ctype := multipartBody(t, "houses.csv", upload)
	req := httptest.NewRequest(http.MethodPost, "/api/clean", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListRuns(t *testing.T) {
	history := &stubHistory{runs: []core.Report{{RunID: "r1", Input: "data.csv", RowsRead: 10}}}
	s := testServer(t, func(o *Options) { o.History = history })

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=500", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxHistoryLimit, history.limit)

	var runs []core.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
}

func TestHandleListRuns_Errors(t *testing.T) {
	tests := []struct {
		name    string
		history HistoryReader
		query   string
		status  int
	}{
		{"history disabled", nil, "", http.StatusNotFound},
		{"bad limit", &stubHistory{}, "?limit=abc", http.StatusBadRequest},
		{"negative limit", &stubHistory{}, "?limit=-1", http.StatusBadRequest},
		{"store failure", &stubHistory{err: errors.New("connection refused")}, "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t, func(o *Options) { o.History = tt.history })

			req := httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandleIndex(t *testing.T) {
	history := &stubHistory{runs: []core.Report{
		{Input: "<script>.csv", RowsRead: 3, RowsWritten: 2, StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{Input: "broken.csv", Error: "load: format error"},
	}}
	s := testServer(t, func(o *Options) { o.History = history })

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/api/clean"`)
	assert.Contains(t, body, "&lt;script&gt;.csv")
	assert.NotContains(t, body, "<script>.csv")
	assert.Contains(t, body, "2024-05-01 12:00:00")
	assert.Contains(t, body, "failed: load: format error")
	assert.Contains(t, body, "up to 1 MB")
}

func TestHandleIndex_HistoryFailure(t *testing.T) {
	s := testServer(t, func(o *Options) {
		o.History = &stubHistory{err: errors.New("timeout")}
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No runs yet.")
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["capacity"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cleaner_runs_total 1\n"))
	})

	withMetrics := testServer(t, func(o *Options) { o.Metrics = metrics })
	rec := httptest.NewRecorder()
	withMetrics.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cleaner_runs_total")

	without := testServer(t, nil)
	rec = httptest.NewRecorder()
	without.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"busy", core.ErrTooManyRuns, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"no file", errNoFile, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestShutdown_WithoutStart(t *testing.T) {
	s := testServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
