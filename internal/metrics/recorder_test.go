package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/eventlog"
	"github.com/joseph-ayodele/docrows/internal/logging"
	"github.com/joseph-ayodele/docrows/internal/metrics"
)

func TestRecorder_CountsEventLogEntries(t *testing.T) {
	rec := metrics.NewRecorder()
	l := eventlog.New(eventlog.WithLogger(logging.NewNop()), eventlog.WithObserver(rec))

	l.Success("commit", "2 rows")
	l.Success("commit", "1 row")
	l.Error("extraction", "timed out")

	want := `
# HELP docrows_workflow_events_total Event log entries by action and status.
# TYPE docrows_workflow_events_total counter
docrows_workflow_events_total{action="commit",status="success"} 2
docrows_workflow_events_total{action="extraction",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(want), "docrows_workflow_events_total"))
}

func TestRecorder_ObserveExtraction(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.ObserveExtraction(3, 2*time.Second, nil)
	rec.ObserveExtraction(2, time.Second, common.NewExtractionError(context.DeadlineExceeded))
	rec.ObserveExtraction(1, time.Second, errors.New("boom"))

	want := `
# HELP docrows_extraction_documents_total Documents submitted for extraction by outcome.
# TYPE docrows_extraction_documents_total counter
docrows_extraction_documents_total{outcome="error"} 1
docrows_extraction_documents_total{outcome="ok"} 3
docrows_extraction_documents_total{outcome="timeout"} 2
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(want), "docrows_extraction_documents_total"))

	n, err := testutil.GatherAndCount(rec.Registry(), "docrows_extraction_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeOK, metrics.Outcome(nil))
	assert.Equal(t, metrics.OutcomeCanceled, metrics.Outcome(common.NewExtractionError(context.Canceled)))
	assert.Equal(t, metrics.OutcomeTimeout, metrics.Outcome(context.DeadlineExceeded))
	assert.Equal(t, metrics.OutcomeError, metrics.Outcome(errors.New("x")))
}

func TestRecorder_RegisterCache(t *testing.T) {
	rec := metrics.NewRecorder()
	require.NoError(t, rec.RegisterCache(func() (uint64, uint64) { return 4, 1 }))

	want := `
# HELP docrows_extraction_cache_hits_total Per-document extraction cache hits.
# TYPE docrows_extraction_cache_hits_total counter
docrows_extraction_cache_hits_total 4
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(want), "docrows_extraction_cache_hits_total"))
	assert.Error(t, rec.RegisterCache(func() (uint64, uint64) { return 0, 0 }), "duplicate registration")
}

func TestHandler_Routes(t *testing.T) {
	rec := metrics.NewRecorder()
	l := eventlog.New(eventlog.WithLogger(logging.NewNop()), eventlog.WithObserver(rec))
	l.Info("load_schema", "3 columns")

	srv := httptest.NewServer(metrics.NewHandler(rec, l))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, body := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `docrows_workflow_events_total{action="load_schema",status="info"} 1`)

	code, body = get("/events")
	assert.Equal(t, http.StatusOK, code)
	var entries []eventlog.Entry
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, constants.LogInfo, entries[0].Status)

	code, _ = get("/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.Serve(ctx, "127.0.0.1:0", metrics.NewHandler(metrics.NewRecorder(), nil), logging.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
