package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCounters(t *testing.T) {
	m := New()
	m.Source("cc", 12, time.Second, "")
	m.Source("cc", 3, time.Second, "")
	m.Source("ico", 0, time.Second, "download")
	m.Merge(5, 2, 8)
	m.Finish(40, 1, 3*time.Second, true)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.sourceRecords.WithLabelValues("cc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceFailures.WithLabelValues("ico", "download")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.merge.WithLabelValues("updated")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.datasetSize))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)

	dump := m.Dump()
	assert.Contains(t, dump, "ingester_source_records_total{source=cc} 15")
	assert.Contains(t, dump, "ingester_dedup_removed{} 1")
}

func TestFinishWithoutPersistLeavesLastSuccess(t *testing.T) {
	m := New()
	m.Finish(10, 0, time.Second, false)
	assert.Zero(t, testutil.ToFloat64(m.lastSuccess))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Source("hse", 4, time.Second, "")
	path := filepath.Join(t.TempDir(), "ingester.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `ingester_source_records_total{source="hse"} 4`)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.Source("fr", 1, time.Second, "")
	require.NoError(t, m.Push(context.Background(), srv.URL, "compliance-ingester"))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/compliance-ingester"), gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, New().Push(context.Background(), srv.URL, "job"))
}
