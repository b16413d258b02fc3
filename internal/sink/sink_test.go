package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/model"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

func change(outcome store.Outcome, id string, reg model.Regulator, domain string) store.Change {
	return store.Change{Outcome: outcome, Record: model.Record{
		ID: id, Title: "title " + id, SourceURL: "https://example.org/" + id,
		PublishedDate: "2023-05-02", LastUpdated: "2023-05-02",
		Regulator: reg, Domain: domain, DocumentType: model.DocGuidance,
	}}
}

type captured struct {
	path, ua, tenant, ctype string
	body                    []byte
}

func capture(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.ua = r.Header.Get("User-Agent")
		c.tenant = r.Header.Get("X-Scope-OrgID")
		c.ctype = r.Header.Get("Content-Type")
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestLokiGroupsStreamsByRegulatorAndOutcome(t *testing.T) {
	srv, got := capture(t, http.StatusNoContent)
	s := NewLoki(config.LokiConfig{URL: srv.URL, TenantID: "charities", Job: "ingester-test"}, "test-agent")
	s.(*lokiSink).now = func() time.Time { return time.Unix(100, 0) }

	err := s.Push(context.Background(), []store.Change{
		change(store.OutcomeAdded, "A", model.RegulatorCC, "governance"),
		change(store.OutcomeUpdated, "B", model.RegulatorICO, "gdpr"),
		change(store.OutcomeAdded, "C", model.RegulatorCC, "safeguarding"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/loki/api/v1/push", got.path)
	assert.Equal(t, "charities", got.tenant)
	assert.Equal(t, "test-agent", got.ua)
	assert.Equal(t, "application/json", got.ctype)

	var payload struct {
		Streams []struct {
			Stream map[string]string `json:"stream"`
			Values [][2]string       `json:"values"`
		} `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Len(t, payload.Streams, 2)
	first := payload.Streams[0]
	assert.Equal(t, map[string]string{"job": "ingester-test", "regulator": "CC", "outcome": "added"}, first.Stream)
	require.Len(t, first.Values, 2)
	assert.Equal(t, "100000000000", first.Values[0][0])
	assert.Equal(t, "100000000002", first.Values[1][0])

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(first.Values[0][1]), &line))
	assert.Equal(t, "A", line["id"])
	assert.Equal(t, "https://example.org/A", line["url"])
}

func TestLokiReportsHTTPFailure(t *testing.T) {
	srv, _ := capture(t, http.StatusBadRequest)
	err := NewLoki(config.LokiConfig{URL: srv.URL}, "").Push(context.Background(),
		[]store.Change{change(store.OutcomeAdded, "A", model.RegulatorCC, "governance")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestEmptyPushSendsNothing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer srv.Close()
	require.NoError(t, NewLoki(config.LokiConfig{URL: srv.URL}, "").Push(context.Background(), nil))
	require.NoError(t, NewVictoria(config.VictoriaConfig{URL: srv.URL}, "").Push(context.Background(), nil))
	assert.Zero(t, calls)
}

func TestVictoriaImportsChangeCounts(t *testing.T) {
	srv, got := capture(t, http.StatusNoContent)
	s := NewVictoria(config.VictoriaConfig{URL: srv.URL}, "test-agent")
	s.(*victoriaSink).now = func() time.Time { return time.UnixMilli(1700000000000) }

	err := s.Push(context.Background(), []store.Change{
		change(store.OutcomeAdded, "A", model.RegulatorCC, "governance"),
		change(store.OutcomeAdded, "B", model.RegulatorCC, "governance"),
		change(store.OutcomeUpdated, "C", model.RegulatorICO, "gdpr"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/import/prometheus", got.path)
	assert.Equal(t, "text/plain", got.ctype)
	assert.Equal(t,
		`ingester_record_changes{domain="gdpr",outcome="updated",regulator="ICO"} 1 1700000000000`+"\n"+
			`ingester_record_changes{domain="governance",outcome="added",regulator="CC"} 2 1700000000000`+"\n",
		string(got.body))
}

func TestVictoriaReportsHTTPFailure(t *testing.T) {
	srv, _ := capture(t, http.StatusServiceUnavailable)
	err := NewVictoria(config.VictoriaConfig{URL: srv.URL}, "").Push(context.Background(),
		[]store.Change{change(store.OutcomeAdded, "A", model.RegulatorCC, "governance")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestEscapeLabelValue(t *testing.T) {
	assert.Equal(t, `a\"b\\c\n`, escape("a\"b\\c\n"))
}
