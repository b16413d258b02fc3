package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

type lokiSink struct {
	cfg    config.LokiConfig
	ua     string
	client *http.Client
	now    func() time.Time
}

// NewLoki pushes one log line per changed record.
func NewLoki(cfg config.LokiConfig, userAgent string) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &lokiSink{cfg: cfg, ua: userAgent, client: fetch.NewHTTPClient(to), now: time.Now}
}

func (l *lokiSink) Name() string { return "loki" }

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func (l *lokiSink) Push(ctx context.Context, changes []store.Change) error {
	if len(changes) == 0 {
		return nil
	}

	// one stream per label set; Loki rejects out-of-order lines within a
	// stream, so every line carries the same push timestamp plus its index
	streams := make(map[string]*lokiStream)
	var order []string
	base := l.now().UnixNano()
	for i, c := range changes {
		r := c.Record
		line, err := json.Marshal(map[string]any{
			"id":             r.ID,
			"title":          r.Title,
			"url":            r.SourceURL,
			"published_date": r.PublishedDate,
			"last_updated":   r.LastUpdated,
			"domain":         r.Domain,
			"document_type":  r.DocumentType,
			"risk_level":     r.RiskLevel,
		})
		if err != nil {
			return eris.Wrap(err, "loki: encode record")
		}
		key := string(r.Regulator) + "/" + string(c.Outcome)
		s, ok := streams[key]
		if !ok {
			s = &lokiStream{Stream: map[string]string{
				"job":       l.cfg.Job,
				"regulator": string(r.Regulator),
				"outcome":   string(c.Outcome),
			}}
			streams[key] = s
			order = append(order, key)
		}
		// Loki expects ns timestamp as a decimal string
		s.Values = append(s.Values, [2]string{strconv.FormatInt(base+int64(i), 10), string(line)})
	}

	payload := struct {
		Streams []*lokiStream `json:"streams"`
	}{}
	for _, k := range order {
		payload.Streams = append(payload.Streams, streams[k])
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "loki: encode payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "loki: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if l.ua != "" {
		req.Header.Set("User-Agent", l.ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "loki: push")
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return eris.Errorf("loki push failed http %d", resp.StatusCode)
	}
	return nil
}
