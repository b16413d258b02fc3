package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Boakye-20/charity-compliance-tracker/internal/config"
	"github.com/Boakye-20/charity-compliance-tracker/internal/fetch"
	"github.com/Boakye-20/charity-compliance-tracker/internal/store"
)

const changeMetric = "ingester_record_changes"

type victoriaSink struct {
	cfg    config.VictoriaConfig
	ua     string
	client *http.Client
	now    func() time.Time
}

// NewVictoria imports per-regulator change counts through the Prometheus
// text import endpoint.
func NewVictoria(cfg config.VictoriaConfig, userAgent string) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &victoriaSink{cfg: cfg, ua: userAgent, client: fetch.NewHTTPClient(to), now: time.Now}
}

func (v *victoriaSink) Name() string { return "victoria" }

func (v *victoriaSink) Push(ctx context.Context, changes []store.Change) error {
	if len(changes) == 0 {
		return nil
	}
	body := changeCounts(changes, v.now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+"/api/v1/import/prometheus", strings.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "victoria: build request")
	}
	req.Header.Set("Content-Type", "text/plain")
	if v.ua != "" {
		req.Header.Set("User-Agent", v.ua)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "victoria: push")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return eris.Errorf("victoria push failed: %s", resp.Status)
	}
	return nil
}

// changeCounts renders one sample per regulator, domain and outcome, in a
// stable order.
func changeCounts(changes []store.Change, tsMillis int64) string {
	counts := make(map[string]int)
	for _, c := range changes {
		lbls := fmt.Sprintf(`domain="%s",outcome="%s",regulator="%s"`,
			escape(c.Record.Domain), c.Outcome, escape(string(c.Record.Regulator)))
		counts[lbls]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s{%s} %d %d\n", changeMetric, k, counts[k], tsMillis)
	}
	return buf.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
