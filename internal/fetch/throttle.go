package fetch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type throttled struct {
	next    Fetcher
	limiter *rate.Limiter
}

// Throttle spaces successive requests through f at least delay apart.
// The first request goes out immediately. A zero delay disables the limit.
func Throttle(f Fetcher, delay time.Duration) Fetcher {
	if delay <= 0 {
		return f
	}
	return &throttled{next: f, limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

func (t *throttled) Get(ctx context.Context, url string) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return t.next.Get(ctx, url)
}
