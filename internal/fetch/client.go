package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

// Response is a fetched body with its status. Non-2xx responses are returned, not raised.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool { return r.StatusCode/100 == 2 }

// Fetcher is the network capability adapters consume.
type Fetcher interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (*Response, error)

func (f FetcherFunc) Get(ctx context.Context, url string) (*Response, error) { return f(ctx, url) }

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// MaxBody caps how much of a response is read (the OFSI list is the largest payload).
const MaxBody = 64 << 20

type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{http: NewHTTPClient(timeout), userAgent: userAgent, maxBody: MaxBody}
}

// Get performs a single GET. Transport failures, timeouts and bodies over
// MaxBody come back as *FetchError.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/csv,application/xml;q=0.9,*/*;q=0.8")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrBodyTooLarge}
	}
	return &Response{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}
