package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBodyTooLarge means the response was longer than the client reads.
var ErrBodyTooLarge = errors.New("response body too large")

// FetchError is a network or HTTP failure while downloading url.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 FetchError.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}

// RequireOK turns a non-2xx response into a *FetchError.
func RequireOK(resp *Response, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &FetchError{URL: resp.URL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
