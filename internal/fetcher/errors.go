package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindHTTPStatus
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindParse:
		return "parse"
	default:
		return "transport"
	}
}

// FetchError describes why a page could not be fetched or parsed.
type FetchError struct {
	URL        string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a fetch error, or false if err is not one.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
