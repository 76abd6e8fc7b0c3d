// Package fetcher downloads and parses HTML pages for the site adapters.
// All fetches in a process share one concurrency limit.
package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/semaphore"

	"github.com/deusflow/aznews/internal/logger"
)

const (
	DefaultConcurrency = 5
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	maxBodyBytes = 10 << 20
)

type Options struct {
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	Client      *http.Client
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	headers http.Header
	log     *slog.Logger

	requests atomic.Int64
	failures atomic.Int64
	inFlight atomic.Int64
}

func New(opts Options) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: opts.Concurrency,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Fetcher{
		client:  client,
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
		timeout: opts.Timeout,
		headers: browserHeaders(opts.UserAgent),
		log:     logger.Component("fetcher"),
	}
}

func browserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "az,en-US;q=0.8,en;q=0.7,ru;q=0.6")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// FetchWith returns the parsed page or nil, sending extra on top of the
// browser headers. Failures are logged, never returned.
func (f *Fetcher) FetchWith(ctx context.Context, url string, extra http.Header) *goquery.Document {
	doc, err := f.Document(ctx, url, extra)
	if err != nil {
		if ctx.Err() != nil {
			f.log.Debug("fetch cancelled", "url", url)
			return nil
		}
		f.log.Warn("fetch failed", "url", url, "error", err)
		return nil
	}
	return doc
}

// Document fetches and parses url, returning a *FetchError on failure.
func (f *Fetcher) Document(ctx context.Context, url string, extra http.Header) (*goquery.Document, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, &FetchError{URL: url, Kind: KindTransport, Err: err}
	}
	defer f.sem.Release(1)

	f.requests.Add(1)
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	doc, err := f.get(ctx, url, extra)
	if err != nil {
		f.failures.Add(1)
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, url string, extra http.Header) (*goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindTransport, Err: err}
	}
	for k, v := range f.headers {
		req.Header[k] = v
	}
	for k, v := range extra {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: url, Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := decompressReader(resp)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindParse, Err: err}
	}

	utf8Body, err := charset.NewReaderLabel(charsetLabel(resp.Header.Get("Content-Type")), io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindParse, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classifyRead(err), Err: fmt.Errorf("parse html: %w", err)}
	}
	doc.Url = resp.Request.URL

	f.log.Debug("fetched", "url", url, "status", resp.StatusCode, "elapsed", time.Since(start))
	return doc, nil
}

// decompressReader handles bodies we asked for via Accept-Encoding. Setting
// that header disables the transport's transparent gzip support.
func decompressReader(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// charsetLabel honours an explicit charset parameter and otherwise assumes UTF-8.
func charsetLabel(contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := strings.TrimSpace(params["charset"]); cs != "" {
			return cs
		}
	}
	return "utf-8"
}

func classifyRead(err error) Kind {
	if k := classify(err); k == KindTimeout {
		return k
	}
	return KindParse
}

// Stats returns request counters for logging and monitoring.
func (f *Fetcher) Stats() map[string]int64 {
	return map[string]int64{
		"requests":  f.requests.Load(),
		"failures":  f.failures.Load(),
		"in_flight": f.inFlight.Load(),
	}
}
