package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"
)

const (
	// PlainTimeout bounds a plain origin request.
	PlainTimeout = 5 * time.Second

	maxBodyBytes = 16 << 20 // 16MB
)

// Origin fetches raw bytes from a remote source. Implementations return a
// *FetchError for transport failures, non-200 statuses and empty bodies.
type Origin interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// OriginFunc adapts a function to Origin.
type OriginFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f OriginFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// PlainOrigin performs a direct GET with a bounded timeout.
type PlainOrigin struct {
	client *http.Client
}

// NewPlainOrigin returns a PlainOrigin whose requests time out after
// timeout (PlainTimeout when zero).
func NewPlainOrigin(timeout time.Duration) *PlainOrigin {
	if timeout <= 0 {
		timeout = PlainTimeout
	}
	return &PlainOrigin{client: &http.Client{Timeout: timeout}}
}

func (o *PlainOrigin) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return do(o.client, req)
}

// ProtectedOrigin fetches from CDNs that sit behind a bot-challenge layer.
// It speaks HTTP/2, keeps challenge cookies between requests and presents
// browser request headers. It sets no client timeout; ctx bounds each call.
type ProtectedOrigin struct {
	client    *http.Client
	userAgent string
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// NewProtectedOrigin builds the browser-like transport.
func NewProtectedOrigin() (*ProtectedOrigin, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return &ProtectedOrigin{
		client:    &http.Client{Transport: tr, Jar: jar},
		userAgent: browserUserAgent,
	}, nil
}

func (o *ProtectedOrigin) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Sec-Fetch-Dest", "image")
	req.Header.Set("Sec-Fetch-Mode", "no-cors")
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	}
	return do(o.client, req)
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	rawURL := req.URL.String()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > maxBodyBytes {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: rawURL, Err: ErrEmptyBody}
	}
	return data, nil
}
