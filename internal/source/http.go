package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPLoader downloads the source file with a single GET.
type HTTPLoader struct {
	url    string
	format string
	client *http.Client
}

// NewHTTPLoader returns a loader for rawURL. A nil client uses http.DefaultClient;
// the request deadline comes from the context.
func NewHTTPLoader(rawURL, format string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{url: rawURL, format: format, client: client}
}

// Load fetches and decodes the body. Any non-2xx status is an error.
func (l *HTTPLoader) Load(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Table{}, fmt.Errorf("fetch %s: unexpected status %s", l.url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", l.url, err)
	}
	name := l.url
	if u, err := url.Parse(l.url); err == nil {
		name = u.Path
	}
	return Decode(resolveFormat(l.format, name), data)
}

// Describe implements Loader.
func (l *HTTPLoader) Describe() string { return "http " + l.url }

// Close implements Loader.
func (l *HTTPLoader) Close() error { return nil }
