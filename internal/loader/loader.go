package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"teamdir.dev/internal/models"
)

// ErrLoadFailed is the only error kind the loader reports. Network errors,
// bad status codes and malformed JSON all wrap it.
var ErrLoadFailed = errors.New("load failed")

// DefaultMaxBodyBytes caps how much of the response is decoded
const DefaultMaxBodyBytes = 4 << 20

// Loader fetches the collaborator dataset over HTTP
type Loader struct {
	client       *http.Client
	base         *url.URL
	maxBodyBytes int64
}

// Option configures a Loader
type Option func(*Loader)

// WithClient replaces the default HTTP client
func WithClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithBaseURL sets the URL relative sources are resolved against
func WithBaseURL(base *url.URL) Option {
	return func(l *Loader) { l.base = base }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes
func WithMaxBodyBytes(n int64) Option {
	return func(l *Loader) { l.maxBodyBytes = n }
}

// New creates a new Loader
func New(opts ...Option) *Loader {
	l := &Loader{
		client:       &http.Client{Timeout: 10 * time.Second},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load performs a single GET of source and decodes the dataset.
// Every call fetches again; nothing is cached and nothing is retried.
func (l *Loader) Load(ctx context.Context, source string) (*models.Dataset, error) {
	target, err := l.resolve(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrLoadFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrLoadFailed, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrLoadFailed, target, resp.StatusCode)
	}

	var dataset models.Dataset
	if err := json.NewDecoder(io.LimitReader(resp.Body, l.maxBodyBytes)).Decode(&dataset); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrLoadFailed, target, err)
	}

	return &dataset, nil
}

// resolve turns a possibly relative source into an absolute URL
func (l *Loader) resolve(source string) (string, error) {
	ref, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid source %q: %w", source, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if l.base == nil {
		return "", fmt.Errorf("relative source %q without base url", source)
	}
	return l.base.ResolveReference(ref).String(), nil
}
