package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default HTTP adapter settings.
const (
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultRequestsPerMinute = 60
	DefaultUserAgent         = "token-radar/1.0"

	maxResponseBytes = 8 << 20
)

// HTTPOptions configures the shared plumbing of HTTP-polling adapters.
type HTTPOptions struct {
	BaseURL string

	// RequestsPerMinute caps outgoing requests. Zero uses the default; negative disables limiting.
	RequestsPerMinute int
	Timeout           time.Duration
	UserAgent         string

	// Client overrides the http.Client (tests).
	Client *http.Client
	Logger *zap.Logger
	OnSkip SkipFunc
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// httpSource holds the HTTP client, limiter and logger shared by polling adapters.
type httpSource struct {
	name      string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
	onSkip    SkipFunc
}

func newHTTPSource(name string, opts HTTPOptions) *httpSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	rpm := opts.RequestsPerMinute
	if rpm == 0 {
		rpm = DefaultRequestsPerMinute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &httpSource{
		name:      name,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    client,
		limiter:   limiter,
		userAgent: ua,
		logger:    nopIfNil(opts.Logger).Named(name),
		onSkip:    opts.OnSkip,
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func (s *httpSource) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
