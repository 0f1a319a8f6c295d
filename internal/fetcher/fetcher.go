// Package fetcher retrieves playlist and guide documents over HTTP or from
// the local filesystem.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/glefebvre/zapper/internal/circuitbreaker"
	"github.com/glefebvre/zapper/internal/config"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/retry"
)

const (
	maxRedirects   = 10
	largeDocLogged = 10 * 1024 * 1024
)

var playlistContentTypes = []string{
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"audio/x-mpegurl",
	"audio/mpegurl",
	"text/plain",
	"application/octet-stream",
}

// StatusError is returned for a non-200 HTTP answer.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %s", e.Status)
}

// Fetcher downloads documents with retry, a circuit breaker and a size limit.
type Fetcher struct {
	name           string
	cfg            config.FetchConfig
	logger         *logger.Logger
	httpClient     *http.Client
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(rc retry.Config) Option {
	return func(f *Fetcher) { f.retryConfig = rc }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithCircuitBreaker replaces the circuit breaker configuration.
func WithCircuitBreaker(cbc circuitbreaker.Config) Option {
	return func(f *Fetcher) {
		cbc.Name = f.name
		f.circuitBreaker = circuitbreaker.New(f.breakerConfig(cbc))
	}
}

// New creates a fetcher. name identifies it in logs ("playlist", "guide").
func New(name string, cfg config.FetchConfig, log *logger.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = logger.AppLogger()
	}
	timeout := cfg.FetchTimeout()

	f := &Fetcher{
		name:   name,
		cfg:    cfg,
		logger: log,
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		retryConfig: retry.Config{
			MaxAttempts:       max(cfg.RetryAttempts, 1),
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
			JitterFraction:    0.1,
		},
	}
	f.circuitBreaker = circuitbreaker.New(f.breakerConfig(circuitbreaker.Config{
		Name:                name,
		MaxFailures:         5,
		Timeout:             60 * time.Second,
		MaxHalfOpenRequests: 1,
	}))

	for _, opt := range opts {
		opt(f)
	}
	f.retryConfig.OnRetry = func(attempt int, wait time.Duration, err error) {
		f.logger.WithFields(map[string]interface{}{
			"fetcher": f.name,
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		}).Warn("fetch attempt failed, retrying")
	}
	return f
}

func (f *Fetcher) breakerConfig(cbc circuitbreaker.Config) circuitbreaker.Config {
	// client errors say nothing about upstream health
	cbc.IsSuccessful = func(err error) bool {
		return err == nil || !f.isRetryableError(err)
	}
	cbc.OnStateChange = func(name string, from, to circuitbreaker.State) {
		f.logger.WithFields(map[string]interface{}{
			"fetcher": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("circuit breaker state changed")
	}
	return cbc
}

// IsRemote reports whether source is an HTTP(S) URL rather than a file path.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load retrieves source, reading local paths from disk and fetching URLs.
func (f *Fetcher) Load(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", apperrors.ValidationError("playlist source is empty")
	}
	if IsRemote(source) {
		return f.Fetch(ctx, source)
	}
	return f.ReadFile(strings.TrimPrefix(source, "file://"))
}

// Fetch downloads url and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.logger.WithFields(map[string]interface{}{
		"fetcher": f.name,
		"url":     url,
	}).Info("starting download")

	var body string
	err := f.circuitBreaker.Execute(func() error {
		var err error
		body, err = retry.DoWithResult(ctx, f.retryConfig, func() (string, error) {
			return f.fetchOnce(ctx, url)
		}, f.isRetryableError)
		return err
	})
	if err != nil {
		f.logger.WithFields(map[string]interface{}{
			"fetcher": f.name,
			"url":     url,
		}).Error("download failed", err)
		return "", f.classify(url, err)
	}

	f.logger.WithFields(map[string]interface{}{
		"fetcher":    f.name,
		"url":        url,
		"size_bytes": len(body),
	}).Info("download completed")
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.ValidationError(fmt.Sprintf("invalid url: %v", err))
	}
	if f.cfg.AuthUsername != "" && f.cfg.AuthPassword != "" {
		req.SetBasicAuth(f.cfg.AuthUsername, f.cfg.AuthPassword)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && f.name == "playlist" && !isPlaylistContentType(ct) {
		f.logger.WithFields(map[string]interface{}{
			"content_type": ct,
		}).Warn("unexpected content type, proceeding anyway")
	}

	maxSize := f.maxSize()
	if resp.ContentLength > 0 && resp.ContentLength > maxSize {
		return "", f.tooLarge(resp.ContentLength)
	}

	var buf bytes.Buffer
	written, err := io.Copy(&buf, io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if written > maxSize {
		return "", f.tooLarge(written)
	}
	if written > largeDocLogged {
		f.logger.WithFields(map[string]interface{}{
			"size_mb": float64(written) / (1024 * 1024),
		}).Info("large document downloaded")
	}

	body := buf.String()
	f.warnIfNotPlaylist(body)
	return body, nil
}

// ReadFile reads a local document under the same size limit.
func (f *Fetcher) ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NotFoundError("playlist file", path)
		}
		return "", apperrors.Wrap(err, apperrors.CodeFetch, "failed to stat playlist file").WithContext("path", path)
	}
	if info.IsDir() {
		return "", apperrors.ValidationError(fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() > f.maxSize() {
		return "", f.tooLarge(info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeFetch, "failed to read playlist file").WithContext("path", path)
	}

	f.logger.WithFields(map[string]interface{}{
		"fetcher":    f.name,
		"path":       path,
		"size_bytes": len(data),
	}).Info("read local document")

	body := string(data)
	f.warnIfNotPlaylist(body)
	return body, nil
}

func (f *Fetcher) maxSize() int64 {
	mb := f.cfg.MaxFileSizeMB
	if mb <= 0 {
		mb = 200
	}
	return mb * 1024 * 1024
}

func (f *Fetcher) tooLarge(size int64) error {
	return apperrors.New(apperrors.CodePlaylistTooLarge,
		fmt.Sprintf("document of %d bytes exceeds %d MB limit", size, f.maxSize()/(1024*1024)))
}

// warnIfNotPlaylist logs documents without the #EXTM3U header. The parser
// degrades gracefully on them, so they are not rejected.
func (f *Fetcher) warnIfNotPlaylist(body string) {
	if f.name != "playlist" {
		return
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#EXTM3U") {
			f.logger.Warn("playlist missing #EXTM3U header")
		}
		return
	}
}

func isPlaylistContentType(contentType string) bool {
	ct := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	for _, valid := range playlistContentTypes {
		if ct == valid {
			return true
		}
	}
	return false
}

// isRetryableError determines if an error should trigger a retry
func (f *Fetcher) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.IsRetryable(err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// 4xx is the client's fault, except rate limiting
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	return true
}

// classify turns a failure into the AppError surfaced to the user.
func (f *Fetcher) classify(url string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.WithContext("url", url)
	}
	if errors.Is(err, circuitbreaker.ErrOpenState) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return apperrors.Wrap(err, apperrors.CodeServiceUnavailable, fmt.Sprintf("%s source temporarily unavailable", f.name)).WithContext("url", url)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return apperrors.NotFoundError("document", url)
	}
	return apperrors.FetchError(url, fmt.Sprintf("failed to download %s", f.name), err)
}

// BreakerState exposes the circuit breaker state for health reporting.
func (f *Fetcher) BreakerState() circuitbreaker.State {
	return f.circuitBreaker.State()
}
