// Package fetch — общий HTTP-клиент для внешних источников данных
// (погода, приливы): ретраи на сетевых ошибках и 5xx, логи ретраев в WARN.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/EgorLis/meshbot/internal/logging"
)

const userAgent = "meshbot/1.0 (+meshtastic)"

type leveledSlog struct {
	inner *slog.Logger
}

// ретраи — штатная ситуация, ERROR понижаем до WARN
func (l leveledSlog) Error(msg string, kv ...any) { l.inner.Warn(msg, kv...) }
func (l leveledSlog) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l leveledSlog) Info(msg string, kv ...any)  { l.inner.Debug(msg, kv...) }
func (l leveledSlog) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }

type Option func(*retryablehttp.Client)

func WithMaxRetries(n int) Option {
	return func(c *retryablehttp.Client) { c.RetryMax = n }
}

func WithRetryWait(min, max time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = min
		c.RetryWaitMax = max
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *retryablehttp.Client) { c.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: l}) }
}

// NewClient возвращает обычный *http.Client с логикой retryablehttp внутри.
func NewClient(opts ...Option) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: slog.Default().With("component", "fetch")})
	for _, o := range opts {
		o(rc)
	}
	c := rc.StandardClient()
	c.Timeout = 2 * time.Minute
	return c
}

// Get выполняет GET и возвращает тело ответа, не-2xx — ошибка.
func Get(ctx context.Context, c *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	logging.FromContext(ctx).Debug("http get", "url", url)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
