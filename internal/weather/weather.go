// Package weather получает короткую сводку погоды с wttr.in.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/EgorLis/meshbot/internal/fetch"
)

const (
	defaultBaseURL = "https://wttr.in"
	// одна строка, метрические единицы — влезает в одно сообщение mesh
	summaryFormat = "%l: %c %t (feels %f) wind %w hum %h rain %p"
)

type Fetcher struct {
	Location string
	BaseURL  string
	HTTP     *http.Client
}

func New(location string, c *http.Client) *Fetcher {
	if c == nil {
		c = fetch.NewClient()
	}
	return &Fetcher{Location: location, BaseURL: defaultBaseURL, HTTP: c}
}

func (f *Fetcher) Name() string { return "weather" }

func (f *Fetcher) url() string {
	base := strings.TrimRight(f.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/%s?m&format=%s", base, url.PathEscape(f.Location), url.QueryEscape(summaryFormat))
}

// Fetch возвращает сводку погоды для Location.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if strings.TrimSpace(f.Location) == "" {
		return "", fmt.Errorf("weather: location not set")
	}
	body, err := fetch.Get(ctx, f.HTTP, f.url())
	if err != nil {
		return "", fmt.Errorf("weather: %w", err)
	}
	s := strings.TrimSpace(string(body))
	if s == "" || strings.HasPrefix(s, "Unknown location") {
		return "", fmt.Errorf("weather: empty answer for %q", f.Location)
	}
	return s, nil
}
