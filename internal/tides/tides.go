// Package tides снимает таблицу приливов на сегодня со страницы
// tide-forecast.com и сворачивает её в короткий текст.
package tides

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/EgorLis/meshbot/internal/fetch"
)

const defaultBaseURL = "https://www.tide-forecast.com"

type Scraper struct {
	Location string
	BaseURL  string
	HTTP     *http.Client
}

func New(location string, c *http.Client) *Scraper {
	if c == nil {
		c = fetch.NewClient()
	}
	return &Scraper{Location: location, BaseURL: defaultBaseURL, HTTP: c}
}

func (s *Scraper) Name() string { return "tides" }

func (s *Scraper) url() string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/locations/%s/tides/latest", base, url.PathEscape(s.Location))
}

func (s *Scraper) Fetch(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.Location) == "" {
		return "", fmt.Errorf("tides: location not set")
	}
	body, err := fetch.Get(ctx, s.HTTP, s.url())
	if err != nil {
		return "", fmt.Errorf("tides: %w", err)
	}
	rows, err := Parse(body)
	if err != nil {
		return "", fmt.Errorf("tides %s: %w", s.Location, err)
	}
	return Format(s.Location, rows), nil
}

// Format: "Tide times <loc>:\nHigh Tide 4:41 AM 2.1 m\n..."
func Format(location string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("Tide times ")
	sb.WriteString(strings.ReplaceAll(location, "-", " "))
	sb.WriteString(":")
	for _, r := range rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(r, " "))
	}
	return sb.String()
}

// Parse достаёт строки первой таблицы с классом tide-day-tides.
// Из ячейки берётся текст первого <b>, если он есть (там основное значение),
// иначе весь текст ячейки.
func Parse(page []byte) ([][]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	table := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "tide-day-tides")
	})
	if table == nil {
		return nil, fmt.Errorf("tide table not found")
	}

	var rows [][]string
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return
		}
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "td" {
				continue
			}
			src := c
			if b := find(c, func(x *html.Node) bool { return x.Type == html.ElementNode && x.Data == "b" }); b != nil {
				src = b
			}
			if t := text(src); t != "" {
				cells = append(cells, t)
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return nil, fmt.Errorf("tide table is empty")
	}
	return rows, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(x *html.Node) {
		if x.Type == html.TextNode {
			sb.WriteString(x.Data)
			sb.WriteString(" ")
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
