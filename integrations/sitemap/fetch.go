// Package sitemap reads a client's sitemap and picks pages worth linking from a new article.
package sitemap

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"
)

const (
	maxSitemapBytes = 10 << 20
	maxChildMaps    = 10
	maxPages        = 5000
)

var httpClient = &http.Client{Timeout: 20 * time.Second}

// Page es una URL del sitemap con un titulo derivado de su ruta
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	LastMod string `json:"lastmod,omitempty"`
}

type urlSet struct {
	URLs []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Fetch downloads a sitemap; an index is followed one level deep.
func Fetch(ctx context.Context, sitemapURL string) ([]Page, error) {
	body, err := download(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		var pages []Page
		for i, child := range index.Sitemaps {
			if i >= maxChildMaps || len(pages) >= maxPages {
				break
			}
			childBody, err := download(ctx, strings.TrimSpace(child.Loc))
			if err != nil {
				return nil, err
			}
			childPages, err := parseURLSet(childBody)
			if err != nil {
				return nil, err
			}
			pages = append(pages, childPages...)
		}
		return capPages(pages), nil
	}

	pages, err := parseURLSet(body)
	if err != nil {
		return nil, err
	}
	return capPages(pages), nil
}

func parseURLSet(body []byte) ([]Page, error) {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("invalid sitemap: %w", err)
	}
	pages := make([]Page, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		pages = append(pages, Page{URL: loc, Title: titleFromURL(loc), LastMod: strings.TrimSpace(u.LastMod)})
	}
	return pages, nil
}

func download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "localseo-sitemap/1.0")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sitemap %s: status=%d", rawURL, resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if strings.HasSuffix(strings.ToLower(req.URL.Path), ".gz") && resp.Header.Get("Content-Encoding") == "" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, maxSitemapBytes))
}

// titleFromURL: "/services/roof-repair/" -> "Roof Repair"
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	if last == "." || last == "/" || last == "" {
		return u.Host
	}
	last = strings.TrimSuffix(last, path.Ext(last))
	words := strings.FieldsFunc(last, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r := []rune(w)
		words[i] = string(unicode.ToUpper(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func capPages(pages []Page) []Page {
	if len(pages) > maxPages {
		return pages[:maxPages]
	}
	return pages
}
