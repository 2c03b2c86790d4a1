package sitemap

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {},
	"is": {}, "are": {}, "do": {}, "does": {}, "how": {}, "what": {}, "why": {}, "when": {}, "much": {},
	"my": {}, "your": {}, "i": {}, "can": {}, "should": {}, "best": {}, "near": {}, "me": {},
	"de": {}, "la": {}, "el": {}, "en": {}, "y": {}, "que": {}, "los": {}, "las": {}, "un": {}, "una": {},
}

// Matcher implements domain.PageMatcher by keyword overlap between the query and page paths.
type Matcher struct {
	cache Cache
	group singleflight.Group
	fetch func(ctx context.Context, sitemapURL string) ([]Page, error)
}

func NewMatcher(cache Cache) *Matcher {
	if cache == nil {
		cache = NewMemoryCache(0, 0)
	}
	return &Matcher{cache: cache, fetch: Fetch}
}

func (m *Matcher) Related(ctx context.Context, sitemapURL, query string, limit int) ([]domain.RelatedPage, error) {
	if limit <= 0 {
		return nil, nil
	}
	pages, err := m.pages(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		page  Page
		score int
	}
	var candidates []scored
	for _, p := range pages {
		s := score(terms, tokenize(p.URL+" "+p.Title))
		if s > 0 {
			candidates = append(candidates, scored{page: p, score: s})
		}
	}
	// desempate: URL mas corta (pagina de servicio antes que post profundo)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return len(candidates[i].page.URL) < len(candidates[j].page.URL)
	})

	out := make([]domain.RelatedPage, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, domain.RelatedPage{URL: c.page.URL, Title: c.page.Title})
	}
	return out, nil
}

func (m *Matcher) pages(ctx context.Context, sitemapURL string) ([]Page, error) {
	if pages, ok, err := m.cache.Get(ctx, sitemapURL); err != nil {
		logrus.WithError(err).Warn("[SITEMAP] Cache read failed")
	} else if ok {
		return pages, nil
	}

	v, err, _ := m.group.Do(sitemapURL, func() (any, error) {
		pages, err := m.fetch(ctx, sitemapURL)
		if err != nil {
			return nil, err
		}
		if err := m.cache.Set(ctx, sitemapURL, pages); err != nil {
			logrus.WithError(err).Warn("[SITEMAP] Cache write failed")
		}
		logrus.Debugf("[SITEMAP] Cached %d pages from %s", len(pages), sitemapURL)
		return pages, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Page), nil
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		switch f {
		case "http", "https", "www", "com", "net", "org", "html", "php":
			continue
		}
		out[strings.TrimSuffix(f, "s")] = struct{}{}
	}
	return out
}

func score(query, page map[string]struct{}) int {
	n := 0
	for t := range query {
		if _, ok := page[t]; ok {
			n++
		}
	}
	return n
}
