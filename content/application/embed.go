package application

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	embedSelector = ".cf-media-embed"
	mapSelector   = `iframe[src*="google.com/maps"], .cf-map-embed`
)

// Embeds are the public URLs of the secondary media currently published for an item.
type Embeds struct {
	ShortVideoURL string
	LongVideoURL  string
	AudioURL      string
}

// EmbedsFor collects the secondary artifacts of item that are PUBLISHED.
func EmbedsFor(item *domain.ContentItem) Embeds {
	published := func(kind domain.ArtifactKind) string {
		if a, ok := item.Artifacts[kind]; ok && a.Status == domain.ArtifactPublished {
			return a.URL
		}
		return ""
	}
	return Embeds{
		ShortVideoURL: published(domain.KindShortVideo),
		LongVideoURL:  published(domain.KindLongVideo),
		AudioURL:      published(domain.KindPodcast),
	}
}

// Compose rebuilds the secondary-media region of an article body. Previous embeds are removed first,
// so composing the same input twice yields the same output.
func Compose(body string, e Embeds) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse article body: %w", err)
	}
	doc.Find(embedSelector).Remove()
	root := doc.Find("body")

	if e.ShortVideoURL != "" {
		snippet := videoEmbed("cf-short-video", e.ShortVideoURL)
		if lead := root.Find("p").First(); lead.Length() > 0 {
			lead.AfterHtml(snippet)
		} else {
			root.PrependHtml(snippet)
		}
	}
	if e.LongVideoURL != "" {
		snippet := videoEmbed("cf-long-video", e.LongVideoURL)
		if m := root.Find(mapSelector).First(); m.Length() > 0 {
			m.BeforeHtml(snippet)
		} else {
			root.AppendHtml(snippet)
		}
	}
	if e.AudioURL != "" {
		root.AppendHtml(fmt.Sprintf(`<div class="cf-media-embed cf-audio"><audio controls preload="none" src="%s"></audio></div>`,
			html.EscapeString(e.AudioURL)))
	}

	out, err := root.Html()
	if err != nil {
		return "", fmt.Errorf("render article body: %w", err)
	}
	return out, nil
}

func videoEmbed(class, src string) string {
	if embed, ok := youtubeEmbedURL(src); ok {
		return fmt.Sprintf(`<div class="cf-media-embed %s"><iframe src="%s" loading="lazy" allowfullscreen></iframe></div>`,
			class, html.EscapeString(embed))
	}
	return fmt.Sprintf(`<div class="cf-media-embed %s"><video controls preload="metadata" src="%s"></video></div>`,
		class, html.EscapeString(src))
}

// youtubeEmbedURL converts watch and short links into the /embed/ form.
func youtubeEmbedURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			return raw, true
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	if id == "" {
		return "", false
	}
	return "https://www.youtube.com/embed/" + id, true
}

// EmbedComposer pushes the recomposed article body of a published item back to the client CMS.
type EmbedComposer struct {
	items   domain.ItemRepository
	clients ClientDirectory
	cms     CMSResolver
}

func NewEmbedComposer(items domain.ItemRepository, clients ClientDirectory, cms CMSResolver) *EmbedComposer {
	return &EmbedComposer{items: items, clients: clients, cms: cms}
}

// EmbedAll reports whether the body changed. An unchanged body is not pushed again.
func (e *EmbedComposer) EmbedAll(ctx context.Context, itemID string) (bool, error) {
	item, err := e.items.Get(ctx, itemID)
	if err != nil {
		return false, err
	}
	if !item.ArticlePublished() {
		return false, precondition("article of item %s is not published", itemID)
	}
	article := item.Artifacts[domain.KindArticle]
	if strings.TrimSpace(article.Content.HTML) == "" {
		return false, precondition("article of item %s has no published body to embed into", itemID)
	}

	body, err := Compose(article.Content.HTML, EmbedsFor(item))
	if err != nil {
		return false, err
	}
	if body == article.Content.HTML {
		logrus.Debugf("[EMBED] Item %s body unchanged, skipping push", itemID)
		return false, nil
	}

	client, err := e.clients.GetByID(ctx, item.ClientID)
	if err != nil {
		return false, err
	}
	cms, err := e.cms.ForBrand(client, domain.BrandClient)
	if err != nil {
		return false, err
	}
	post, err := cms.CreateOrUpdatePost(ctx, domain.CMSPostInput{
		ID:              article.ExternalID,
		Title:           article.Content.Title,
		Slug:            article.Content.Slug,
		HTML:            body,
		Excerpt:         article.Content.Excerpt,
		FeaturedMediaID: article.Content.FeaturedMediaID,
		Meta:            articleMeta(article.Content),
	})
	if err != nil {
		return false, fmt.Errorf("push embeds: %w", err)
	}

	article.Content.HTML = body
	if post.URL != "" {
		article.URL = post.URL
	}
	ok, err := e.items.CompareAndSetArtifact(ctx, article, domain.ArtifactPublished)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, conflict("article of item %s changed while embedding", itemID)
	}
	logrus.WithField("item_id", itemID).Info("[EMBED] Secondary media region updated")
	return true, nil
}

func articleMeta(c domain.ArtifactContent) map[string]string {
	meta := map[string]string{}
	if c.MetaDescription != "" {
		meta["meta_description"] = c.MetaDescription
	}
	if c.FocusKeyword != "" {
		meta["focus_keyword"] = c.FocusKeyword
	}
	return meta
}
