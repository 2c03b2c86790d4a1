package domain

import (
	"time"
)

// Image es una imagen ya almacenada en el bucket de medios
type Image struct {
	URL    string `json:"url"`
	Key    string `json:"key,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ArtifactContent is the generated payload of an artifact. Fields unused by a kind stay empty.
type ArtifactContent struct {
	Title           string  `json:"title,omitempty"`
	Slug            string  `json:"slug,omitempty"`
	Excerpt         string  `json:"excerpt,omitempty"`
	MetaDescription string  `json:"meta_description,omitempty"`
	FocusKeyword    string  `json:"focus_keyword,omitempty"`
	Markdown        string  `json:"markdown,omitempty"`
	HTML            string  `json:"html,omitempty"` // last body pushed to the CMS, embeds included
	Script          string  `json:"script,omitempty"`
	Images          []Image `json:"images,omitempty"`
	FeaturedMediaID string  `json:"featured_media_id,omitempty"`
}

// Artifact es el sub-registro por tipo de un item
type Artifact struct {
	ItemID       string          `json:"item_id"`
	Kind         ArtifactKind    `json:"kind"`
	Generated    bool            `json:"generated"`
	Approved     bool            `json:"approved"`
	Status       ArtifactStatus  `json:"status"`
	ExternalID   string          `json:"external_id,omitempty"`
	URL          string          `json:"url,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Error        string          `json:"error,omitempty"`
	Content      ArtifactContent `json:"content"`
	GeneratedAt  *time.Time      `json:"generated_at,omitempty"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SocialPost pertenece a un item y a una identidad de marca
type SocialPost struct {
	ID             string         `json:"id"`
	ItemID         string         `json:"item_id"`
	Brand          Brand          `json:"brand"`
	Platform       string         `json:"platform"`
	Caption        string         `json:"caption"`
	Hashtags       []string       `json:"hashtags"`
	Approved       bool           `json:"approved"`
	Status         ArtifactStatus `json:"status"`
	ExternalPostID string         `json:"external_post_id,omitempty"`
	URL            string         `json:"url,omitempty"`
	Error          string         `json:"error,omitempty"`
	ScheduledFor   *time.Time     `json:"scheduled_for,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ContentItem es la raíz del agregado: un tema + ubicación recorriendo generación y publicación
type ContentItem struct {
	ID            string                     `json:"id"`
	ClientID      string                     `json:"client_id"`
	LocationID    string                     `json:"location_id"`
	TopicID       string                     `json:"topic_id"`
	Question      string                     `json:"question"`
	LocationLabel string                     `json:"location_label"`
	Status        ItemStatus                 `json:"status"`
	LastError     string                     `json:"last_error,omitempty"`
	Trigger       Trigger                    `json:"trigger"`
	CycleKey      string                     `json:"cycle_key"`
	Artifacts     map[ArtifactKind]*Artifact `json:"artifacts"`
	Posts         []*SocialPost              `json:"posts"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// Artifact returns the sub-record for kind, creating an empty one when missing.
func (c *ContentItem) Artifact(kind ArtifactKind) *Artifact {
	if c.Artifacts == nil {
		c.Artifacts = make(map[ArtifactKind]*Artifact)
	}
	a, ok := c.Artifacts[kind]
	if !ok {
		a = &Artifact{ItemID: c.ID, Kind: kind}
		c.Artifacts[kind] = a
	}
	return a
}

// PostsFor returns the posts of one brand.
func (c *ContentItem) PostsFor(brand Brand) []*SocialPost {
	var out []*SocialPost
	for _, p := range c.Posts {
		if p.Brand == brand {
			out = append(out, p)
		}
	}
	return out
}

// ArticlePublished is the gate for the item-level PUBLISHED status.
func (c *ContentItem) ArticlePublished() bool {
	a, ok := c.Artifacts[KindArticle]
	return ok && a.Status == ArtifactPublished
}

// StatusAfterGeneration resolves GENERATING from the primary article only.
func (c *ContentItem) StatusAfterGeneration() ItemStatus {
	if c.ArticlePublished() {
		return StatusPublished
	}
	if a, ok := c.Artifacts[KindArticle]; ok && a.Generated {
		return StatusReview
	}
	return StatusFailed
}
