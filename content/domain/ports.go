package domain

import (
	"context"
	"time"
)

// RelatedPage is an internal link candidate taken from the client's sitemap.
type RelatedPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Brief carries what every generator needs about the topic and the brand it writes for.
type Brief struct {
	Question      string
	LocationLabel string
	Brand         Brand
	BrandName     string
	BrandVoice    string
	Industry      string
	Language      string
	WebsiteURL    string
	Related       []RelatedPage
}

type ScriptFormat string

const (
	ScriptPodcast    ScriptFormat = "podcast"
	ScriptShortVideo ScriptFormat = "short_video"
)

// SocialDraft is one generated post before it is persisted.
type SocialDraft struct {
	Platform string
	Caption  string
	Hashtags []string
}

type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, brief Brief) (ArtifactContent, error)
}

type ImageGenerator interface {
	GenerateImages(ctx context.Context, brief Brief) ([]Image, error)
}

type ScriptGenerator interface {
	GenerateScript(ctx context.Context, brief Brief, format ScriptFormat) (string, error)
}

type SocialGenerator interface {
	GenerateSocial(ctx context.Context, brief Brief, platforms []string) ([]SocialDraft, error)
}

// PageMatcher picks related pages of a site for internal linking.
type PageMatcher interface {
	Related(ctx context.Context, sitemapURL, query string, limit int) ([]RelatedPage, error)
}

// --- CMS ---

type CMSPostInput struct {
	ID              string // empty creates a new post
	Title           string
	Slug            string
	HTML            string
	Excerpt         string
	FeaturedMediaID string
	Meta            map[string]string
}

type CMSPost struct {
	ID  string
	URL string
}

type CMSMediaInput struct {
	Filename    string
	ContentType string
	SourceURL   string
	Data        []byte
}

type CMSMedia struct {
	ID  string
	URL string
}

type CMSPublisher interface {
	CreateOrUpdatePost(ctx context.Context, in CMSPostInput) (CMSPost, error)
	UploadMedia(ctx context.Context, in CMSMediaInput) (CMSMedia, error)
}

// --- Async media hosts ---

type JobState string

const (
	JobProcessing JobState = "processing"
	JobReady      JobState = "ready"
	JobPublished  JobState = "published"
	JobScheduled  JobState = "scheduled"
	JobFailed     JobState = "failed"
)

type JobStatus struct {
	State        JobState
	URL          string
	ThumbnailURL string
	ExternalID   string
	Error        string
}

type MediaSubmission struct {
	ItemID string
	Title  string
	Script string
}

type PublishedMedia struct {
	ExternalID   string
	URL          string
	ThumbnailURL string
}

// MediaHost is the submit/status/publish contract shared by the audio host and the video renderer.
type MediaHost interface {
	Submit(ctx context.Context, in MediaSubmission) (jobID string, err error)
	Status(ctx context.Context, jobID string) (JobStatus, error)
	Publish(ctx context.Context, jobID string) (PublishedMedia, error)
	Cancel(ctx context.Context, jobID string) error
}

type LongVideoUpload struct {
	Path        string
	Filename    string
	Size        int64
	Title       string
	Description string
}

// LongVideoHost receives a finished file and processes it asynchronously.
type LongVideoHost interface {
	Upload(ctx context.Context, in LongVideoUpload) (PublishedMedia, error)
	Status(ctx context.Context, externalID string) (JobStatus, error)
}

// --- Social scheduler ---

type ScheduleRequest struct {
	ProfileKey string
	Platform   string
	Caption    string
	Hashtags   []string
	MediaURLs  []string
	At         *time.Time // nil posts immediately
}

type ScheduleResult struct {
	State          JobState
	ExternalPostID string
	URL            string
}

type SocialScheduler interface {
	Schedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error)
	Status(ctx context.Context, externalPostID string) (JobStatus, error)
	Cancel(ctx context.Context, externalPostID string) error
}
