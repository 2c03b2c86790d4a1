package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"path"
	"strings"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/AzielCF/az-localseo/pkg/timeutils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type PublishDeps struct {
	Items     domain.ItemRepository
	Clients   ClientDirectory
	Locations LocationDirectory
	CMS       CMSResolver
	Renderer  MarkdownRenderer
	Hosts     MediaHosts
	Social    domain.SocialScheduler
	Embeds    *EmbedComposer
	Settings  Settings

	// DirectoryProfileKey is the social scheduler profile of the shared directory brand.
	DirectoryProfileKey string
	Limiter             *semaphore.Weighted
	Timeout             time.Duration
	Now                 func() time.Time
}

// PublishOrchestrator pushes generated artifacts to their external channels, each channel on its own.
type PublishOrchestrator struct {
	items        domain.ItemRepository
	clients      ClientDirectory
	locations    LocationDirectory
	cms          CMSResolver
	renderer     MarkdownRenderer
	hosts        MediaHosts
	social       domain.SocialScheduler
	embeds       *EmbedComposer
	settings     Settings
	directoryKey string
	limiter      *semaphore.Weighted
	timeout      time.Duration
	now          func() time.Time
}

func NewPublishOrchestrator(deps PublishDeps) *PublishOrchestrator {
	o := &PublishOrchestrator{
		items:        deps.Items,
		clients:      deps.Clients,
		locations:    deps.Locations,
		cms:          deps.CMS,
		renderer:     deps.Renderer,
		hosts:        deps.Hosts,
		social:       deps.Social,
		embeds:       deps.Embeds,
		settings:     deps.Settings,
		directoryKey: deps.DirectoryProfileKey,
		limiter:      deps.Limiter,
		timeout:      deps.Timeout,
		now:          deps.Now,
	}
	if o.limiter == nil {
		o.limiter = semaphore.NewWeighted(4)
	}
	if o.settings == nil {
		o.settings = staticSettings{}
	}
	if o.timeout <= 0 {
		o.timeout = 2 * time.Minute
	}
	if o.now == nil {
		o.now = nowUTC
	}
	return o
}

// publishStep is a channel that passed its preconditions.
type publishStep struct {
	channel domain.Channel
	run     func(ctx context.Context) (domain.ArtifactStatus, error)
}

// Publish checks every channel synchronously, then runs the accepted ones concurrently.
// A channel failure never cancels a sibling; callers must read the per-channel results.
func (o *PublishOrchestrator) Publish(ctx context.Context, itemID string, channels domain.ChannelSet, opts domain.PublishOptions) (*domain.Results[domain.Channel], error) {
	if channels == nil || channels.Len() == 0 {
		return nil, precondition("no channels requested")
	}
	item, err := o.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.StatusReview && item.Status != domain.StatusPublished {
		return nil, precondition("item %s is %s, only REVIEW or PUBLISHED items can be published", item.ID, item.Status)
	}
	client, err := o.clients.GetByID(ctx, item.ClientID)
	if err != nil {
		return nil, err
	}

	results := domain.NewResults[domain.Channel]()
	var steps []publishStep
	for _, ch := range channels.Sorted() {
		step, skipped, err := o.plan(ctx, item, client, ch, opts)
		switch {
		case err != nil:
			results.Fail(ch, err)
		case skipped:
			results.Set(ch, domain.Outcome{Status: domain.ArtifactPublished, Skipped: true})
		default:
			steps = append(steps, step)
		}
	}

	var g errgroup.Group
	for _, step := range steps {
		step := step
		g.Go(func() error {
			if err := o.limiter.Acquire(ctx, 1); err != nil {
				results.Fail(step.channel, err)
				return nil
			}
			defer o.limiter.Release(1)

			cctx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			started := time.Now()
			status, err := step.run(cctx)
			pipelinemonitor.Record(pipelinemonitor.Since(pipelinemonitor.Event{
				ItemID:   item.ID,
				ClientID: item.ClientID,
				Stage:    pipelinemonitor.StagePublish,
				Kind:     string(step.channel),
				Status:   pipelinemonitor.StatusOf(err),
				Error:    pipelinemonitor.ErrorOf(err),
			}, started))
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"item_id": item.ID, "channel": step.channel}).Warn("[PUBLISH] Channel failed")
				results.Fail(step.channel, err)
				return nil
			}
			results.Succeed(step.channel, status)
			return nil
		})
	}
	_ = g.Wait()

	o.embedAfterSecondary(ctx, item.ID, results)
	return results, nil
}

// plan validates one channel. It never contacts an external system.
func (o *PublishOrchestrator) plan(ctx context.Context, item *domain.ContentItem, client *clientDomain.Client, ch domain.Channel, opts domain.PublishOptions) (publishStep, bool, error) {
	step := publishStep{channel: ch}
	switch ch {
	case domain.ChannelArticle, domain.ChannelDirectoryArticle:
		brand, kind := domain.BrandClient, domain.KindArticle
		if ch == domain.ChannelDirectoryArticle {
			brand, kind = domain.BrandDirectory, domain.KindDirectoryArticle
		}
		a, ok := item.Artifacts[kind]
		if !ok || !a.Generated {
			return step, false, precondition("%s has not been generated", kind)
		}
		if brand == domain.BrandClient {
			if img, ok := item.Artifacts[domain.KindImages]; !ok || !img.Generated {
				return step, false, precondition("images have not been generated")
			}
		}
		if client.RequireApproval && !a.Approved {
			return step, false, precondition("%s requires approval before publishing", kind)
		}
		cms, err := o.cms.ForBrand(client, brand)
		if err != nil {
			return step, false, precondition("%s cms: %v", brand, err)
		}
		step.run = func(ctx context.Context) (domain.ArtifactStatus, error) {
			return o.publishArticle(ctx, item, cms, *a)
		}

	case domain.ChannelPodcast, domain.ChannelShortVideo:
		kind := domain.ArtifactKind(ch)
		host := o.hosts.forKind(kind)
		a, ok := item.Artifacts[kind]
		switch {
		case ok && a.Status == domain.ArtifactPublished:
			return step, true, nil
		case host == nil:
			return step, false, precondition("%s host is not configured", kind)
		case !ok || a.Status != domain.ArtifactReady:
			return step, false, precondition("%s is not ready", kind)
		}
		step.run = func(ctx context.Context) (domain.ArtifactStatus, error) {
			return o.publishMedia(ctx, host, *a)
		}

	case domain.ChannelClientSocial, domain.ChannelDirectorySocial:
		brand := domain.BrandClient
		if ch == domain.ChannelDirectorySocial {
			brand = domain.BrandDirectory
		}
		if o.social == nil {
			return step, false, precondition("social scheduler is not configured")
		}
		a, ok := item.Artifacts[brand.SocialKind()]
		posts := item.PostsFor(brand)
		if !ok || !a.Generated || len(posts) == 0 {
			return step, false, precondition("%s posts have not been generated", brand)
		}
		eligible := eligiblePosts(posts, client.RequireApproval)
		if len(eligible) == 0 {
			if allPublished(posts) {
				return step, true, nil
			}
			return step, false, precondition("%s has no post eligible for publishing", brand)
		}
		profile := client.SocialProfileKey
		if brand == domain.BrandDirectory {
			profile = o.directoryKey
		}
		at := o.scheduleTime(client, opts)
		media := imageURLs(item)
		step.run = func(ctx context.Context) (domain.ArtifactStatus, error) {
			return o.publishPosts(ctx, eligible, profile, media, at)
		}

	default:
		return step, false, precondition("unknown channel %s", ch)
	}
	return step, false, nil
}

func eligiblePosts(posts []*domain.SocialPost, requireApproval bool) []*domain.SocialPost {
	var out []*domain.SocialPost
	for _, p := range posts {
		if p.Status == domain.ArtifactPublished || p.Status.InFlight() {
			continue
		}
		if requireApproval && !p.Approved {
			continue
		}
		out = append(out, p)
	}
	return out
}

func allPublished(posts []*domain.SocialPost) bool {
	for _, p := range posts {
		if p.Status != domain.ArtifactPublished {
			return false
		}
	}
	return len(posts) > 0
}

func imageURLs(item *domain.ContentItem) []string {
	img, ok := item.Artifacts[domain.KindImages]
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(img.Content.Images))
	for _, i := range img.Content.Images {
		urls = append(urls, i.URL)
	}
	return urls
}

// scheduleTime is nil for immediate posting, the explicit time, or the client's next slot.
func (o *PublishOrchestrator) scheduleTime(client *clientDomain.Client, opts domain.PublishOptions) *time.Time {
	if opts.PostImmediate {
		return nil
	}
	if opts.ScheduleAt != nil {
		at := opts.ScheduleAt.UTC()
		return &at
	}
	next, err := timeutils.NextOccurrence(client.SlotDays, client.SlotTime, o.now(), timeutils.LoadLocation(client.Timezone))
	if err != nil {
		logrus.WithError(err).Warnf("[PUBLISH] Client %s has no usable slot, posting immediately", client.ID)
		return nil
	}
	next = next.UTC()
	return &next
}

func (o *PublishOrchestrator) publishArticle(ctx context.Context, item *domain.ContentItem, cms domain.CMSPublisher, a domain.Artifact) (domain.ArtifactStatus, error) {
	wasPublished := a.Status == domain.ArtifactPublished
	fail := func(err error) (domain.ArtifactStatus, error) {
		a.Error = err.Error()
		if !wasPublished {
			a.Status = domain.ArtifactFailed
		}
		if saveErr := o.items.SaveArtifact(context.WithoutCancel(ctx), &a); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
		return domain.ArtifactFailed, err
	}

	if a.Content.FeaturedMediaID == "" {
		if img, ok := item.Artifacts[domain.KindImages]; ok && len(img.Content.Images) > 0 {
			first := img.Content.Images[0]
			media, err := cms.UploadMedia(ctx, domain.CMSMediaInput{
				Filename:    mediaFilename(a.Content.Slug, first.URL),
				ContentType: "image/jpeg",
				SourceURL:   first.URL,
			})
			if err != nil {
				return fail(fmt.Errorf("upload featured image: %w", err))
			}
			a.Content.FeaturedMediaID = media.ID
		}
	}

	body, err := o.renderBody(ctx, item, a)
	if err != nil {
		return fail(err)
	}

	post, err := cms.CreateOrUpdatePost(ctx, domain.CMSPostInput{
		ID:              a.ExternalID,
		Title:           a.Content.Title,
		Slug:            a.Content.Slug,
		HTML:            body,
		Excerpt:         a.Content.Excerpt,
		FeaturedMediaID: a.Content.FeaturedMediaID,
		Meta:            articleMeta(a.Content),
	})
	if err != nil {
		return fail(err)
	}

	now := o.now().UTC()
	a.ExternalID = post.ID
	a.URL = post.URL
	a.Content.HTML = body
	a.Status = domain.ArtifactPublished
	a.Error = ""
	if a.PublishedAt == nil {
		a.PublishedAt = &now
	}
	if err := o.items.SaveArtifact(ctx, &a); err != nil {
		return domain.ArtifactFailed, fmt.Errorf("post %s published but not saved: %w", post.ID, err)
	}

	if a.Kind == domain.KindArticle {
		moved, err := o.items.TransitionStatus(ctx, item.ID, []domain.ItemStatus{domain.StatusReview}, domain.StatusPublished, "")
		if err != nil {
			return domain.ArtifactPublished, err
		}
		if moved {
			logrus.WithField("item_id", item.ID).Info("[PUBLISH] Item published")
		}
	}
	return domain.ArtifactPublished, nil
}

// renderBody is a full re-render from markdown. The client article also gets the location map and
// whatever secondary media is already published.
func (o *PublishOrchestrator) renderBody(ctx context.Context, item *domain.ContentItem, a domain.Artifact) (string, error) {
	if o.renderer == nil {
		return "", domain.ErrNotConfigured
	}
	body, err := o.renderer.Render(a.Content.Markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	if a.Kind != domain.KindArticle {
		return body, nil
	}
	if o.locations != nil && item.LocationID != "" {
		loc, err := o.locations.GetLocation(ctx, item.LocationID)
		if err != nil {
			logrus.WithError(err).Warnf("[PUBLISH] Location %s unavailable, publishing without map", item.LocationID)
		} else if loc.MapEmbedURL != "" {
			body += fmt.Sprintf(`<div class="cf-map-embed"><iframe src="%s" loading="lazy"></iframe></div>`, html.EscapeString(loc.MapEmbedURL))
		}
	}
	return Compose(body, EmbedsFor(item))
}

func mediaFilename(slug, source string) string {
	ext := path.Ext(strings.SplitN(source, "?", 2)[0])
	if ext == "" {
		ext = ".jpg"
	}
	if slug == "" {
		slug = "featured"
	}
	return slug + ext
}

func (o *PublishOrchestrator) publishMedia(ctx context.Context, host domain.MediaHost, a domain.Artifact) (domain.ArtifactStatus, error) {
	published, err := host.Publish(ctx, a.ExternalID)
	if err != nil {
		// READY se conserva: el publish se puede reintentar
		return domain.ArtifactFailed, err
	}
	now := o.now().UTC()
	a.Status = domain.ArtifactPublished
	a.URL = published.URL
	if published.ThumbnailURL != "" {
		a.ThumbnailURL = published.ThumbnailURL
	}
	a.Error = ""
	a.PublishedAt = &now
	ok, err := o.items.CompareAndSetArtifact(ctx, &a, domain.ArtifactReady)
	if err != nil {
		return domain.ArtifactFailed, err
	}
	if !ok {
		return domain.ArtifactFailed, conflict("%s changed while publishing", a.Kind)
	}
	return domain.ArtifactPublished, nil
}

func (o *PublishOrchestrator) publishPosts(ctx context.Context, posts []*domain.SocialPost, profile string, media []string, at *time.Time) (domain.ArtifactStatus, error) {
	var errs []string
	statuses := domain.NewSet[domain.ArtifactStatus]()

	for _, p := range posts {
		post := *p
		expect := post.Status
		res, err := o.social.Schedule(ctx, domain.ScheduleRequest{
			ProfileKey: profile,
			Platform:   post.Platform,
			Caption:    post.Caption,
			Hashtags:   post.Hashtags,
			MediaURLs:  media,
			At:         at,
		})
		if err != nil {
			post.Status = domain.ArtifactFailed
			post.Error = err.Error()
			errs = append(errs, fmt.Sprintf("%s: %v", post.Platform, err))
		} else {
			post.Status = postStatusFor(res.State)
			post.ExternalPostID = res.ExternalPostID
			post.URL = res.URL
			post.Error = ""
			post.ScheduledFor = at
			if post.Status == domain.ArtifactFailed {
				post.Error = "rejected by social scheduler"
				errs = append(errs, fmt.Sprintf("%s: %s", post.Platform, post.Error))
			}
		}
		statuses.Add(post.Status)

		ok, cerr := o.items.CompareAndSetPost(context.WithoutCancel(ctx), &post, expect)
		switch {
		case cerr != nil:
			errs = append(errs, fmt.Sprintf("%s: save: %v", post.Platform, cerr))
		case !ok:
			errs = append(errs, fmt.Sprintf("%s: %v", post.Platform,
				conflict("post changed while publishing, external post %s not recorded", post.ExternalPostID)))
		}
	}

	if len(errs) > 0 {
		return domain.ArtifactFailed, errors.New(strings.Join(errs, "; "))
	}
	switch {
	case statuses.Has(domain.ArtifactProcessing):
		return domain.ArtifactProcessing, nil
	case statuses.Has(domain.ArtifactScheduled):
		return domain.ArtifactScheduled, nil
	}
	return domain.ArtifactPublished, nil
}

func postStatusFor(state domain.JobState) domain.ArtifactStatus {
	switch state {
	case domain.JobPublished:
		return domain.ArtifactPublished
	case domain.JobScheduled:
		return domain.ArtifactScheduled
	case domain.JobFailed:
		return domain.ArtifactFailed
	}
	return domain.ArtifactProcessing
}

// embedAfterSecondary refreshes the article body when audio or video reached PUBLISHED in this call.
func (o *PublishOrchestrator) embedAfterSecondary(ctx context.Context, itemID string, results *domain.Results[domain.Channel]) {
	if o.embeds == nil || !o.settings.AutoEmbed(ctx) {
		return
	}
	advanced := false
	for _, ch := range []domain.Channel{domain.ChannelPodcast, domain.ChannelShortVideo} {
		if out, ok := results.Get(ch); ok && out.OK() && !out.Skipped {
			advanced = true
		}
	}
	if !advanced {
		return
	}
	if _, err := o.embeds.EmbedAll(ctx, itemID); err != nil && !errors.Is(err, domain.ErrPrecondition) {
		logrus.WithError(err).Warnf("[PUBLISH] Embedding media into item %s failed", itemID)
	}
}
