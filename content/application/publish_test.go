package application

import (
	"context"
	"errors"
	"testing"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) socialPosts(itemID string, brand domain.Brand, platforms ...string) []*domain.SocialPost {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.items.SaveArtifact(ctx, &domain.Artifact{
		ItemID: itemID, Kind: brand.SocialKind(), Generated: true, Status: domain.ArtifactDraft,
	}))
	posts := make([]*domain.SocialPost, 0, len(platforms))
	for _, p := range platforms {
		posts = append(posts, &domain.SocialPost{ItemID: itemID, Brand: brand, Platform: p, Caption: "Roof tips", Status: domain.ArtifactDraft})
	}
	require.NoError(h.t, h.items.ReplacePosts(ctx, itemID, brand, posts))
	return posts
}

func TestPublish_SocialBeforeGenerationIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)

	results, err := h.publisher().Publish(context.Background(), item.ID, domain.NewSet(domain.ChannelClientSocial), domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)

	out, ok := results.Get(domain.ChannelClientSocial)
	require.True(t, ok)
	assert.ErrorIs(t, out.Err, domain.ErrPrecondition)
	assert.Empty(t, h.social.requests)
	assert.Zero(t, h.cms.client.calls())
	assert.Equal(t, domain.StatusReview, h.get(item.ID).Status)
}

func TestPublish_RejectsItemsOutsideReview(t *testing.T) {
	h := newHarness(t)
	item := h.draftItem(h.client(nil).ID)

	_, err := h.publisher().Publish(context.Background(), item.ID, domain.NewSet(domain.ChannelArticle), domain.PublishOptions{})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestPublish_PartialFailureStillAdvancesPrimaryArticle(t *testing.T) {
	h := newHarness(t)
	h.cms.directory.err = errors.New("directory site down")
	item := h.reviewItem(h.client(nil).ID)
	require.NoError(t, h.items.SaveArtifact(context.Background(), &domain.Artifact{
		ItemID: item.ID, Kind: domain.KindDirectoryArticle, Generated: true, Status: domain.ArtifactDraft,
		Content: domain.ArtifactContent{Title: "Directory take", Markdown: "Directory lead."},
	}))

	channels := domain.NewSet(domain.ChannelArticle, domain.ChannelDirectoryArticle)
	results, err := h.publisher().Publish(context.Background(), item.ID, channels, domain.PublishOptions{})
	require.NoError(t, err)

	assert.False(t, results.OK())
	assert.EqualError(t, results.Err(), "directory_article: directory site down")
	article, _ := results.Get(domain.ChannelArticle)
	assert.True(t, article.OK())
	assert.Equal(t, domain.ArtifactPublished, article.Status)

	fresh := h.get(item.ID)
	assert.Equal(t, domain.StatusPublished, fresh.Status)
	assert.Equal(t, domain.ArtifactFailed, fresh.Artifacts[domain.KindDirectoryArticle].Status)
	assert.Equal(t, "directory site down", fresh.Artifacts[domain.KindDirectoryArticle].Error)
	assert.Equal(t, 1, h.cms.client.calls())
}

func TestPublish_RepublishRerendersSamePost(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	ctx := context.Background()
	p := h.publisher()

	_, err := p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelArticle), domain.PublishOptions{})
	require.NoError(t, err)
	first := h.cms.client.last()
	assert.Empty(t, first.ID)
	assert.Equal(t, "m1", first.FeaturedMediaID)
	postID := h.artifact(item.ID, domain.KindArticle).ExternalID
	require.NotEmpty(t, postID)

	article := h.artifact(item.ID, domain.KindArticle)
	article.Content.Markdown = "New lead.\n\nRewritten body."
	require.NoError(t, h.items.SaveArtifact(ctx, article))

	results, err := p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelArticle), domain.PublishOptions{})
	require.NoError(t, err)
	assert.True(t, results.OK())

	second := h.cms.client.last()
	assert.Equal(t, postID, second.ID)
	assert.Contains(t, second.HTML, "Rewritten body.")
	assert.Equal(t, 1, h.cms.client.uploads)
	assert.Equal(t, domain.StatusPublished, h.get(item.ID).Status)
}

func TestPublish_ArticleIncludesLocationMap(t *testing.T) {
	h := newHarness(t)
	client := h.client(nil)
	locs, err := h.clients.ListLocations(context.Background(), client.ID)
	require.NoError(t, err)
	item := h.reviewItemAt(client.ID, locs[0].ID)

	_, err = h.publisher().Publish(context.Background(), item.ID, domain.NewSet(domain.ChannelArticle), domain.PublishOptions{})
	require.NoError(t, err)
	assert.Contains(t, h.cms.client.last().HTML, `class="cf-map-embed"`)
	assert.Contains(t, h.cms.client.last().HTML, "google.com/maps/embed")
}

func TestPublish_MediaNeedsReadyAndEmbedsIntoArticle(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	ctx := context.Background()
	p := h.publisher()

	_, err := p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelArticle), domain.PublishOptions{})
	require.NoError(t, err)

	video := &domain.Artifact{ItemID: item.ID, Kind: domain.KindShortVideo, Generated: true, Status: domain.ArtifactProcessing, ExternalID: "video-9"}
	require.NoError(t, h.items.SaveArtifact(ctx, video))

	results, err := p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelShortVideo), domain.PublishOptions{})
	require.NoError(t, err)
	out, _ := results.Get(domain.ChannelShortVideo)
	assert.ErrorIs(t, out.Err, domain.ErrPrecondition)
	assert.Empty(t, h.video.published)

	video.Status = domain.ArtifactReady
	require.NoError(t, h.items.SaveArtifact(ctx, video))
	results, err = p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelShortVideo), domain.PublishOptions{})
	require.NoError(t, err)
	require.True(t, results.OK())

	assert.Equal(t, []string{"video-9"}, h.video.published)
	assert.Equal(t, domain.ArtifactPublished, h.artifact(item.ID, domain.KindShortVideo).Status)

	// El artículo publicado recibe el embed del video
	body := h.cms.client.last().HTML
	assert.Contains(t, body, "cf-short-video")
	assert.Contains(t, body, "https://media.test/video-9.mp4")
	assert.Equal(t, body, h.artifact(item.ID, domain.KindArticle).Content.HTML)

	results, err = p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelShortVideo), domain.PublishOptions{})
	require.NoError(t, err)
	out, _ = results.Get(domain.ChannelShortVideo)
	assert.True(t, out.Skipped)
}

func TestPublish_SocialSchedulesAtNextSlot(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	h.socialPosts(item.ID, domain.BrandClient, "facebook", "instagram")
	ctx := context.Background()
	p := h.publisher()

	results, err := p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelClientSocial), domain.PublishOptions{})
	require.NoError(t, err)
	out, _ := results.Get(domain.ChannelClientSocial)
	require.True(t, out.OK())
	assert.Equal(t, domain.ArtifactScheduled, out.Status)

	nextMonday := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	require.Len(t, h.social.requests, 2)
	for _, req := range h.social.requests {
		require.NotNil(t, req.At)
		assert.True(t, req.At.Equal(nextMonday), req.At)
		assert.Equal(t, "acme-profile", req.ProfileKey)
		assert.Equal(t, []string{"https://cdn.test/roof.jpg"}, req.MediaURLs)
	}
	for _, post := range h.get(item.ID).Posts {
		assert.Equal(t, domain.ArtifactScheduled, post.Status)
		assert.NotEmpty(t, post.ExternalPostID)
	}

	results, err = p.Publish(ctx, item.ID, domain.NewSet(domain.ChannelClientSocial), domain.PublishOptions{})
	require.NoError(t, err)
	out, _ = results.Get(domain.ChannelClientSocial)
	assert.ErrorIs(t, out.Err, domain.ErrPrecondition)
	assert.Len(t, h.social.requests, 2)
}

func TestPublish_SocialFailuresAreReportedPerPlatform(t *testing.T) {
	h := newHarness(t)
	h.social.failOn["instagram"] = errors.New("token expired")
	item := h.reviewItem(h.client(nil).ID)
	h.socialPosts(item.ID, domain.BrandDirectory, "facebook", "instagram")

	results, err := h.publisher().Publish(context.Background(), item.ID, domain.NewSet(domain.ChannelDirectorySocial), domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)
	assert.EqualError(t, results.Err(), "directory_social: instagram: token expired")

	statuses := map[string]domain.ArtifactStatus{}
	for _, post := range h.get(item.ID).PostsFor(domain.BrandDirectory) {
		statuses[post.Platform] = post.Status
	}
	assert.Equal(t, domain.ArtifactProcessing, statuses["facebook"])
	assert.Equal(t, domain.ArtifactFailed, statuses["instagram"])
	for _, req := range h.social.requests {
		assert.Nil(t, req.At)
		assert.Equal(t, "directory-profile", req.ProfileKey)
	}
}

func TestPublish_SocialRejectedWithoutErrorFailsChannel(t *testing.T) {
	h := newHarness(t)
	h.social.rejectOn["instagram"] = true
	item := h.reviewItem(h.client(nil).ID)
	h.socialPosts(item.ID, domain.BrandClient, "facebook", "instagram")

	results, err := h.publisher().Publish(context.Background(), item.ID, domain.NewSet(domain.ChannelClientSocial), domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)
	assert.False(t, results.OK())
	out, _ := results.Get(domain.ChannelClientSocial)
	assert.Equal(t, domain.ArtifactFailed, out.Status)
	assert.EqualError(t, results.Err(), "client_social: instagram: rejected by social scheduler")

	for _, post := range h.get(item.ID).PostsFor(domain.BrandClient) {
		if post.Platform == "instagram" {
			assert.Equal(t, domain.ArtifactFailed, post.Status)
			assert.Equal(t, "rejected by social scheduler", post.Error)
		}
	}
}

func TestPublish_SocialPostChangedMidPublishIsAConflict(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	posts := h.socialPosts(item.ID, domain.BrandClient, "facebook")
	ctx := context.Background()
	h.social.onSchedule = func(string) {
		moved := *posts[0]
		moved.Status = domain.ArtifactPublished
		moved.ExternalPostID = "other-run"
		assert.NoError(t, h.items.SavePost(ctx, &moved))
	}

	results, err := h.publisher().Publish(ctx, item.ID, domain.NewSet(domain.ChannelClientSocial), domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)
	out, _ := results.Get(domain.ChannelClientSocial)
	assert.False(t, out.OK())
	assert.Contains(t, out.Err.Error(), "facebook: post changed while publishing")

	stored := h.get(item.ID).PostsFor(domain.BrandClient)
	require.Len(t, stored, 1)
	assert.Equal(t, "other-run", stored[0].ExternalPostID)
}

func TestPublish_ApprovalGating(t *testing.T) {
	h := newHarness(t)
	client := h.client(func(c *clientDomain.Client) { c.RequireApproval = true })
	item := h.reviewItem(client.ID)
	posts := h.socialPosts(item.ID, domain.BrandClient, "facebook", "instagram")
	ctx := context.Background()
	p := h.publisher()
	svc := NewItemService(h.items, h.dispatcher(), h.hosts(), h.social)

	channels := domain.NewSet(domain.ChannelArticle, domain.ChannelClientSocial)
	results, err := p.Publish(ctx, item.ID, channels, domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{domain.ChannelArticle, domain.ChannelClientSocial}, results.Failed())
	assert.Zero(t, h.cms.client.calls())

	require.NoError(t, svc.Approve(ctx, item.ID, domain.NewSet(domain.KindArticle), []string{posts[0].ID}))
	results, err = p.Publish(ctx, item.ID, channels, domain.PublishOptions{PostImmediate: true})
	require.NoError(t, err)
	assert.True(t, results.OK())
	require.Len(t, h.social.requests, 1)
	assert.Equal(t, "facebook", h.social.requests[0].Platform)

	err = svc.Approve(ctx, item.ID, nil, []string{"not-a-post"})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}
