package application

import (
	"context"
	"strings"
	"testing"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleBody = `<p>Lead paragraph.</p><p>Second paragraph.</p>` +
	`<div class="cf-map-embed"><iframe src="https://www.google.com/maps/embed?pb=austin"></iframe></div>` +
	`<p>Closing.</p>`

var allEmbeds = Embeds{
	ShortVideoURL: "https://media.test/short.mp4",
	LongVideoURL:  "https://www.youtube.com/watch?v=abc123",
	AudioURL:      "https://audio.test/episode.mp3",
}

func TestCompose_PlacesEachEmbed(t *testing.T) {
	out, err := Compose(articleBody, allEmbeds)
	require.NoError(t, err)

	lead := strings.Index(out, "Lead paragraph.")
	short := strings.Index(out, "cf-short-video")
	second := strings.Index(out, "Second paragraph.")
	long := strings.Index(out, "https://www.youtube.com/embed/abc123")
	mapFrame := strings.Index(out, "google.com/maps/embed")
	closing := strings.Index(out, "Closing.")
	audio := strings.Index(out, "cf-audio")

	for name, idx := range map[string]int{"short": short, "long": long, "map": mapFrame, "audio": audio} {
		require.NotEqual(t, -1, idx, name)
	}
	assert.Less(t, lead, short)
	assert.Less(t, short, second)
	assert.Less(t, long, mapFrame)
	assert.Less(t, closing, audio)
	assert.True(t, strings.HasSuffix(out, "</audio></div>"), out)
}

func TestCompose_IsIdempotent(t *testing.T) {
	once, err := Compose(articleBody, allEmbeds)
	require.NoError(t, err)
	twice, err := Compose(once, allEmbeds)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "cf-short-video"))
	assert.Equal(t, 1, strings.Count(twice, "cf-audio"))
}

func TestCompose_WithoutLeadOrMap(t *testing.T) {
	out, err := Compose(`<h2>Heading only</h2>`, allEmbeds)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<div class="cf-media-embed cf-short-video">`), out)
	assert.Less(t, strings.Index(out, "Heading only"), strings.Index(out, "cf-long-video"))
	assert.Less(t, strings.Index(out, "cf-long-video"), strings.Index(out, "cf-audio"))
}

func TestCompose_DropsEmbedsNoLongerPublished(t *testing.T) {
	withAll, err := Compose(articleBody, allEmbeds)
	require.NoError(t, err)

	out, err := Compose(withAll, Embeds{AudioURL: allEmbeds.AudioURL})
	require.NoError(t, err)
	assert.NotContains(t, out, "cf-short-video")
	assert.NotContains(t, out, "cf-long-video")
	assert.Contains(t, out, "cf-audio")
	assert.Contains(t, out, "cf-map-embed")
}

func TestYoutubeEmbedURL(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=abc123": "https://www.youtube.com/embed/abc123",
		"https://youtu.be/abc123":                "https://www.youtube.com/embed/abc123",
		"https://youtube.com/shorts/abc123":      "https://www.youtube.com/embed/abc123",
		"https://www.youtube.com/embed/abc123":   "https://www.youtube.com/embed/abc123",
	}
	for in, want := range cases {
		got, ok := youtubeEmbedURL(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := youtubeEmbedURL("https://media.test/short.mp4")
	assert.False(t, ok)
}

func TestEmbedAll_SecondCallPushesNothing(t *testing.T) {
	h := newHarness(t)
	item := h.publishedItem()
	ctx := context.Background()
	require.NoError(t, h.items.SaveArtifact(ctx, &domain.Artifact{
		ItemID: item.ID, Kind: domain.KindPodcast, Generated: true, Status: domain.ArtifactPublished,
		ExternalID: "audio-1", URL: "https://audio.test/audio-1.mp3",
	}))
	e := h.embedder()

	changed, err := e.EmbedAll(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	pushes := h.cms.client.calls()
	first := h.artifact(item.ID, domain.KindArticle).Content.HTML

	changed, err = e.EmbedAll(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, pushes, h.cms.client.calls())
	assert.Equal(t, first, h.artifact(item.ID, domain.KindArticle).Content.HTML)
}

func TestEmbedAll_RequiresPublishedArticle(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)

	_, err := h.embedder().EmbedAll(context.Background(), item.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Zero(t, h.cms.client.calls())
}

func TestEmbedAll_KeepsLiveBodyAfterArticleRegeneration(t *testing.T) {
	h := newHarness(t)
	item := h.publishedItem()
	ctx := context.Background()
	live := h.artifact(item.ID, domain.KindArticle).Content.HTML
	require.Contains(t, live, "Lead.")

	results, err := h.dispatcher().Generate(ctx, item.ID, domain.NewSet(domain.KindArticle), domain.GenerateOptions{ConfirmOverwrite: true})
	require.NoError(t, err)
	require.True(t, results.OK())
	assert.Equal(t, live, h.artifact(item.ID, domain.KindArticle).Content.HTML)

	require.NoError(t, h.items.SaveArtifact(ctx, &domain.Artifact{
		ItemID: item.ID, Kind: domain.KindShortVideo, Generated: true, Status: domain.ArtifactPublished,
		ExternalID: "video-1", URL: "https://media.test/v.mp4",
	}))
	changed, err := h.embedder().EmbedAll(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, changed)

	pushed := h.cms.client.last().HTML
	assert.Contains(t, pushed, "Lead.")
	assert.Contains(t, pushed, "Body.")
	assert.Contains(t, pushed, "https://media.test/v.mp4")
}

func TestEmbedAll_RefusesEmptyBody(t *testing.T) {
	h := newHarness(t)
	item := h.publishedItem()
	ctx := context.Background()
	article := h.artifact(item.ID, domain.KindArticle)
	article.Content.HTML = ""
	require.NoError(t, h.items.SaveArtifact(ctx, article))
	pushes := h.cms.client.calls()

	_, err := h.embedder().EmbedAll(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Equal(t, pushes, h.cms.client.calls())
}
