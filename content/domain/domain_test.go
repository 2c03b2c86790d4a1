package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResults_ErrJoinsFailingKeysInOrder(t *testing.T) {
	r := NewResults[Channel]()
	r.Succeed(ChannelArticle, ArtifactPublished)
	r.Fail(ChannelShortVideo, errors.New("renderer down"))
	r.Fail(ChannelClientSocial, errors.New("quota exceeded"))

	err := r.Err()
	require.Error(t, err)
	assert.Equal(t, "client_social: quota exceeded; short_video: renderer down", err.Error())
	assert.Equal(t, []Channel{ChannelClientSocial, ChannelShortVideo}, r.Failed())
	assert.False(t, r.OK())

	o, ok := r.Get(ChannelArticle)
	require.True(t, ok)
	assert.True(t, o.OK())
}

func TestResults_EmptyIsOK(t *testing.T) {
	r := NewResults[ArtifactKind]()
	r.Set(KindArticle, Outcome{Status: ArtifactPublished, Skipped: true})
	assert.NoError(t, r.Err())
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"article", "client_social", "article"})
	require.NoError(t, err)
	assert.Equal(t, []ArtifactKind{KindArticle, KindClientSocial}, kinds.Sorted())

	_, err = ParseKinds([]string{"long_video"})
	assert.Error(t, err, "long video is uploaded, never generated")

	_, err = ParseChannels([]string{"fax"})
	assert.Error(t, err)
}

func TestItemTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransition(StatusGenerating))
	assert.True(t, StatusFailed.CanTransition(StatusGenerating))
	assert.False(t, StatusFailed.CanTransition(StatusReview))
	assert.False(t, StatusGenerating.CanTransition(StatusPublished))
	assert.True(t, StatusReview.CanTransition(StatusPublished))
}

func TestStatusAfterGeneration(t *testing.T) {
	item := &ContentItem{ID: "i1"}
	assert.Equal(t, StatusFailed, item.StatusAfterGeneration())

	item.Artifact(KindArticle).Generated = true
	assert.Equal(t, StatusReview, item.StatusAfterGeneration())

	item.Artifact(KindArticle).Status = ArtifactPublished
	assert.Equal(t, StatusPublished, item.StatusAfterGeneration())
}
