package application

import (
	"context"
	"testing"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) itemService() *ItemService {
	return NewItemService(h.items, h.dispatcher(), h.hosts(), h.social)
}

func TestItemService_DeleteDraftRemovesEverything(t *testing.T) {
	h := newHarness(t)
	client := h.client(nil)
	item := h.draftItem(client.ID)
	ctx := context.Background()

	require.NoError(t, h.itemService().Delete(ctx, item.ID, false))

	_, err := h.items.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	has, err := h.items.HasCycle(ctx, client.ID, item.CycleKey)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestItemService_DeleteCancelsInFlightWorkAndKeepsWindow(t *testing.T) {
	h := newHarness(t)
	client := h.client(nil)
	item := h.reviewItem(client.ID)
	ctx := context.Background()
	h.processing(item.ID, domain.KindPodcast, "audio-7")
	require.NoError(t, h.items.SaveArtifact(ctx, &domain.Artifact{ItemID: item.ID, Kind: domain.KindClientSocial, Generated: true}))
	require.NoError(t, h.items.ReplacePosts(ctx, item.ID, domain.BrandClient, []*domain.SocialPost{
		{ItemID: item.ID, Brand: domain.BrandClient, Platform: "facebook", Status: domain.ArtifactScheduled, ExternalPostID: "sp-9"},
	}))

	// La cancelación del host falla, el borrado sigue adelante
	require.NoError(t, h.itemService().Delete(ctx, item.ID, false))

	assert.Equal(t, []string{"audio-7"}, h.audio.cancelled)
	assert.Equal(t, []string{"sp-9"}, h.social.cancelled)
	_, err := h.items.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	has, err := h.items.HasCycle(ctx, client.ID, item.CycleKey)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestItemService_DeletePublishedNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	item := h.publishedItem()
	ctx := context.Background()
	svc := h.itemService()

	err := svc.Delete(ctx, item.ID, false)
	assert.ErrorIs(t, err, domain.ErrPublishedItemDeletion)
	assert.Equal(t, domain.StatusPublished, h.get(item.ID).Status)

	require.NoError(t, svc.Delete(ctx, item.ID, true))
	_, err = h.items.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestItemService_RetryOnlyFromFailed(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)

	_, err := h.itemService().Retry(context.Background(), item.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestItemService_ListClampsLimit(t *testing.T) {
	h := newHarness(t)
	client := h.client(nil)
	for i := 0; i < 3; i++ {
		h.draftItem(client.ID)
	}

	items, err := h.itemService().List(context.Background(), domain.ItemFilter{ClientID: client.ID, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	n, err := h.itemService().CountByClient(context.Background(), client.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
