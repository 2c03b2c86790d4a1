package application

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentRange(t *testing.T) {
	cr, err := ParseContentRange("bytes 0-3/10")
	require.NoError(t, err)
	assert.Equal(t, ContentRange{Start: 0, End: 3, Total: 10}, cr)
	assert.EqualValues(t, 4, cr.Len())

	for _, bad := range []string{
		"",
		"0-3/10",
		"bytes 0-3",
		"bytes 3/10",
		"bytes a-3/10",
		"bytes 4-3/10",
		"bytes 0-10/10",
		"bytes -1-3/10",
	} {
		_, err := ParseContentRange(bad)
		assert.ErrorIs(t, err, domain.ErrUploadRange, bad)
	}
}

func (h *harness) uploadService(dir string) *UploadService {
	return NewUploadService(h.items, h.uploads, h.long, dir)
}

func TestUpload_ChunksInOrderThenFinalize(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	ctx := context.Background()
	svc := h.uploadService(t.TempDir())

	session, err := svc.Init(ctx, item.ID, domain.UploadInitRequest{Filename: "../../walkthrough.mp4", TotalSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "walkthrough.mp4", session.Filename)
	assert.Equal(t, item.Question, session.Title)

	chunk := func(header, body string) (*domain.UploadSession, error) {
		cr, err := ParseContentRange(header)
		require.NoError(t, err)
		return svc.WriteChunk(ctx, session.ID, cr, strings.NewReader(body))
	}

	got, err := chunk("bytes 0-3/10", "abcd")
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.Received)

	// Reenvío tras perder la respuesta
	got, err = chunk("bytes 0-3/10", "abcd")
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.Received)

	_, err = chunk("bytes 6-9/10", "ghij")
	assert.ErrorIs(t, err, domain.ErrUploadRange)

	_, err = svc.Finalize(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrUploadIncomplete)

	got, err = chunk("bytes 4-9/10", "efghij")
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.Received)

	out, err := svc.Finalize(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "yt-1", out.ExternalID)
	assert.Equal(t, "abcdefghij", string(h.long.data))
	require.Len(t, h.long.uploads, 1)
	assert.Equal(t, item.Question, h.long.uploads[0].Description)

	long := h.artifact(item.ID, domain.KindLongVideo)
	assert.Equal(t, domain.ArtifactProcessing, long.Status)
	assert.Equal(t, "yt-1", long.ExternalID)
	assert.True(t, long.Generated)

	_, err = os.Stat(session.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = h.uploads.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrUploadSessionNotFound)

	// Mientras el host procesa no se abre otra subida
	_, err = svc.Init(ctx, item.ID, domain.UploadInitRequest{Filename: "again.mp4", TotalSize: 10})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestUpload_RejectsMismatchedTotalAndShortBody(t *testing.T) {
	h := newHarness(t)
	item := h.reviewItem(h.client(nil).ID)
	ctx := context.Background()
	svc := h.uploadService(t.TempDir())

	session, err := svc.Init(ctx, item.ID, domain.UploadInitRequest{Filename: "clip.mp4", TotalSize: 10, Title: "Roof walkthrough"})
	require.NoError(t, err)
	assert.Equal(t, "Roof walkthrough", session.Title)

	_, err = svc.WriteChunk(ctx, session.ID, ContentRange{Start: 0, End: 3, Total: 12}, strings.NewReader("abcd"))
	assert.ErrorIs(t, err, domain.ErrUploadRange)

	_, err = svc.WriteChunk(ctx, session.ID, ContentRange{Start: 0, End: 3, Total: 10}, strings.NewReader("ab"))
	assert.ErrorIs(t, err, domain.ErrUploadRange)

	fresh, err := h.uploads.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.Received)
}
