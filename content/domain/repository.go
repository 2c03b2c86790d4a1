package domain

import (
	"context"
	"time"
)

type ItemFilter struct {
	ClientID string
	Status   ItemStatus
	Limit    int
	Offset   int
}

// ItemRepository persists items, their artifacts and social posts.
type ItemRepository interface {
	Create(ctx context.Context, item *ContentItem) error
	Get(ctx context.Context, id string) (*ContentItem, error)
	List(ctx context.Context, filter ItemFilter) ([]*ContentItem, error)
	CountByClient(ctx context.Context, clientID string) (int64, error)

	// HasCycle reports whether the client already has an item for cycleKey, deleted items included.
	HasCycle(ctx context.Context, clientID, cycleKey string) (bool, error)

	// TransitionStatus moves the item to `to` only if its status is one of from.
	TransitionStatus(ctx context.Context, id string, from []ItemStatus, to ItemStatus, lastError string) (bool, error)

	SaveArtifact(ctx context.Context, a *Artifact) error
	// CompareAndSetArtifact writes a only while the stored status still equals expect.
	CompareAndSetArtifact(ctx context.Context, a *Artifact, expect ArtifactStatus) (bool, error)

	// ReplacePosts drops the brand's unpublished posts and inserts posts.
	ReplacePosts(ctx context.Context, itemID string, brand Brand, posts []*SocialPost) error
	SavePost(ctx context.Context, p *SocialPost) error
	CompareAndSetPost(ctx context.Context, p *SocialPost, expect ArtifactStatus) (bool, error)

	ListStaleGenerating(ctx context.Context, before time.Time) ([]string, error)
	ListWithPendingWork(ctx context.Context) ([]string, error)
	FindByExternalID(ctx context.Context, externalID string) (string, error)

	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

type UploadRepository interface {
	CreateSession(ctx context.Context, s *UploadSession) error
	GetSession(ctx context.Context, id string) (*UploadSession, error)
	UpdateReceived(ctx context.Context, id string, received int64) error
	DeleteSession(ctx context.Context, id string) error
}
