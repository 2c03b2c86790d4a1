package application

import (
	"context"
	"fmt"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/domain"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
)

// ClientDirectory is the slice of the client service the pipeline reads and updates.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*clientDomain.Client, error)
	ListAutomated(ctx context.Context) ([]*clientDomain.Client, error)
	MarkScheduled(ctx context.Context, id string, at time.Time) error
}

// LocationDirectory resolves the location an item was produced for.
type LocationDirectory interface {
	GetLocation(ctx context.Context, id string) (*clientDomain.ServiceLocation, error)
}

type TopicPicker interface {
	SelectNextTopic(ctx context.Context, clientID string, loc *clientDomain.ServiceLocation) (*clientDomain.TopicEntry, string, error)
	MarkUsed(ctx context.Context, clientID string, entry *clientDomain.TopicEntry) error
}

type LocationPicker interface {
	SelectNextLocation(ctx context.Context, clientID string) (*clientDomain.ServiceLocation, error)
	MarkUsed(ctx context.Context, loc *clientDomain.ServiceLocation) error
}

// Settings are runtime switches editable without a restart.
type Settings interface {
	AutomationPaused(ctx context.Context) bool
	AutoEmbed(ctx context.Context) bool
	DirectoryName(ctx context.Context) string
}

type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CMSResolver returns the CMS a brand publishes to: the client's own site or the shared directory.
type CMSResolver interface {
	ForBrand(client *clientDomain.Client, brand domain.Brand) (domain.CMSPublisher, error)
}

type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// MediaHosts agrupa los sistemas externos de audio y video.
type MediaHosts struct {
	Audio     domain.MediaHost
	Video     domain.MediaHost
	LongVideo domain.LongVideoHost
}

func (h MediaHosts) forKind(kind domain.ArtifactKind) domain.MediaHost {
	switch kind {
	case domain.KindPodcast:
		return h.Audio
	case domain.KindShortVideo:
		return h.Video
	}
	return nil
}

// staticSettings is used when no settings store is wired.
type staticSettings struct{}

func (staticSettings) AutomationPaused(context.Context) bool { return false }
func (staticSettings) AutoEmbed(context.Context) bool        { return true }
func (staticSettings) DirectoryName(context.Context) string  { return "" }

// precondition builds an error matching both domain.ErrPrecondition and pkgError.PreconditionError.
func precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %w", domain.ErrPrecondition, pkgError.PreconditionError(fmt.Sprintf(format, args...)))
}

func conflict(format string, args ...any) error {
	return pkgError.ConflictError(fmt.Sprintf(format, args...))
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// enabledKinds always includes the primary article, which gates the item status.
func enabledKinds(client *clientDomain.Client) domain.KindSet {
	kinds, err := domain.ParseKinds(client.EnabledKinds)
	if err != nil || kinds.Len() == 0 {
		return domain.NewSet(domain.GeneratedKinds...)
	}
	kinds.Add(domain.KindArticle)
	return kinds
}
