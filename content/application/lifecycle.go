package application

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/sirupsen/logrus"
)

// ItemService covers the operator actions on a single item outside generation and publishing.
type ItemService struct {
	items      domain.ItemRepository
	generation *Dispatcher
	hosts      MediaHosts
	social     domain.SocialScheduler
}

func NewItemService(items domain.ItemRepository, generation *Dispatcher, hosts MediaHosts, social domain.SocialScheduler) *ItemService {
	return &ItemService{items: items, generation: generation, hosts: hosts, social: social}
}

func (s *ItemService) Get(ctx context.Context, id string) (*domain.ContentItem, error) {
	return s.items.Get(ctx, id)
}

func (s *ItemService) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.ContentItem, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.items.List(ctx, filter)
}

// CountByClient is used by the client service to refuse deleting clients with history.
func (s *ItemService) CountByClient(ctx context.Context, clientID string) (int64, error) {
	return s.items.CountByClient(ctx, clientID)
}

// Delete removes an item. PUBLISHED items need confirm. Known external jobs are cancelled best-effort
// and the deletion proceeds whatever the outcome. DRAFT items are removed with their children,
// every other item is soft-deleted so its cycle window stays consumed.
func (s *ItemService) Delete(ctx context.Context, id string, confirm bool) error {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == domain.StatusPublished && !confirm {
		return domain.ErrPublishedItemDeletion
	}

	s.cancelInFlight(ctx, item)

	if item.Status == domain.StatusDraft {
		err = s.items.HardDelete(ctx, id)
	} else {
		err = s.items.SoftDelete(ctx, id)
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"item_id": id, "status": item.Status}).Info("[ITEMS] Item deleted")
	return nil
}

func (s *ItemService) cancelInFlight(ctx context.Context, item *domain.ContentItem) {
	for kind, a := range item.Artifacts {
		if a.Status != domain.ArtifactProcessing || a.ExternalID == "" {
			continue
		}
		host := s.hosts.forKind(kind)
		if host == nil {
			continue
		}
		if err := host.Cancel(ctx, a.ExternalID); err != nil {
			logrus.WithError(err).Warnf("[ITEMS] Cancelling %s job %s failed", kind, a.ExternalID)
		}
	}
	cancelPosts(ctx, s.social, item, []domain.ArtifactKind{domain.KindClientSocial, domain.KindDirectorySocial})
}

// Retry is the only exit from FAILED: it regenerates the kinds that are missing or failed.
func (s *ItemService) Retry(ctx context.Context, id string) (*domain.Results[domain.ArtifactKind], error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: retry needs a FAILED item, got %s", domain.ErrInvalidTransition, item.Status)
	}
	client, err := s.generation.clients.GetByID(ctx, item.ClientID)
	if err != nil {
		return nil, err
	}

	kinds := domain.NewSet[domain.ArtifactKind]()
	for _, kind := range enabledKinds(client).Sorted() {
		a, ok := item.Artifacts[kind]
		if !ok || !a.Generated || a.Status == domain.ArtifactFailed {
			kinds.Add(kind)
		}
	}
	// El artículo decide el estado del item, siempre se reintenta si no está generado
	if a, ok := item.Artifacts[domain.KindArticle]; !ok || !a.Generated {
		kinds.Add(domain.KindArticle)
	}
	return s.generation.dispatch(ctx, item, kinds, domain.GenerateOptions{}, []domain.ItemStatus{domain.StatusFailed})
}

// Approve marks artifact kinds and social posts as approved for publishing.
func (s *ItemService) Approve(ctx context.Context, id string, kinds domain.KindSet, postIDs []string) error {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, kind := range kinds.Sorted() {
		a, ok := item.Artifacts[kind]
		if !ok || !a.Generated {
			return precondition("%s has not been generated", kind)
		}
		if a.Approved {
			continue
		}
		a.Approved = true
		ok, err := s.items.CompareAndSetArtifact(ctx, a, a.Status)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("%s changed while approving", kind)
		}
		// Aprobar un tipo social aprueba todos sus posts
		for _, brand := range []domain.Brand{domain.BrandClient, domain.BrandDirectory} {
			if brand.SocialKind() == kind {
				for _, p := range item.PostsFor(brand) {
					postIDs = append(postIDs, p.ID)
				}
			}
		}
	}

	wanted := make(map[string]bool, len(postIDs))
	for _, pid := range postIDs {
		wanted[pid] = true
	}
	for _, p := range item.Posts {
		if !wanted[p.ID] || p.Approved {
			delete(wanted, p.ID)
			continue
		}
		delete(wanted, p.ID)
		p.Approved = true
		if _, err := s.items.CompareAndSetPost(ctx, p, p.Status); err != nil {
			return err
		}
	}
	for pid := range wanted {
		return precondition("post %s does not belong to item %s", pid, id)
	}
	return nil
}
