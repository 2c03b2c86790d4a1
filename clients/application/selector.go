package application

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-localseo/clients/domain"
	"github.com/sirupsen/logrus"
)

// TopicSelector decide la próxima pregunta: primero la bolsa propia, luego la estándar,
// y cuando ambas están agotadas recicla la usada hace más tiempo.
type TopicSelector struct {
	topics domain.TopicRepository
	now    func() time.Time
}

func NewTopicSelector(topics domain.TopicRepository) *TopicSelector {
	return &TopicSelector{
		topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SelectNextTopic returns the entry and its text rendered for loc. It does not mark the entry used.
func (s *TopicSelector) SelectNextTopic(ctx context.Context, clientID string, loc *domain.ServiceLocation) (*domain.TopicEntry, string, error) {
	for _, pool := range []domain.TopicPool{domain.PoolCustom, domain.PoolStandard} {
		entry, err := s.topics.NextUnused(ctx, clientID, pool)
		if err != nil {
			return nil, "", fmt.Errorf("failed to query %s topics: %w", pool, err)
		}
		if entry != nil {
			return entry, entry.Render(loc), nil
		}
	}

	entry, err := s.topics.OldestUsed(ctx, clientID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query used topics: %w", err)
	}
	if entry == nil {
		return nil, "", fmt.Errorf("client %s: %w", clientID, domain.ErrEmptyTopicPool)
	}

	logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"topic_id":  entry.ID,
		"pool":      entry.Pool,
	}).Debug("[SELECTOR] Topic pool exhausted, recycling oldest used entry")
	return entry, entry.Render(loc), nil
}

// MarkUsed must run only after the content item has been created, ideally in the same transaction.
func (s *TopicSelector) MarkUsed(ctx context.Context, clientID string, entry *domain.TopicEntry) error {
	return s.topics.MarkUsed(ctx, clientID, entry.ID, s.now())
}

// LocationRotator reparte los ciclos entre las ubicaciones activas en round-robin.
type LocationRotator struct {
	locations domain.LocationRepository
	now       func() time.Time
}

func NewLocationRotator(locations domain.LocationRepository) *LocationRotator {
	return &LocationRotator{
		locations: locations,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SelectNextLocation returns the active location used least recently. A client with a single
// location always gets that location, even when it is inactive.
func (r *LocationRotator) SelectNextLocation(ctx context.Context, clientID string) (*domain.ServiceLocation, error) {
	candidates, err := r.locations.ListForRotation(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}

	all, err := r.locations.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return nil, fmt.Errorf("client %s: %w", clientID, domain.ErrNoActiveLocations)
}

func (r *LocationRotator) MarkUsed(ctx context.Context, loc *domain.ServiceLocation) error {
	now := r.now()
	if err := r.locations.MarkUsed(ctx, loc.ID, now); err != nil {
		return err
	}
	loc.LastUsedAt = &now
	return nil
}
