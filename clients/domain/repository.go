package domain

import (
	"context"
	"time"
)

// ClientFilter define los criterios de filtrado para listar clientes
type ClientFilter struct {
	Enabled   *bool
	Automated *bool
	Search    string
	Limit     int
	Offset    int
}

// ClientRepository define las operaciones de persistencia para clientes
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id string) (*Client, error)
	Update(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ClientFilter) ([]*Client, error)

	// MarkScheduled records the start of the cycle window a scheduled item was created for.
	MarkScheduled(ctx context.Context, id string, at time.Time) error
}

// LocationRepository define las operaciones de persistencia para ubicaciones
type LocationRepository interface {
	Create(ctx context.Context, loc *ServiceLocation) error
	GetByID(ctx context.Context, id string) (*ServiceLocation, error)
	Update(ctx context.Context, loc *ServiceLocation) error
	Delete(ctx context.Context, id string) error
	ListByClient(ctx context.Context, clientID string) ([]*ServiceLocation, error)

	// ListForRotation returns active locations, never-used first, then by last use ascending.
	ListForRotation(ctx context.Context, clientID string) ([]*ServiceLocation, error)
	ClearHeadquarters(ctx context.Context, clientID, exceptID string) error
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

// TopicFilter define los criterios para listar preguntas
type TopicFilter struct {
	ClientID string
	Pool     TopicPool
	Limit    int
	Offset   int
}

// TopicRepository define las operaciones de persistencia para preguntas y su uso por cliente
type TopicRepository interface {
	Create(ctx context.Context, topic *TopicEntry) error
	GetByID(ctx context.Context, id string) (*TopicEntry, error)
	Update(ctx context.Context, topic *TopicEntry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TopicFilter) ([]*TopicEntry, error)

	// NextUnused returns the first active entry of pool the client has never used, or nil.
	NextUnused(ctx context.Context, clientID string, pool TopicPool) (*TopicEntry, error)
	// OldestUsed returns the entry across both pools whose last use by the client is oldest, or nil.
	OldestUsed(ctx context.Context, clientID string) (*TopicEntry, error)
	MarkUsed(ctx context.Context, clientID, topicID string, at time.Time) error
}
