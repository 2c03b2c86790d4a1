package application

import (
	"context"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/clients/domain"
	"github.com/google/uuid"
)

// ItemCounter reports how many content items reference a client.
type ItemCounter interface {
	CountByClient(ctx context.Context, clientID string) (int64, error)
}

// ClientService contiene la lógica de negocio para la gestión de clientes
type ClientService struct {
	clientRepo   domain.ClientRepository
	locationRepo domain.LocationRepository
	topicRepo    domain.TopicRepository
	items        ItemCounter
}

// NewClientService crea una nueva instancia de ClientService
func NewClientService(clientRepo domain.ClientRepository, locationRepo domain.LocationRepository, topicRepo domain.TopicRepository) *ClientService {
	return &ClientService{
		clientRepo:   clientRepo,
		locationRepo: locationRepo,
		topicRepo:    topicRepo,
	}
}

// SetItemCounter conecta el guard de borrado; el paquete de contenido depende de clientes y no al revés.
func (s *ClientService) SetItemCounter(items ItemCounter) {
	s.items = items
}

// Create crea un nuevo cliente
func (s *ClientService) Create(ctx context.Context, client *domain.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.Slug == "" {
		client.Slug = slugify(client.Name)
	}
	if client.Cadence == "" {
		client.Cadence = domain.CadenceWeekly
	}
	if client.Language == "" {
		client.Language = "en"
	}
	if client.EnabledKinds == nil {
		client.EnabledKinds = []string{}
	}
	if client.SocialPlatforms == nil {
		client.SocialPlatforms = []string{}
	}
	client.Enabled = true
	client.CreatedAt = time.Now().UTC()
	client.UpdatedAt = client.CreatedAt

	return s.clientRepo.Create(ctx, client)
}

// GetByID obtiene un cliente por su ID
func (s *ClientService) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

// Update actualiza un cliente existente
func (s *ClientService) Update(ctx context.Context, client *domain.Client) error {
	return s.clientRepo.Update(ctx, client)
}

// Delete elimina un cliente sin items de contenido
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if s.items != nil {
		n, err := s.items.CountByClient(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrClientInUse
		}
	}
	return s.clientRepo.Delete(ctx, id)
}

// List obtiene una lista de clientes con filtros
func (s *ClientService) List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error) {
	return s.clientRepo.List(ctx, filter)
}

// ListAutomated returns enabled clients with automation switched on.
func (s *ClientService) ListAutomated(ctx context.Context) ([]*domain.Client, error) {
	enabled, automated := true, true
	clients, err := s.clientRepo.List(ctx, domain.ClientFilter{Enabled: &enabled, Automated: &automated})
	if err != nil {
		return nil, err
	}
	out := clients[:0]
	for _, c := range clients {
		if c.IsAutomated() {
			out = append(out, c)
		}
	}
	return out, nil
}

// SetAutomation activa o pausa la producción automática de un cliente
func (s *ClientService) SetAutomation(ctx context.Context, id string, enabled bool) error {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	client.AutomationEnabled = enabled
	return s.clientRepo.Update(ctx, client)
}

func (s *ClientService) MarkScheduled(ctx context.Context, id string, at time.Time) error {
	return s.clientRepo.MarkScheduled(ctx, id, at)
}

// --- Locations ---

// AddLocation crea una ubicación; si es sede principal, las demás dejan de serlo
func (s *ClientService) AddLocation(ctx context.Context, loc *domain.ServiceLocation) error {
	if _, err := s.clientRepo.GetByID(ctx, loc.ClientID); err != nil {
		return err
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return err
	}
	if loc.IsHeadquarters {
		return s.locationRepo.ClearHeadquarters(ctx, loc.ClientID, loc.ID)
	}
	return nil
}

func (s *ClientService) GetLocation(ctx context.Context, id string) (*domain.ServiceLocation, error) {
	return s.locationRepo.GetByID(ctx, id)
}

func (s *ClientService) UpdateLocation(ctx context.Context, loc *domain.ServiceLocation) error {
	if err := s.locationRepo.Update(ctx, loc); err != nil {
		return err
	}
	if loc.IsHeadquarters {
		return s.locationRepo.ClearHeadquarters(ctx, loc.ClientID, loc.ID)
	}
	return nil
}

func (s *ClientService) DeleteLocation(ctx context.Context, id string) error {
	return s.locationRepo.Delete(ctx, id)
}

func (s *ClientService) ListLocations(ctx context.Context, clientID string) ([]*domain.ServiceLocation, error) {
	return s.locationRepo.ListByClient(ctx, clientID)
}

// --- Topics ---

// AddTopic crea una pregunta propia del cliente (clientID no vacío) o de la bolsa estándar
func (s *ClientService) AddTopic(ctx context.Context, topic *domain.TopicEntry) error {
	if topic.ClientID != "" {
		if _, err := s.clientRepo.GetByID(ctx, topic.ClientID); err != nil {
			return err
		}
		topic.Pool = domain.PoolCustom
	} else {
		topic.Pool = domain.PoolStandard
	}
	return s.topicRepo.Create(ctx, topic)
}

func (s *ClientService) GetTopic(ctx context.Context, id string) (*domain.TopicEntry, error) {
	return s.topicRepo.GetByID(ctx, id)
}

func (s *ClientService) UpdateTopic(ctx context.Context, topic *domain.TopicEntry) error {
	return s.topicRepo.Update(ctx, topic)
}

func (s *ClientService) DeleteTopic(ctx context.Context, id string) error {
	return s.topicRepo.Delete(ctx, id)
}

func (s *ClientService) ListTopics(ctx context.Context, filter domain.TopicFilter) ([]*domain.TopicEntry, error) {
	return s.topicRepo.List(ctx, filter)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
