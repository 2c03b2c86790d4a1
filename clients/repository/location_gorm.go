package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type locationModel struct {
	ID             string `gorm:"primaryKey"`
	ClientID       string `gorm:"index:idx_locations_client;not null"`
	City           string `gorm:"not null"`
	State          string
	Address        string
	MapEmbedURL    string `gorm:"type:text"`
	IsHeadquarters bool
	Active         bool
	LastUsedAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (locationModel) TableName() string {
	return "service_locations"
}

// rotationOrder pone primero las ubicaciones nunca usadas; Postgres ordena NULL al final por defecto.
const rotationOrder = "CASE WHEN last_used_at IS NULL THEN 0 ELSE 1 END, last_used_at ASC, created_at ASC, id ASC"

type LocationGormRepository struct {
	db *gorm.DB
}

func NewLocationGormRepository(db *gorm.DB) *LocationGormRepository {
	return &LocationGormRepository{db: db}
}

func (r *LocationGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&locationModel{})
}

func (r *LocationGormRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *LocationGormRepository) Create(ctx context.Context, loc *domain.ServiceLocation) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = now
	}
	loc.UpdatedAt = now

	model := toLocationModel(loc)
	return r.conn(ctx).Create(&model).Error
}

func (r *LocationGormRepository) GetByID(ctx context.Context, id string) (*domain.ServiceLocation, error) {
	var m locationModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, err
	}
	return fromLocationModel(m), nil
}

func (r *LocationGormRepository) Update(ctx context.Context, loc *domain.ServiceLocation) error {
	loc.UpdatedAt = time.Now().UTC()
	model := toLocationModel(loc)

	result := r.conn(ctx).Model(&locationModel{}).Where("id = ?", loc.ID).Select("*").Omit("created_at", "client_id").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func (r *LocationGormRepository) Delete(ctx context.Context, id string) error {
	result := r.conn(ctx).Delete(&locationModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func (r *LocationGormRepository) ListByClient(ctx context.Context, clientID string) ([]*domain.ServiceLocation, error) {
	var models []locationModel
	if err := r.conn(ctx).Where("client_id = ?", clientID).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return fromLocationModels(models), nil
}

func (r *LocationGormRepository) ListForRotation(ctx context.Context, clientID string) ([]*domain.ServiceLocation, error) {
	var models []locationModel
	err := r.conn(ctx).
		Where("client_id = ? AND active = ?", clientID, true).
		Order(rotationOrder).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromLocationModels(models), nil
}

func (r *LocationGormRepository) ClearHeadquarters(ctx context.Context, clientID, exceptID string) error {
	return r.conn(ctx).Model(&locationModel{}).
		Where("client_id = ? AND id <> ? AND is_headquarters = ?", clientID, exceptID, true).
		Update("is_headquarters", false).Error
}

func (r *LocationGormRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	result := r.conn(ctx).Model(&locationModel{}).Where("id = ?", id).Updates(map[string]any{
		"last_used_at": at.UTC(),
		"updated_at":   time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLocationNotFound
	}
	return nil
}

func toLocationModel(l *domain.ServiceLocation) locationModel {
	return locationModel{
		ID:             l.ID,
		ClientID:       l.ClientID,
		City:           l.City,
		State:          l.State,
		Address:        l.Address,
		MapEmbedURL:    l.MapEmbedURL,
		IsHeadquarters: l.IsHeadquarters,
		Active:         l.Active,
		LastUsedAt:     l.LastUsedAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func fromLocationModels(models []locationModel) []*domain.ServiceLocation {
	out := make([]*domain.ServiceLocation, 0, len(models))
	for _, m := range models {
		out = append(out, fromLocationModel(m))
	}
	return out
}

func fromLocationModel(m locationModel) *domain.ServiceLocation {
	return &domain.ServiceLocation{
		ID:             m.ID,
		ClientID:       m.ClientID,
		City:           m.City,
		State:          m.State,
		Address:        m.Address,
		MapEmbedURL:    m.MapEmbedURL,
		IsHeadquarters: m.IsHeadquarters,
		Active:         m.Active,
		LastUsedAt:     m.LastUsedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
