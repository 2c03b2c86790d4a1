package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type uploadSessionModel struct {
	ID        string `gorm:"primaryKey"`
	ItemID    string `gorm:"index:idx_uploads_item;not null"`
	Filename  string
	Title     string
	TotalSize int64
	Received  int64
	Path      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (uploadSessionModel) TableName() string {
	return "upload_sessions"
}

type UploadGormRepository struct {
	db *gorm.DB
}

// NewUploadGormRepository shares the schema created by ItemGormRepository.InitSchema.
func NewUploadGormRepository(db *gorm.DB) *UploadGormRepository {
	return &UploadGormRepository{db: db}
}

func (r *UploadGormRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *UploadGormRepository) CreateSession(ctx context.Context, s *domain.UploadSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	m := uploadSessionModel{
		ID:        s.ID,
		ItemID:    s.ItemID,
		Filename:  s.Filename,
		Title:     s.Title,
		TotalSize: s.TotalSize,
		Received:  s.Received,
		Path:      s.Path,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	return r.conn(ctx).Create(&m).Error
}

func (r *UploadGormRepository) GetSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	var m uploadSessionModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUploadSessionNotFound
		}
		return nil, err
	}
	return &domain.UploadSession{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Filename:  m.Filename,
		Title:     m.Title,
		TotalSize: m.TotalSize,
		Received:  m.Received,
		Path:      m.Path,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func (r *UploadGormRepository) UpdateReceived(ctx context.Context, id string, received int64) error {
	result := r.conn(ctx).Model(&uploadSessionModel{}).Where("id = ?", id).Updates(map[string]any{
		"received":   received,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUploadSessionNotFound
	}
	return nil
}

func (r *UploadGormRepository) DeleteSession(ctx context.Context, id string) error {
	return r.conn(ctx).Delete(&uploadSessionModel{}, "id = ?", id).Error
}
