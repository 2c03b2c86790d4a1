package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/AzielCF/az-localseo/pkg/crypto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type clientModel struct {
	ID                string `gorm:"primaryKey"`
	Name              string `gorm:"not null"`
	Slug              string `gorm:"uniqueIndex:idx_clients_slug;not null"`
	WebsiteURL        string
	SitemapURL        string
	BrandVoice        string `gorm:"type:text"`
	Industry          string
	Language          string
	Timezone          string
	AutomationEnabled bool   `gorm:"index:idx_clients_automation"`
	Cadence           string `gorm:"not null"`
	SlotDays          string
	SlotTime          string
	LastScheduledAt   *time.Time
	EnabledKinds      datatypes.JSON
	SocialPlatforms   datatypes.JSON
	RequireApproval   bool
	CMSBaseURL        string
	CMSUsername       string
	CMSAppPassword    string
	SocialProfileKey  string
	Enabled           bool
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (clientModel) TableName() string {
	return "clients"
}

// --- Repository Implementation ---

type ClientGormRepository struct {
	db *gorm.DB
}

func NewClientGormRepository(db *gorm.DB) *ClientGormRepository {
	return &ClientGormRepository{db: db}
}

func (r *ClientGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&clientModel{})
}

func (r *ClientGormRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *ClientGormRepository) Create(ctx context.Context, client *domain.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	model, err := toClientModel(client)
	if err != nil {
		return err
	}
	if err := r.conn(ctx).Create(&model).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateClient
		}
		return err
	}
	return nil
}

func (r *ClientGormRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var m clientModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	return fromClientModel(m), nil
}

func (r *ClientGormRepository) Update(ctx context.Context, client *domain.Client) error {
	client.UpdatedAt = time.Now().UTC()
	model, err := toClientModel(client)
	if err != nil {
		return err
	}

	result := r.conn(ctx).Model(&clientModel{}).Where("id = ?", client.ID).Select("*").Omit("created_at").Updates(&model)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return domain.ErrDuplicateClient
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientGormRepository) Delete(ctx context.Context, id string) error {
	result := r.conn(ctx).Delete(&clientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientGormRepository) List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error) {
	query := r.conn(ctx).Model(&clientModel{})

	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}
	if filter.Automated != nil {
		query = query.Where("automation_enabled = ?", *filter.Automated)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", like, like)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []clientModel
	if err := query.Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	clients := make([]*domain.Client, 0, len(models))
	for _, m := range models {
		clients = append(clients, fromClientModel(m))
	}
	return clients, nil
}

func (r *ClientGormRepository) MarkScheduled(ctx context.Context, id string, at time.Time) error {
	result := r.conn(ctx).Model(&clientModel{}).Where("id = ?", id).Updates(map[string]any{
		"last_scheduled_at": at.UTC(),
		"updated_at":        time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

// --- Helpers ---

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func marshalList(list []string) datatypes.JSON {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return datatypes.JSON(b)
}

func unmarshalList(raw datatypes.JSON) []string {
	list := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &list)
	}
	return list
}

func toClientModel(c *domain.Client) (clientModel, error) {
	password, err := crypto.Seal(c.CMS.AppPassword)
	if err != nil {
		return clientModel{}, fmt.Errorf("seal cms password: %w", err)
	}
	profileKey, err := crypto.Seal(c.SocialProfileKey)
	if err != nil {
		return clientModel{}, fmt.Errorf("seal social profile key: %w", err)
	}
	return clientModel{
		ID:                c.ID,
		Name:              c.Name,
		Slug:              c.Slug,
		WebsiteURL:        c.WebsiteURL,
		SitemapURL:        c.SitemapURL,
		BrandVoice:        c.BrandVoice,
		Industry:          c.Industry,
		Language:          c.Language,
		Timezone:          c.Timezone,
		AutomationEnabled: c.AutomationEnabled,
		Cadence:           string(c.Cadence),
		SlotDays:          c.SlotDays,
		SlotTime:          c.SlotTime,
		LastScheduledAt:   c.LastScheduledAt,
		EnabledKinds:      marshalList(c.EnabledKinds),
		SocialPlatforms:   marshalList(c.SocialPlatforms),
		RequireApproval:   c.RequireApproval,
		CMSBaseURL:        c.CMS.BaseURL,
		CMSUsername:       c.CMS.Username,
		CMSAppPassword:    password,
		SocialProfileKey:  profileKey,
		Enabled:           c.Enabled,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}, nil
}

func fromClientModel(m clientModel) *domain.Client {
	return &domain.Client{
		ID:                m.ID,
		Name:              m.Name,
		Slug:              m.Slug,
		WebsiteURL:        m.WebsiteURL,
		SitemapURL:        m.SitemapURL,
		BrandVoice:        m.BrandVoice,
		Industry:          m.Industry,
		Language:          m.Language,
		Timezone:          m.Timezone,
		AutomationEnabled: m.AutomationEnabled,
		Cadence:           domain.Cadence(m.Cadence),
		SlotDays:          m.SlotDays,
		SlotTime:          m.SlotTime,
		LastScheduledAt:   m.LastScheduledAt,
		EnabledKinds:      unmarshalList(m.EnabledKinds),
		SocialPlatforms:   unmarshalList(m.SocialPlatforms),
		RequireApproval:   m.RequireApproval,
		CMS: domain.CMSCredentials{
			BaseURL:     m.CMSBaseURL,
			Username:    m.CMSUsername,
			AppPassword: openSecret(m.ID, "cms_password", m.CMSAppPassword),
		},
		SocialProfileKey: openSecret(m.ID, "social_profile_key", m.SocialProfileKey),
		Enabled:          m.Enabled,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// openSecret returns "" when a sealed value cannot be opened, so the channel reads as not configured.
func openSecret(clientID, field, stored string) string {
	plain, err := crypto.Open(stored)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"client": clientID, "field": field}).Error("[CLIENTS] Failed to open stored secret")
		return ""
	}
	return plain
}
