package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Models ---

type itemModel struct {
	ID            string `gorm:"primaryKey"`
	ClientID      string `gorm:"uniqueIndex:idx_items_cycle,priority:1;not null"`
	LocationID    string
	TopicID       string
	Question      string `gorm:"type:text"`
	LocationLabel string
	Status        string `gorm:"index:idx_items_status;not null"`
	LastError     string `gorm:"type:text"`
	Trigger       string
	CycleKey      string         `gorm:"uniqueIndex:idx_items_cycle,priority:2;not null"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (itemModel) TableName() string {
	return "content_items"
}

type artifactModel struct {
	ItemID       string `gorm:"primaryKey"`
	Kind         string `gorm:"primaryKey"`
	Generated    bool
	Approved     bool
	Status       string `gorm:"index:idx_artifacts_status"`
	ExternalID   string `gorm:"index:idx_artifacts_external"`
	URL          string
	ThumbnailURL string
	Error        string `gorm:"type:text"`
	Content      datatypes.JSON
	GeneratedAt  *time.Time
	PublishedAt  *time.Time
	UpdatedAt    time.Time
}

func (artifactModel) TableName() string {
	return "content_artifacts"
}

type postModel struct {
	ID             string `gorm:"primaryKey"`
	ItemID         string `gorm:"index:idx_posts_item;not null"`
	Brand          string `gorm:"not null"`
	Platform       string
	Caption        string `gorm:"type:text"`
	Hashtags       datatypes.JSON
	Approved       bool
	Status         string `gorm:"index:idx_posts_status"`
	ExternalPostID string `gorm:"index:idx_posts_external"`
	URL            string
	Error          string `gorm:"type:text"`
	ScheduledFor   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (postModel) TableName() string {
	return "social_posts"
}

// --- Repository Implementation ---

type ItemGormRepository struct {
	db *gorm.DB
}

func NewItemGormRepository(db *gorm.DB) *ItemGormRepository {
	return &ItemGormRepository{db: db}
}

func (r *ItemGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&itemModel{}, &artifactModel{}, &postModel{}, &uploadSessionModel{})
}

func (r *ItemGormRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *ItemGormRepository) Create(ctx context.Context, item *domain.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	m := toItemModel(item)
	if err := r.conn(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrCycleAlreadyProduced
		}
		return err
	}
	return nil
}

func (r *ItemGormRepository) Get(ctx context.Context, id string) (*domain.ContentItem, error) {
	var m itemModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	item := fromItemModel(m)

	var artifacts []artifactModel
	if err := r.conn(ctx).Where("item_id = ?", id).Find(&artifacts).Error; err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		art := fromArtifactModel(a)
		item.Artifacts[art.Kind] = art
	}

	var posts []postModel
	if err := r.conn(ctx).Where("item_id = ?", id).Order("brand ASC, created_at ASC, id ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		item.Posts = append(item.Posts, fromPostModel(p))
	}
	return item, nil
}

// List returns items without their artifacts and posts.
func (r *ItemGormRepository) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.ContentItem, error) {
	query := r.conn(ctx).Model(&itemModel{})
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []itemModel
	if err := query.Order("created_at DESC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ContentItem, 0, len(models))
	for _, m := range models {
		out = append(out, fromItemModel(m))
	}
	return out, nil
}

func (r *ItemGormRepository) CountByClient(ctx context.Context, clientID string) (int64, error) {
	var n int64
	err := r.conn(ctx).Unscoped().Model(&itemModel{}).Where("client_id = ?", clientID).Count(&n).Error
	return n, err
}

func (r *ItemGormRepository) HasCycle(ctx context.Context, clientID, cycleKey string) (bool, error) {
	var n int64
	err := r.conn(ctx).Unscoped().Model(&itemModel{}).
		Where("client_id = ? AND cycle_key = ?", clientID, cycleKey).
		Count(&n).Error
	return n > 0, err
}

func (r *ItemGormRepository) TransitionStatus(ctx context.Context, id string, from []domain.ItemStatus, to domain.ItemStatus, lastError string) (bool, error) {
	states := make([]string, 0, len(from))
	for _, s := range from {
		states = append(states, string(s))
	}
	result := r.conn(ctx).Model(&itemModel{}).
		Where("id = ? AND status IN ?", id, states).
		Updates(map[string]any{
			"status":     string(to),
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *ItemGormRepository) SaveArtifact(ctx context.Context, a *domain.Artifact) error {
	a.UpdatedAt = time.Now().UTC()
	m := toArtifactModel(a)
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "kind"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func (r *ItemGormRepository) CompareAndSetArtifact(ctx context.Context, a *domain.Artifact, expect domain.ArtifactStatus) (bool, error) {
	a.UpdatedAt = time.Now().UTC()
	m := toArtifactModel(a)
	result := r.conn(ctx).Model(&artifactModel{}).
		Where("item_id = ? AND kind = ? AND status = ?", a.ItemID, string(a.Kind), string(expect)).
		Updates(map[string]any{
			"generated":     m.Generated,
			"approved":      m.Approved,
			"status":        m.Status,
			"external_id":   m.ExternalID,
			"url":           m.URL,
			"thumbnail_url": m.ThumbnailURL,
			"error":         m.Error,
			"content":       m.Content,
			"generated_at":  m.GeneratedAt,
			"published_at":  m.PublishedAt,
			"updated_at":    m.UpdatedAt,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *ItemGormRepository) ReplacePosts(ctx context.Context, itemID string, brand domain.Brand, posts []*domain.SocialPost) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ? AND brand = ? AND status <> ?", itemID, string(brand), string(domain.ArtifactPublished)).
			Delete(&postModel{}).Error; err != nil {
			return err
		}
		if len(posts) == 0 {
			return nil
		}
		models := make([]postModel, 0, len(posts))
		for _, p := range posts {
			prepareInsert(p)
			models = append(models, toPostModel(p))
		}
		return tx.Create(&models).Error
	})
}

func prepareInsert(p *domain.SocialPost) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func (r *ItemGormRepository) SavePost(ctx context.Context, p *domain.SocialPost) error {
	prepareInsert(p)
	m := toPostModel(p)
	return r.conn(ctx).Save(&m).Error
}

func (r *ItemGormRepository) CompareAndSetPost(ctx context.Context, p *domain.SocialPost, expect domain.ArtifactStatus) (bool, error) {
	p.UpdatedAt = time.Now().UTC()
	result := r.conn(ctx).Model(&postModel{}).
		Where("id = ? AND status = ?", p.ID, string(expect)).
		Updates(map[string]any{
			"approved":         p.Approved,
			"status":           string(p.Status),
			"external_post_id": p.ExternalPostID,
			"url":              p.URL,
			"error":            p.Error,
			"scheduled_for":    p.ScheduledFor,
			"updated_at":       p.UpdatedAt,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *ItemGormRepository) ListStaleGenerating(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := r.conn(ctx).Model(&itemModel{}).
		Where("status = ? AND updated_at < ?", string(domain.StatusGenerating), before.UTC()).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ItemGormRepository) ListWithPendingWork(ctx context.Context) ([]string, error) {
	pending := []string{string(domain.ArtifactProcessing), string(domain.ArtifactScheduled)}

	var fromArtifacts, fromPosts []string
	if err := r.conn(ctx).Table("content_artifacts AS a").
		Joins("JOIN content_items i ON i.id = a.item_id AND i.deleted_at IS NULL").
		Where("a.status IN ?", pending).
		Distinct().Pluck("a.item_id", &fromArtifacts).Error; err != nil {
		return nil, err
	}
	if err := r.conn(ctx).Table("social_posts AS p").
		Joins("JOIN content_items i ON i.id = p.item_id AND i.deleted_at IS NULL").
		Where("p.status IN ?", pending).
		Distinct().Pluck("p.item_id", &fromPosts).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, id := range append(fromArtifacts, fromPosts...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *ItemGormRepository) FindByExternalID(ctx context.Context, externalID string) (string, error) {
	var ids []string
	if err := r.conn(ctx).Model(&artifactModel{}).Where("external_id = ?", externalID).Limit(1).Pluck("item_id", &ids).Error; err != nil {
		return "", err
	}
	if len(ids) == 0 {
		if err := r.conn(ctx).Model(&postModel{}).Where("external_post_id = ?", externalID).Limit(1).Pluck("item_id", &ids).Error; err != nil {
			return "", err
		}
	}
	if len(ids) == 0 {
		return "", domain.ErrItemNotFound
	}
	return ids[0], nil
}

func (r *ItemGormRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.conn(ctx).Delete(&itemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// HardDelete removes the item with its artifacts, posts and upload sessions.
func (r *ItemGormRepository) HardDelete(ctx context.Context, id string) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&postModel{}, &artifactModel{}, &uploadSessionModel{}} {
			if err := tx.Where("item_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Unscoped().Delete(&itemModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrItemNotFound
		}
		return nil
	})
}

// --- Helpers ---

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func toItemModel(i *domain.ContentItem) itemModel {
	return itemModel{
		ID:            i.ID,
		ClientID:      i.ClientID,
		LocationID:    i.LocationID,
		TopicID:       i.TopicID,
		Question:      i.Question,
		LocationLabel: i.LocationLabel,
		Status:        string(i.Status),
		LastError:     i.LastError,
		Trigger:       string(i.Trigger),
		CycleKey:      i.CycleKey,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func fromItemModel(m itemModel) *domain.ContentItem {
	return &domain.ContentItem{
		ID:            m.ID,
		ClientID:      m.ClientID,
		LocationID:    m.LocationID,
		TopicID:       m.TopicID,
		Question:      m.Question,
		LocationLabel: m.LocationLabel,
		Status:        domain.ItemStatus(m.Status),
		LastError:     m.LastError,
		Trigger:       domain.Trigger(m.Trigger),
		CycleKey:      m.CycleKey,
		Artifacts:     make(map[domain.ArtifactKind]*domain.Artifact),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toArtifactModel(a *domain.Artifact) artifactModel {
	content, _ := json.Marshal(a.Content)
	return artifactModel{
		ItemID:       a.ItemID,
		Kind:         string(a.Kind),
		Generated:    a.Generated,
		Approved:     a.Approved,
		Status:       string(a.Status),
		ExternalID:   a.ExternalID,
		URL:          a.URL,
		ThumbnailURL: a.ThumbnailURL,
		Error:        a.Error,
		Content:      datatypes.JSON(content),
		GeneratedAt:  a.GeneratedAt,
		PublishedAt:  a.PublishedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromArtifactModel(m artifactModel) *domain.Artifact {
	a := &domain.Artifact{
		ItemID:       m.ItemID,
		Kind:         domain.ArtifactKind(m.Kind),
		Generated:    m.Generated,
		Approved:     m.Approved,
		Status:       domain.ArtifactStatus(m.Status),
		ExternalID:   m.ExternalID,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Error:        m.Error,
		GeneratedAt:  m.GeneratedAt,
		PublishedAt:  m.PublishedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if len(m.Content) > 0 {
		_ = json.Unmarshal(m.Content, &a.Content)
	}
	return a
}

func toPostModel(p *domain.SocialPost) postModel {
	tags := p.Hashtags
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	return postModel{
		ID:             p.ID,
		ItemID:         p.ItemID,
		Brand:          string(p.Brand),
		Platform:       p.Platform,
		Caption:        p.Caption,
		Hashtags:       datatypes.JSON(raw),
		Approved:       p.Approved,
		Status:         string(p.Status),
		ExternalPostID: p.ExternalPostID,
		URL:            p.URL,
		Error:          p.Error,
		ScheduledFor:   p.ScheduledFor,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPostModel(m postModel) *domain.SocialPost {
	p := &domain.SocialPost{
		ID:             m.ID,
		ItemID:         m.ItemID,
		Brand:          domain.Brand(m.Brand),
		Platform:       m.Platform,
		Caption:        m.Caption,
		Hashtags:       []string{},
		Approved:       m.Approved,
		Status:         domain.ArtifactStatus(m.Status),
		ExternalPostID: m.ExternalPostID,
		URL:            m.URL,
		Error:          m.Error,
		ScheduledFor:   m.ScheduledFor,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.Hashtags) > 0 {
		_ = json.Unmarshal(m.Hashtags, &p.Hashtags)
	}
	return p
}
