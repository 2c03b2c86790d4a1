package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type topicModel struct {
	ID        string `gorm:"primaryKey"`
	ClientID  string `gorm:"index:idx_topics_pool,priority:2"`
	Pool      string `gorm:"index:idx_topics_pool,priority:1;not null"`
	Question  string `gorm:"type:text;not null"`
	Priority  int    `gorm:"not null;default:0"`
	Active    bool
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (topicModel) TableName() string {
	return "topic_entries"
}

// topicUsageModel registra el uso de una pregunta por cliente; la bolsa estándar se agota por separado en cada cliente.
type topicUsageModel struct {
	ClientID  string    `gorm:"primaryKey"`
	TopicID   string    `gorm:"primaryKey;index:idx_topic_usages_topic"`
	UsedAt    time.Time `gorm:"not null"`
	UsedCount int       `gorm:"not null;default:0"`
}

func (topicUsageModel) TableName() string {
	return "topic_usages"
}

// topicRow is a topic joined with the usage of one client.
type topicRow struct {
	ID        string
	ClientID  string
	Pool      string
	Question  string
	Priority  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	UsedAt    *time.Time
	UsedCount *int
}

const selectionOrder = "t.priority ASC, t.created_at ASC, t.id ASC"

type TopicGormRepository struct {
	db *gorm.DB
}

func NewTopicGormRepository(db *gorm.DB) *TopicGormRepository {
	return &TopicGormRepository{db: db}
}

func (r *TopicGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&topicModel{}, &topicUsageModel{})
}

func (r *TopicGormRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *TopicGormRepository) Create(ctx context.Context, topic *domain.TopicEntry) error {
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	topic.UpdatedAt = now

	model := toTopicModel(topic)
	return r.conn(ctx).Create(&model).Error
}

func (r *TopicGormRepository) GetByID(ctx context.Context, id string) (*domain.TopicEntry, error) {
	var m topicModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTopicNotFound
		}
		return nil, err
	}
	return fromTopicModel(m), nil
}

func (r *TopicGormRepository) Update(ctx context.Context, topic *domain.TopicEntry) error {
	topic.UpdatedAt = time.Now().UTC()
	model := toTopicModel(topic)

	result := r.conn(ctx).Model(&topicModel{}).Where("id = ?", topic.ID).Select("question", "priority", "active", "updated_at").Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

func (r *TopicGormRepository) Delete(ctx context.Context, id string) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&topicUsageModel{}, "topic_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&topicModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrTopicNotFound
		}
		return nil
	})
}

func (r *TopicGormRepository) List(ctx context.Context, filter domain.TopicFilter) ([]*domain.TopicEntry, error) {
	query := r.conn(ctx).Model(&topicModel{})
	if filter.Pool != "" {
		query = query.Where("pool = ?", string(filter.Pool))
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []topicModel
	if err := query.Order("priority ASC, created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.TopicEntry, 0, len(models))
	for _, m := range models {
		out = append(out, fromTopicModel(m))
	}
	return out, nil
}

// poolScope restringe la consulta a las preguntas activas visibles para el cliente.
func poolScope(clientID string, pool domain.TopicPool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("t.active = ?", true)
		switch pool {
		case domain.PoolCustom:
			return db.Where("t.pool = ? AND t.client_id = ?", string(domain.PoolCustom), clientID)
		case domain.PoolStandard:
			return db.Where("t.pool = ?", string(domain.PoolStandard))
		default:
			return db.Where("(t.pool = ? AND t.client_id = ?) OR t.pool = ?",
				string(domain.PoolCustom), clientID, string(domain.PoolStandard))
		}
	}
}

func (r *TopicGormRepository) NextUnused(ctx context.Context, clientID string, pool domain.TopicPool) (*domain.TopicEntry, error) {
	var rows []topicRow
	err := r.conn(ctx).
		Table("topic_entries AS t").
		Select("t.*").
		Joins("LEFT JOIN topic_usages u ON u.topic_id = t.id AND u.client_id = ?", clientID).
		Scopes(poolScope(clientID, pool)).
		Where("u.topic_id IS NULL").
		Order(selectionOrder).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return fromTopicRow(rows[0]), nil
}

func (r *TopicGormRepository) OldestUsed(ctx context.Context, clientID string) (*domain.TopicEntry, error) {
	var rows []topicRow
	err := r.conn(ctx).
		Table("topic_entries AS t").
		Select("t.*, u.used_at AS used_at, u.used_count AS used_count").
		Joins("JOIN topic_usages u ON u.topic_id = t.id AND u.client_id = ?", clientID).
		Scopes(poolScope(clientID, "")).
		Order("u.used_at ASC, t.created_at ASC, t.id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return fromTopicRow(rows[0]), nil
}

func (r *TopicGormRepository) MarkUsed(ctx context.Context, clientID, topicID string, at time.Time) error {
	usage := topicUsageModel{ClientID: clientID, TopicID: topicID, UsedAt: at.UTC(), UsedCount: 1}
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "topic_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"used_at":    at.UTC(),
			"used_count": gorm.Expr("topic_usages.used_count + 1"),
		}),
	}).Create(&usage).Error
}

func toTopicModel(t *domain.TopicEntry) topicModel {
	clientID := t.ClientID
	if t.Pool == domain.PoolStandard {
		clientID = ""
	}
	return topicModel{
		ID:        t.ID,
		ClientID:  clientID,
		Pool:      string(t.Pool),
		Question:  t.Question,
		Priority:  t.Priority,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTopicModel(m topicModel) *domain.TopicEntry {
	return &domain.TopicEntry{
		ID:        m.ID,
		ClientID:  m.ClientID,
		Pool:      domain.TopicPool(m.Pool),
		Question:  m.Question,
		Priority:  m.Priority,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromTopicRow(row topicRow) *domain.TopicEntry {
	t := fromTopicModel(topicModel{
		ID:        row.ID,
		ClientID:  row.ClientID,
		Pool:      row.Pool,
		Question:  row.Question,
		Priority:  row.Priority,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	})
	t.UsedAt = row.UsedAt
	if row.UsedCount != nil {
		t.UsedCount = *row.UsedCount
	}
	return t
}
