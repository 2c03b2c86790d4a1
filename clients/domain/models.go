package domain

import (
	"strings"
	"time"
)

// Cadence define cada cuánto se produce un nuevo item para el cliente
type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
)

// Interval returns the nominal distance between two cycles.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceDaily:
		return 24 * time.Hour
	case CadenceBiweekly:
		return 14 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

func (c Cadence) IsValid() bool {
	return c == CadenceDaily || c == CadenceWeekly || c == CadenceBiweekly
}

// TopicPool distingue preguntas propias del cliente de la bolsa compartida
type TopicPool string

const (
	PoolCustom   TopicPool = "custom"
	PoolStandard TopicPool = "standard"
)

// LocationPlaceholder is replaced with "City, ST" when a topic is rendered.
const LocationPlaceholder = "{location}"

// CMSCredentials apuntan al blog propio del cliente
type CMSCredentials struct {
	BaseURL     string `json:"base_url"`
	Username    string `json:"username"`
	AppPassword string `json:"app_password,omitempty"`
}

func (c CMSCredentials) IsConfigured() bool {
	return c.BaseURL != "" && c.Username != "" && c.AppPassword != ""
}

// Client representa un negocio de servicios al que se le produce contenido
type Client struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	WebsiteURL        string         `json:"website_url,omitempty"`
	SitemapURL        string         `json:"sitemap_url,omitempty"`
	BrandVoice        string         `json:"brand_voice,omitempty"`
	Industry          string         `json:"industry,omitempty"`
	Language          string         `json:"language,omitempty"`
	Timezone          string         `json:"timezone,omitempty"` // IANA timezone (e.g. America/Chicago)
	AutomationEnabled bool           `json:"automation_enabled"`
	Cadence           Cadence        `json:"cadence"`
	SlotDays          string         `json:"slot_days"` // 0=Sunday ... 6=Saturday, e.g. "1,4"
	SlotTime          string         `json:"slot_time"` // HH:MM in Timezone
	LastScheduledAt   *time.Time     `json:"last_scheduled_at,omitempty"`
	EnabledKinds      []string       `json:"enabled_kinds"`
	SocialPlatforms   []string       `json:"social_platforms"`
	RequireApproval   bool           `json:"require_approval"`
	CMS               CMSCredentials `json:"cms"`
	SocialProfileKey  string         `json:"social_profile_key,omitempty"`
	Enabled           bool           `json:"enabled"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsAutomated retorna true si el scheduler debe considerar al cliente
func (c *Client) IsAutomated() bool {
	return c.Enabled && c.AutomationEnabled && c.SlotDays != "" && c.SlotTime != ""
}

// ServiceLocation es una ciudad atendida por el cliente
type ServiceLocation struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Address        string     `json:"address,omitempty"`
	MapEmbedURL    string     `json:"map_embed_url,omitempty"`
	IsHeadquarters bool       `json:"is_headquarters"`
	Active         bool       `json:"active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Label renders the location as "City, ST".
func (l *ServiceLocation) Label() string {
	city := strings.TrimSpace(l.City)
	state := strings.ToUpper(strings.TrimSpace(l.State))
	if state == "" {
		return city
	}
	return city + ", " + state
}

// TopicEntry es una pregunta (PAA) con el placeholder de ubicación
type TopicEntry struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id,omitempty"` // vacío para la bolsa estándar
	Pool      TopicPool `json:"pool"`
	Question  string    `json:"question"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Uso relativo a un cliente concreto; sólo se rellena en las consultas del selector
	UsedAt    *time.Time `json:"used_at,omitempty"`
	UsedCount int        `json:"used_count"`
}

// Render substitutes the location placeholder. Templates without a placeholder are returned unchanged.
func (t *TopicEntry) Render(loc *ServiceLocation) string {
	if loc == nil {
		return t.Question
	}
	return strings.ReplaceAll(t.Question, LocationPlaceholder, loc.Label())
}
