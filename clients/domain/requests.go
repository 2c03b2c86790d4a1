package domain

// ClientRequest es el payload para crear o reemplazar un cliente
type ClientRequest struct {
	Name              string         `json:"name"`
	Slug              string         `json:"slug"`
	WebsiteURL        string         `json:"website_url"`
	SitemapURL        string         `json:"sitemap_url"`
	BrandVoice        string         `json:"brand_voice"`
	Industry          string         `json:"industry"`
	Language          string         `json:"language"`
	Timezone          string         `json:"timezone"`
	AutomationEnabled bool           `json:"automation_enabled"`
	Cadence           string         `json:"cadence"`
	SlotDays          string         `json:"slot_days"`
	SlotTime          string         `json:"slot_time"`
	EnabledKinds      []string       `json:"enabled_kinds"`
	SocialPlatforms   []string       `json:"social_platforms"`
	RequireApproval   bool           `json:"require_approval"`
	CMS               CMSCredentials `json:"cms"`
	SocialProfileKey  string         `json:"social_profile_key"`
}

// Apply copies the request onto client, keeping identity and bookkeeping fields.
func (r ClientRequest) Apply(client *Client) {
	client.Name = r.Name
	if r.Slug != "" {
		client.Slug = r.Slug
	}
	client.WebsiteURL = r.WebsiteURL
	client.SitemapURL = r.SitemapURL
	client.BrandVoice = r.BrandVoice
	client.Industry = r.Industry
	client.Language = r.Language
	client.Timezone = r.Timezone
	client.AutomationEnabled = r.AutomationEnabled
	client.Cadence = Cadence(r.Cadence)
	client.SlotDays = r.SlotDays
	client.SlotTime = r.SlotTime
	client.EnabledKinds = r.EnabledKinds
	client.SocialPlatforms = r.SocialPlatforms
	client.RequireApproval = r.RequireApproval
	client.CMS = r.CMS
	client.SocialProfileKey = r.SocialProfileKey
}

type LocationRequest struct {
	City           string `json:"city"`
	State          string `json:"state"`
	Address        string `json:"address"`
	MapEmbedURL    string `json:"map_embed_url"`
	IsHeadquarters bool   `json:"is_headquarters"`
	Active         *bool  `json:"active"`
}

type TopicRequest struct {
	Question string `json:"question"`
	Priority int    `json:"priority"`
	Active   *bool  `json:"active"`
}
