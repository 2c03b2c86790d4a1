package application

import (
	"context"
	"strings"

	"github.com/AzielCF/az-localseo/core/config"
	"github.com/AzielCF/az-localseo/core/settings/domain"
	"github.com/AzielCF/az-localseo/core/settings/infrastructure"
	"gorm.io/gorm"
)

type SettingsService struct {
	repo domain.ISettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		repo: infrastructure.NewGlobalSettingsGormRepository(db),
	}
}

// NewSettingsServiceWithRepo is used by tests and alternative stores.
func NewSettingsServiceWithRepo(repo domain.ISettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

type DynamicSettings struct {
	AutomationPaused bool   `json:"automation_paused"`
	AutoEmbed        bool   `json:"auto_embed"`
	DirectoryName    string `json:"directory_name,omitempty"`
}

func (s *SettingsService) InitSchema(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

func (s *SettingsService) GetDynamicSettings(ctx context.Context) (*DynamicSettings, error) {
	ds := &DynamicSettings{AutoEmbed: true}

	val, err := s.repo.Get(ctx, domain.KeyAutomationPaused)
	if err != nil {
		return nil, err
	}
	if val != "" {
		ds.AutomationPaused = parseBool(val)
	}
	if val, _ := s.repo.Get(ctx, domain.KeyAutoEmbed); val != "" {
		ds.AutoEmbed = parseBool(val)
	}
	if val, _ := s.repo.Get(ctx, domain.KeyDirectoryName); val != "" {
		ds.DirectoryName = val
	}
	return ds, nil
}

// AutomationPaused reports the global scheduler kill switch. Lookup errors count as not paused.
func (s *SettingsService) AutomationPaused(ctx context.Context) bool {
	ds, err := s.GetDynamicSettings(ctx)
	if err != nil {
		return false
	}
	return ds.AutomationPaused
}

// AutoEmbed reports whether reconcile passes should re-run the embed composer.
func (s *SettingsService) AutoEmbed(ctx context.Context) bool {
	ds, err := s.GetDynamicSettings(ctx)
	if err != nil {
		return true
	}
	return ds.AutoEmbed
}

// DirectoryName returns the shared-directory brand name, falling back to the configured one.
func (s *SettingsService) DirectoryName(ctx context.Context) string {
	if ds, err := s.GetDynamicSettings(ctx); err == nil && ds.DirectoryName != "" {
		return ds.DirectoryName
	}
	if config.Global != nil {
		return config.Global.Directory.Name
	}
	return ""
}

func (s *SettingsService) SetAutomationPaused(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeyAutomationPaused, formatBool(v))
}

func (s *SettingsService) SetAutoEmbed(ctx context.Context, v bool) error {
	return s.repo.Set(ctx, domain.KeyAutoEmbed, formatBool(v))
}

func (s *SettingsService) SetDirectoryName(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.repo.Delete(ctx, domain.KeyDirectoryName)
	}
	return s.repo.Set(ctx, domain.KeyDirectoryName, v)
}

func parseBool(v string) bool {
	vLower := strings.ToLower(strings.TrimSpace(v))
	return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
