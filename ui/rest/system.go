package rest

import (
	"context"
	"time"

	settingsApp "github.com/AzielCF/az-localseo/core/settings/application"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/AzielCF/az-localseo/pkg/utils"
	"github.com/AzielCF/az-localseo/pkg/workerpool"
	"github.com/gofiber/fiber/v2"
)

// PingFunc checks a backing store; nil means the store is not wired.
type PingFunc func(ctx context.Context) error

type PoolStatsProvider interface {
	Stats() workerpool.PoolStats
}

// System exposes health, worker pool and runtime settings endpoints.
type System struct {
	Version  string
	Settings *settingsApp.SettingsService
	Pool     PoolStatsProvider
	DB       PingFunc
	Cache    PingFunc
}

type settingsRequest struct {
	AutomationPaused *bool   `json:"automation_paused"`
	AutoEmbed        *bool   `json:"auto_embed"`
	DirectoryName    *string `json:"directory_name"`
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func InitRestSystem(router fiber.Router, handler System) System {
	group := router.Group("/system")
	group.Get("/health", handler.Health)
	group.Get("/workers", handler.WorkerStats)
	group.Get("/events", handler.PipelineEvents)
	group.Get("/settings", handler.GetSettings)
	group.Put("/settings", handler.UpdateSettings)
	return handler
}

func (h *System) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	components := map[string]componentStatus{
		"database": check(ctx, h.DB),
		"valkey":   check(ctx, h.Cache),
	}
	status := fiber.StatusOK
	if components["database"].Status == "down" || components["valkey"].Status == "down" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    healthCode(status),
		Message: "Health status retrieved",
		Results: fiber.Map{
			"version":    h.Version,
			"components": components,
		},
	})
}

func check(ctx context.Context, ping PingFunc) componentStatus {
	if ping == nil {
		return componentStatus{Status: "disabled"}
	}
	if err := ping(ctx); err != nil {
		return componentStatus{Status: "down", Error: err.Error()}
	}
	return componentStatus{Status: "up"}
}

func healthCode(status int) string {
	if status == fiber.StatusOK {
		return "SUCCESS"
	}
	return "UNAVAILABLE"
}

// WorkerStats returns real-time stats of the cycle worker pool
func (h *System) WorkerStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNAVAILABLE",
			Message: "Cycle worker pool not initialized",
		})
	}
	return utils.SuccessResponse(c, "Worker pool stats", h.Pool.Stats())
}

// PipelineEvents returns recent cycle, generation, publish and reconcile events
func (h *System) PipelineEvents(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Pipeline events", pipelinemonitor.GetStats())
}

func (h *System) GetSettings(c *fiber.Ctx) error {
	ds, err := h.Settings.GetDynamicSettings(c.UserContext())
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, "Settings retrieved", ds)
}

func (h *System) UpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, pkgError.ValidationError("invalid request body"))
	}

	ctx := c.UserContext()
	if req.AutomationPaused != nil {
		if err := h.Settings.SetAutomationPaused(ctx, *req.AutomationPaused); err != nil {
			return utils.ErrorResponse(c, err)
		}
	}
	if req.AutoEmbed != nil {
		if err := h.Settings.SetAutoEmbed(ctx, *req.AutoEmbed); err != nil {
			return utils.ErrorResponse(c, err)
		}
	}
	if req.DirectoryName != nil {
		if err := h.Settings.SetDirectoryName(ctx, *req.DirectoryName); err != nil {
			return utils.ErrorResponse(c, err)
		}
	}
	return h.GetSettings(c)
}
