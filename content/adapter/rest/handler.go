package rest

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	clientDomain "github.com/AzielCF/az-localseo/clients/domain"
	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/content/domain"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	"github.com/AzielCF/az-localseo/pkg/utils"
	"github.com/AzielCF/az-localseo/validations"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Services agrupa los servicios de contenido que expone la API
type Services struct {
	Items      *application.ItemService
	Scheduler  *application.CycleScheduler
	Generation *application.Dispatcher
	Publisher  *application.PublishOrchestrator
	Reconciler *application.Reconciler
	Uploads    *application.UploadService
}

// ContentHandler maneja items, generación, publicación, reconciliación y subidas
type ContentHandler struct {
	svc           Services
	webhookSecret string
}

func NewContentHandler(svc Services, webhookSecret string) *ContentHandler {
	return &ContentHandler{svc: svc, webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (h *ContentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/clients/:id/produce", h.ProduceNow)

	items := router.Group("/items")
	items.Get("/", h.ListItems)
	items.Get("/:id", h.GetItem)
	items.Delete("/:id", h.DeleteItem)
	items.Post("/:id/generate", h.Generate)
	items.Post("/:id/retry", h.Retry)
	items.Post("/:id/approve", h.Approve)
	items.Post("/:id/publish", h.Publish)
	items.Post("/:id/reconcile", h.Reconcile)
	items.Post("/:id/long-video/uploads", h.InitUpload)

	uploads := router.Group("/uploads")
	uploads.Put("/:sid", h.UploadChunk)
	uploads.Post("/:sid/finalize", h.FinalizeUpload)
}

// RegisterWebhooks se monta fuera del basic auth; se protege con su propio token
func (h *ContentHandler) RegisterWebhooks(router fiber.Router) {
	router.Post("/webhooks/jobs", h.ReceiveJobWebhook)
}

func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrUploadSessionNotFound),
		errors.Is(err, clientDomain.ErrClientNotFound), errors.Is(err, clientDomain.ErrLocationNotFound):
		return utils.ErrorResponse(c, pkgError.NotFoundError(err.Error()))
	case errors.Is(err, domain.ErrUploadRange):
		return c.Status(fiber.StatusRequestedRangeNotSatisfiable).JSON(utils.ResponseData{
			Status:  fiber.StatusRequestedRangeNotSatisfiable,
			Code:    "RANGE_NOT_SATISFIABLE",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrGenerationInProgress),
		errors.Is(err, domain.ErrRetryRequired), errors.Is(err, domain.ErrCycleInProgress),
		errors.Is(err, domain.ErrCycleAlreadyProduced), errors.Is(err, domain.ErrPublishedItemDeletion),
		errors.Is(err, domain.ErrUploadIncomplete):
		return utils.ErrorResponse(c, pkgError.ConflictError(err.Error()))
	case errors.Is(err, domain.ErrPrecondition), errors.Is(err, domain.ErrNotConfigured),
		errors.Is(err, clientDomain.ErrEmptyTopicPool), errors.Is(err, clientDomain.ErrNoActiveLocations):
		return utils.ErrorResponse(c, pkgError.PreconditionError(err.Error()))
	}
	return utils.ErrorResponse(c, err)
}

func badBody(c *fiber.Ctx) error {
	return utils.ErrorResponse(c, pkgError.ValidationError("invalid request body"))
}

// resultsResponse: 200 aunque falle alguna clave; el detalle va por clave
func resultsResponse[K ~string](c *fiber.Ctx, message string, results *domain.Results[K]) error {
	ok := results.OK()
	if !ok {
		message += " with failures"
	}
	return c.JSON(utils.ResponseData{
		Status:  fiber.StatusOK,
		Code:    "SUCCESS",
		Message: message,
		Results: fiber.Map{"ok": ok, "outcomes": results.Map()},
	})
}

// ProduceNow crea y genera un item fuera del horario del cliente
func (h *ContentHandler) ProduceNow(c *fiber.Ctx) error {
	item, err := h.svc.Scheduler.ProduceNow(c.UserContext(), c.Params("id"))
	if err != nil && item == nil {
		return respondError(c, err)
	}
	if err != nil {
		logrus.WithError(err).WithField("item_id", item.ID).Warn("[REST] Produce now created the item but generation failed")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *ContentHandler) ListItems(c *fiber.Ctx) error {
	filter := domain.ItemFilter{
		ClientID: c.Query("client_id"),
		Status:   domain.ItemStatus(strings.ToUpper(c.Query("status"))),
		Limit:    c.QueryInt("limit", 50),
		Offset:   c.QueryInt("offset", 0),
	}
	items, err := h.svc.Items.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": items, "count": len(items)})
}

func (h *ContentHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.svc.Items.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteItem requiere ?confirm=true para items publicados
func (h *ContentHandler) DeleteItem(c *fiber.Ctx) error {
	if err := h.svc.Items.Delete(c.UserContext(), c.Params("id"), c.QueryBool("confirm", false)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Generate (re)genera los tipos pedidos; sin tipos, todos los habilitados del cliente
func (h *ContentHandler) Generate(c *fiber.Ctx) error {
	var req domain.GenerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	if err := validations.ValidateGenerate(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}
	kinds, err := domain.ParseKinds(req.Kinds)
	if err != nil {
		return utils.ErrorResponse(c, pkgError.ValidationError(err.Error()))
	}

	results, err := h.svc.Generation.Generate(c.UserContext(), c.Params("id"), kinds, domain.GenerateOptions{ConfirmOverwrite: req.ConfirmOverwrite})
	if err != nil {
		return respondError(c, err)
	}
	return resultsResponse(c, "Generation finished", results)
}

func (h *ContentHandler) Retry(c *fiber.Ctx) error {
	results, err := h.svc.Items.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return resultsResponse(c, "Retry finished", results)
}

func (h *ContentHandler) Approve(c *fiber.Ctx) error {
	var req domain.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateApprove(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}
	kinds, err := domain.ParseKinds(req.Kinds)
	if err != nil {
		return utils.ErrorResponse(c, pkgError.ValidationError(err.Error()))
	}
	if err := h.svc.Items.Approve(c.UserContext(), c.Params("id"), kinds, req.PostIDs); err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, "Approved", nil)
}

func (h *ContentHandler) Publish(c *fiber.Ctx) error {
	var req domain.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidatePublish(c.UserContext(), req, time.Now()); err != nil {
		return respondError(c, err)
	}
	channels, err := domain.ParseChannels(req.Channels)
	if err != nil {
		return utils.ErrorResponse(c, pkgError.ValidationError(err.Error()))
	}

	results, err := h.svc.Publisher.Publish(c.UserContext(), c.Params("id"), channels, domain.PublishOptions{
		PostImmediate: req.PostImmediate,
		ScheduleAt:    req.ScheduleAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return resultsResponse(c, "Publish finished", results)
}

func (h *ContentHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.svc.Reconciler.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.SuccessResponse(c, "Reconciled", report)
}

// ReceiveJobWebhook acepta {item_id} o {external_id} de un host externo y reconcilia ese item
func (h *ContentHandler) ReceiveJobWebhook(c *fiber.Ctx) error {
	if h.webhookSecret != "" {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = strings.TrimSpace(c.Get("X-Webhook-Token"))
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(utils.ResponseData{Status: 401, Code: "UNAUTHORIZED", Message: "invalid webhook token"})
		}
	}

	var payload struct {
		ItemID     string `json:"item_id"`
		ExternalID string `json:"external_id"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return badBody(c)
	}
	ref := strings.TrimSpace(payload.ItemID)
	if ref == "" {
		ref = strings.TrimSpace(payload.ExternalID)
	}
	if ref == "" {
		return c.JSON(utils.ResponseData{Status: 200, Code: "IGNORED", Message: "Missing item_id or external_id"})
	}

	itemID, report, err := h.svc.Reconciler.HandleWebhook(c.UserContext(), ref)
	if err != nil {
		return respondError(c, err)
	}
	logrus.WithField("item_id", itemID).Infof("[REST] Job webhook reconciled item (%d advanced)", report.Advanced)
	return utils.SuccessResponse(c, "Reconciled", fiber.Map{"item_id": itemID, "report": report})
}

func (h *ContentHandler) InitUpload(c *fiber.Ctx) error {
	var req domain.UploadInitRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateUploadInit(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}
	session, err := h.svc.Uploads.Init(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// UploadChunk recibe un rango "Content-Range: bytes a-b/total" del archivo
func (h *ContentHandler) UploadChunk(c *fiber.Ctx) error {
	cr, err := application.ParseContentRange(c.Get(fiber.HeaderContentRange))
	if err != nil {
		return respondError(c, err)
	}
	session, err := h.svc.Uploads.WriteChunk(c.UserContext(), c.Params("sid"), cr, bytes.NewReader(c.Body()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":         session.ID,
		"received":   session.Received,
		"total_size": session.TotalSize,
		"complete":   session.Received == session.TotalSize,
	})
}

func (h *ContentHandler) FinalizeUpload(c *fiber.Ctx) error {
	out, err := h.svc.Uploads.Finalize(c.UserContext(), c.Params("sid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"externalId":   out.ExternalID,
		"url":          out.URL,
		"thumbnailUrl": out.ThumbnailURL,
	})
}
