package rest

import (
	"errors"

	"github.com/AzielCF/az-localseo/clients/application"
	"github.com/AzielCF/az-localseo/clients/domain"
	pkgError "github.com/AzielCF/az-localseo/pkg/error"
	"github.com/AzielCF/az-localseo/pkg/utils"
	"github.com/AzielCF/az-localseo/validations"
	"github.com/gofiber/fiber/v2"
)

// ClientHandler maneja las peticiones REST para clientes, ubicaciones y preguntas
type ClientHandler struct {
	clientService *application.ClientService
}

// NewClientHandler crea una nueva instancia del handler
func NewClientHandler(clientService *application.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// RegisterRoutes registra las rutas de clientes en el router de Fiber
func (h *ClientHandler) RegisterRoutes(router fiber.Router) {
	clients := router.Group("/clients")

	clients.Get("/", h.ListClients)
	clients.Post("/", h.CreateClient)
	clients.Get("/:id", h.GetClient)
	clients.Put("/:id", h.UpdateClient)
	clients.Delete("/:id", h.DeleteClient)
	clients.Put("/:id/automation/:state", h.SetAutomation)

	// Ubicaciones
	clients.Get("/:id/locations", h.ListLocations)
	clients.Post("/:id/locations", h.CreateLocation)
	clients.Put("/:id/locations/:locId", h.UpdateLocation)
	clients.Delete("/:id/locations/:locId", h.DeleteLocation)

	// Preguntas propias del cliente
	clients.Get("/:id/topics", h.ListClientTopics)
	clients.Post("/:id/topics", h.CreateClientTopic)

	// Bolsa estándar y edición de preguntas
	topics := router.Group("/topics")
	topics.Get("/", h.ListStandardTopics)
	topics.Post("/", h.CreateStandardTopic)
	topics.Put("/:topicId", h.UpdateTopic)
	topics.Delete("/:topicId", h.DeleteTopic)
}

func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrClientNotFound), errors.Is(err, domain.ErrLocationNotFound), errors.Is(err, domain.ErrTopicNotFound):
		return utils.ErrorResponse(c, pkgError.NotFoundError(err.Error()))
	case errors.Is(err, domain.ErrDuplicateClient), errors.Is(err, domain.ErrClientInUse):
		return utils.ErrorResponse(c, pkgError.ConflictError(err.Error()))
	}
	return utils.ErrorResponse(c, err)
}

func badBody(c *fiber.Ctx) error {
	return utils.ErrorResponse(c, pkgError.ValidationError("invalid request body"))
}

// ListClients lista clientes con filtros
func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	filter := domain.ClientFilter{
		Search: c.Query("search"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if enabled := c.Query("enabled"); enabled != "" {
		e := enabled == "true"
		filter.Enabled = &e
	}

	clients, err := h.clientService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": clients, "count": len(clients)})
}

// CreateClient crea un nuevo cliente
func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	var req domain.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateClient(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	client := &domain.Client{}
	req.Apply(client)
	if err := h.clientService.Create(c.UserContext(), client); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

// GetClient obtiene un cliente por ID
func (h *ClientHandler) GetClient(c *fiber.Ctx) error {
	client, err := h.clientService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(client)
}

// UpdateClient reemplaza la configuración de un cliente
func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	client, err := h.clientService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	var req domain.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateClient(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	req.Apply(client)
	if err := h.clientService.Update(c.UserContext(), client); err != nil {
		return respondError(c, err)
	}
	return c.JSON(client)
}

// DeleteClient elimina un cliente sin items
func (h *ClientHandler) DeleteClient(c *fiber.Ctx) error {
	if err := h.clientService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetAutomation activa (/on) o pausa (/off) la producción automática
func (h *ClientHandler) SetAutomation(c *fiber.Ctx) error {
	state := c.Params("state")
	if state != "on" && state != "off" {
		return utils.ErrorResponse(c, pkgError.ValidationError("state must be on or off"))
	}
	if err := h.clientService.SetAutomation(c.UserContext(), c.Params("id"), state == "on"); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "automation updated", "automation_enabled": state == "on"})
}

// --- Locations ---

func (h *ClientHandler) ListLocations(c *fiber.Ctx) error {
	locs, err := h.clientService.ListLocations(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": locs, "count": len(locs)})
}

func (h *ClientHandler) CreateLocation(c *fiber.Ctx) error {
	var req domain.LocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateLocation(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	loc := &domain.ServiceLocation{ClientID: c.Params("id"), Active: true}
	applyLocation(loc, req)
	if err := h.clientService.AddLocation(c.UserContext(), loc); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(loc)
}

func (h *ClientHandler) UpdateLocation(c *fiber.Ctx) error {
	loc, err := h.clientService.GetLocation(c.UserContext(), c.Params("locId"))
	if err != nil {
		return respondError(c, err)
	}
	if loc.ClientID != c.Params("id") {
		return respondError(c, domain.ErrLocationNotFound)
	}

	var req domain.LocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateLocation(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	applyLocation(loc, req)
	if err := h.clientService.UpdateLocation(c.UserContext(), loc); err != nil {
		return respondError(c, err)
	}
	return c.JSON(loc)
}

func (h *ClientHandler) DeleteLocation(c *fiber.Ctx) error {
	loc, err := h.clientService.GetLocation(c.UserContext(), c.Params("locId"))
	if err != nil {
		return respondError(c, err)
	}
	if loc.ClientID != c.Params("id") {
		return respondError(c, domain.ErrLocationNotFound)
	}
	if err := h.clientService.DeleteLocation(c.UserContext(), loc.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func applyLocation(loc *domain.ServiceLocation, req domain.LocationRequest) {
	loc.City = req.City
	loc.State = req.State
	loc.Address = req.Address
	loc.MapEmbedURL = req.MapEmbedURL
	loc.IsHeadquarters = req.IsHeadquarters
	if req.Active != nil {
		loc.Active = *req.Active
	}
}

// --- Topics ---

func (h *ClientHandler) ListClientTopics(c *fiber.Ctx) error {
	return h.listTopics(c, domain.TopicFilter{ClientID: c.Params("id"), Pool: domain.PoolCustom})
}

func (h *ClientHandler) ListStandardTopics(c *fiber.Ctx) error {
	return h.listTopics(c, domain.TopicFilter{Pool: domain.PoolStandard})
}

func (h *ClientHandler) listTopics(c *fiber.Ctx, filter domain.TopicFilter) error {
	filter.Limit = c.QueryInt("limit", 200)
	filter.Offset = c.QueryInt("offset", 0)
	topics, err := h.clientService.ListTopics(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": topics, "count": len(topics)})
}

func (h *ClientHandler) CreateClientTopic(c *fiber.Ctx) error {
	return h.createTopic(c, c.Params("id"))
}

func (h *ClientHandler) CreateStandardTopic(c *fiber.Ctx) error {
	return h.createTopic(c, "")
}

func (h *ClientHandler) createTopic(c *fiber.Ctx, clientID string) error {
	var req domain.TopicRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateTopic(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	topic := &domain.TopicEntry{ClientID: clientID, Question: req.Question, Priority: req.Priority, Active: true}
	if req.Active != nil {
		topic.Active = *req.Active
	}
	if err := h.clientService.AddTopic(c.UserContext(), topic); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}

func (h *ClientHandler) UpdateTopic(c *fiber.Ctx) error {
	topic, err := h.clientService.GetTopic(c.UserContext(), c.Params("topicId"))
	if err != nil {
		return respondError(c, err)
	}

	var req domain.TopicRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := validations.ValidateTopic(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	topic.Question = req.Question
	topic.Priority = req.Priority
	if req.Active != nil {
		topic.Active = *req.Active
	}
	if err := h.clientService.UpdateTopic(c.UserContext(), topic); err != nil {
		return respondError(c, err)
	}
	return c.JSON(topic)
}

func (h *ClientHandler) DeleteTopic(c *fiber.Ctx) error {
	if err := h.clientService.DeleteTopic(c.UserContext(), c.Params("topicId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
