package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spotdesk/spot-service/internal/api/dto"
	"github.com/spotdesk/spot-service/internal/auth"
	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/service"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// MappingsHandler administers the assignee routing table.
type MappingsHandler struct {
	service *service.MappingService
}

// NewMappingsHandler constructs handler.
func NewMappingsHandler(mappingService *service.MappingService) *MappingsHandler {
	return &MappingsHandler{service: mappingService}
}

// List GET /mappings.
func (h *MappingsHandler) List(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	mappings, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.MappingResponse, 0, len(mappings))
	for i := range mappings {
		items = append(items, dto.MappingFromDomain(&mappings[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /mappings.
func (h *MappingsHandler) Create(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateMappingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	mapping := &domain.AssigneeMapping{
		Location:      req.Location,
		Department:    req.Department,
		SubDept:       req.SubDept,
		SubTask:       req.SubTask,
		TaskLabel:     req.TaskLabel,
		TicketType:    req.TicketType,
		AssigneeEmpID: req.AssigneeEmpID,
	}
	created, err := h.service.Create(c.Context(), mapping)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MappingFromDomain(created)})
}

// Delete DELETE /mappings/:id.
func (h *MappingsHandler) Delete(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid mapping id", nil)
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
