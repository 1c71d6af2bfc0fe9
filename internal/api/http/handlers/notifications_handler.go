package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spotdesk/spot-service/internal/api/dto"
	"github.com/spotdesk/spot-service/internal/auth"
	"github.com/spotdesk/spot-service/internal/repository"
	"github.com/spotdesk/spot-service/internal/service"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// NotificationsHandler serves the in-app notification inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.ReadFilter(c.Query("filter", string(repository.ReadFilterAll)))
	switch filter {
	case repository.ReadFilterAll, repository.ReadFilterRead, repository.ReadFilterUnread:
	default:
		return apperrors.NewValidationError("filter must be all, read or unread", nil)
	}

	records, err := h.service.Inbox(c.Context(), principal.EmpID(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.HistoryFromDomain(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Counts GET /notifications/counts.
func (h *NotificationsHandler) Counts(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	counts, err := h.service.InboxCounts(c.Context(), principal.EmpID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid notification id", nil)
	}
	if err := h.service.MarkRead(c.Context(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}
