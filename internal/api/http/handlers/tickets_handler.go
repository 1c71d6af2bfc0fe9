package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spotdesk/spot-service/internal/api/dto"
	"github.com/spotdesk/spot-service/internal/auth"
	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/repository"
	"github.com/spotdesk/spot-service/internal/service"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Description == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}

	input := service.TicketCreateInput{
		Title:                req.Title,
		Description:          req.Description,
		Priority:             domain.TicketPriority(req.Priority),
		Department:           req.Department,
		SubDept:              req.SubDept,
		SubTask:              req.SubTask,
		TaskLabel:            req.TaskLabel,
		IncidentReportedTime: req.IncidentReportedTime,
		ITIncidentTime:       req.ITIncidentTime,
		Attachment:           req.Attachment,
	}
	if req.IncidentReportedDate != nil {
		date, err := parseDate(*req.IncidentReportedDate)
		if err != nil {
			return apperrors.NewValidationError("invalid incident_reported_date", nil)
		}
		input.IncidentReportedDate = &date
	}
	if req.ITIncidentDate != nil {
		date, err := parseDate(*req.ITIncidentDate)
		if err != nil {
			return apperrors.NewValidationError("invalid it_incident_date", nil)
		}
		input.ITIncidentDate = &date
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.Employee, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, time.Now())})
}

// ListTickets GET /tickets. The scope query selects the caller's view:
// assigned (default), reported, or department.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := scopedFilter(c, principal)
	if err != nil {
		return err
	}

	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Dashboard GET /tickets/dashboard.
func (h *TicketsHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := scopedFilter(c, principal)
	if err != nil {
		return err
	}
	dashboard, err := h.service.DashboardCounts(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}

// GetTicket GET /tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.Context(), c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, time.Now())})
}

// UpdateTicket PUT /tickets/:number.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{
		AssigneeEmpID:   req.AssigneeEmpID,
		AssigneeDept:    req.AssigneeDept,
		AssigneeSubDept: req.AssigneeSubDept,
		ITIncidentTime:  req.ITIncidentTime,
		Comment:         req.Comment,
	}
	if req.ITIncidentDate != nil {
		date, err := parseDate(*req.ITIncidentDate)
		if err != nil {
			return apperrors.NewValidationError("invalid it_incident_date", nil)
		}
		input.ITIncidentDate = &date
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.ExpectedCompletionDate != nil {
		input.ExpectedCompletionDateSet = true
		if *req.ExpectedCompletionDate != "" {
			date, err := parseDate(*req.ExpectedCompletionDate)
			if err != nil {
				return apperrors.NewValidationError("invalid expected_completion_date", nil)
			}
			input.ExpectedCompletionDate = &date
		}
	}

	ticket, err := h.service.UpdateTicket(c.Context(), principal.Employee, c.Params("number"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, time.Now())})
}

// RespondResolution POST /tickets/:number/resolution.
func (h *TicketsHandler) RespondResolution(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var accept bool
	switch strings.ToLower(req.Action) {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		return apperrors.NewValidationError("action must be accept or reject", nil)
	}

	ticket, err := h.service.RespondResolution(c.Context(), principal.Employee, c.Params("number"), accept, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, time.Now())})
}

// Acknowledge POST /tickets/:number/ack.
func (h *TicketsHandler) Acknowledge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Acknowledge(c.Context(), principal.Employee, c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket, time.Now())})
}

// History GET /tickets/:number/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	records, err := h.service.History(c.Context(), c.Params("number"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.HistoryFromDomain(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func scopedFilter(c *fiber.Ctx, principal *auth.Principal) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}

	empID := principal.EmpID()
	switch c.Query("scope", "assigned") {
	case "assigned":
		filter.AssigneeEmpID = &empID
	case "reported":
		filter.ReporterEmpID = &empID
	case "department":
		dept := principal.Employee.Department
		filter.ReporterDepartment = &dept
	default:
		return filter, apperrors.NewValidationError("scope must be assigned, reported or department", nil)
	}

	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return filter, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
