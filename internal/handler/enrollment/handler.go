package enrollment

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/handler"
	"github.com/jwalitptl/health-enrollment/internal/model"
)

type Service interface {
	EnrollClient(ctx context.Context, clientID uuid.UUID, req *model.EnrollRequest) (int, error)
	BulkEnroll(ctx context.Context, req *model.BulkEnrollRequest) (int, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateEnrollmentRequest) (*model.Enrollment, error)
	AvailablePrograms(ctx context.Context, clientID uuid.UUID) ([]*model.HealthProgram, error)
}

type ClientService interface {
	Detail(ctx context.Context, id uuid.UUID, withAvailable bool) (*model.ClientDetail, error)
}

type ReportService interface {
	EnrollmentReport(ctx context.Context) (*model.EnrollmentReport, error)
}

type Handler struct {
	service Service
	clients ClientService
	reports ReportService
}

func NewHandler(service Service, clients ClientService, reports ReportService) *Handler {
	return &Handler{
		service: service,
		clients: clients,
		reports: reports,
	}
}

type enrollForm struct {
	Client            *model.ClientDetail    `json:"client"`
	AvailablePrograms []*model.HealthProgram `json:"available_programs"`
}

type enrollResult struct {
	Created int                `json:"created"`
	Client  *model.ClientDetail `json:"client,omitempty"`
}

// RegisterManageRoutes mounts the management endpoints.
func (h *Handler) RegisterManageRoutes(r *gin.RouterGroup) {
	r.GET("/clients/:id/enroll", h.EnrollForm)
	r.POST("/clients/:id/enroll", h.EnrollClient)

	enrollments := r.Group("/enrollments")
	{
		enrollments.GET("", h.ListEnrollments)
		enrollments.POST("", h.BulkEnroll)
		enrollments.PUT("/:id", h.UpdateEnrollment)
	}
}

func (h *Handler) EnrollForm(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	client, err := h.clients.Detail(c.Request.Context(), id, false)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	available, err := h.service.AvailablePrograms(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, enrollForm{Client: client, AvailablePrograms: available})
}

func (h *Handler) EnrollClient(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	var req model.EnrollRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	created, err := h.service.EnrollClient(c.Request.Context(), id, &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}

	client, err := h.clients.Detail(c.Request.Context(), id, false)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, enrollResult{Created: created, Client: client})
}

func (h *Handler) BulkEnroll(c *gin.Context) {
	var req model.BulkEnrollRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	created, err := h.service.BulkEnroll(c.Request.Context(), &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.OK(c, enrollResult{Created: created})
}

func (h *Handler) UpdateEnrollment(c *gin.Context) {
	id, ok := handler.ParseID(c, "enrollment")
	if !ok {
		return
	}

	var req model.UpdateEnrollmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	enrollment, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.OK(c, enrollment)
}

func (h *Handler) ListEnrollments(c *gin.Context) {
	report, err := h.reports.EnrollmentReport(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, report)
}
