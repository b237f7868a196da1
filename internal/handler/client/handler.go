package client

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/handler"
	"github.com/jwalitptl/health-enrollment/internal/model"
)

type Service interface {
	Register(ctx context.Context, req *model.ClientRequest) (*model.ClientView, error)
	Update(ctx context.Context, id uuid.UUID, req *model.ClientRequest) (*model.ClientView, error)
	Detail(ctx context.Context, id uuid.UUID, withAvailable bool) (*model.ClientDetail, error)
	Enrollments(ctx context.Context, id uuid.UUID) ([]*model.EnrollmentDetail, error)
	List(ctx context.Context, filter model.ClientFilter) (model.Page[*model.ClientView], error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the read-only API.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clients := r.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.GET("/:id/enrollments", h.ListEnrollments)
	}
}

// RegisterManageRoutes mounts the management endpoints.
func (h *Handler) RegisterManageRoutes(r *gin.RouterGroup) {
	clients := r.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.POST("", h.RegisterClient)
		clients.GET("/:id", h.GetClientWithAvailable)
		clients.PUT("/:id", h.UpdateClient)
	}
}

func (h *Handler) ListClients(c *gin.Context) {
	var filter model.ClientFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.RespondPage(c, page)
}

func (h *Handler) GetClient(c *gin.Context) {
	h.detail(c, false)
}

func (h *Handler) GetClientWithAvailable(c *gin.Context) {
	h.detail(c, true)
}

func (h *Handler) detail(c *gin.Context, withAvailable bool) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), id, withAvailable)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, detail)
}

func (h *Handler) ListEnrollments(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	enrollments, err := h.service.Enrollments(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, enrollments)
}

func (h *Handler) RegisterClient(c *gin.Context) {
	var req model.ClientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	client, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.Created(c, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	var req model.ClientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	client, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.OK(c, client)
}
