package program

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/handler"
	"github.com/jwalitptl/health-enrollment/internal/model"
)

type Service interface {
	Create(ctx context.Context, req *model.ProgramRequest) (*model.HealthProgram, error)
	Update(ctx context.Context, id uuid.UUID, req *model.ProgramRequest) (*model.HealthProgram, error)
	Get(ctx context.Context, id uuid.UUID) (*model.HealthProgram, error)
	Detail(ctx context.Context, id uuid.UUID) (*model.ProgramDetail, error)
	Clients(ctx context.Context, id uuid.UUID) ([]*model.ClientView, error)
	List(ctx context.Context, filter model.ProgramFilter) (model.Page[*model.HealthProgram], error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the read-only API.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	programs := r.Group("/programs")
	{
		programs.GET("", h.ListPrograms)
		programs.GET("/:id", h.GetProgram)
		programs.GET("/:id/clients", h.ListClients)
	}
}

// RegisterManageRoutes mounts the management endpoints.
func (h *Handler) RegisterManageRoutes(r *gin.RouterGroup) {
	programs := r.Group("/programs")
	{
		programs.GET("", h.ListProgramsByName)
		programs.POST("", h.CreateProgram)
		programs.GET("/:id", h.GetProgramDetail)
		programs.PUT("/:id", h.UpdateProgram)
	}
}

func (h *Handler) ListPrograms(c *gin.Context) {
	h.list(c, "")
}

// ListProgramsByName orders by name unless the caller asks otherwise.
func (h *Handler) ListProgramsByName(c *gin.Context) {
	h.list(c, "name")
}

func (h *Handler) list(c *gin.Context, defaultOrdering string) {
	var filter model.ProgramFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	if filter.Ordering == "" {
		filter.Ordering = defaultOrdering
	}

	page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.RespondPage(c, page)
}

func (h *Handler) GetProgram(c *gin.Context) {
	id, ok := handler.ParseID(c, "program")
	if !ok {
		return
	}

	program, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, program)
}

func (h *Handler) GetProgramDetail(c *gin.Context) {
	id, ok := handler.ParseID(c, "program")
	if !ok {
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, detail)
}

func (h *Handler) ListClients(c *gin.Context) {
	id, ok := handler.ParseID(c, "program")
	if !ok {
		return
	}

	clients, err := h.service.Clients(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, clients)
}

func (h *Handler) CreateProgram(c *gin.Context) {
	var req model.ProgramRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	program, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.Created(c, program)
}

func (h *Handler) UpdateProgram(c *gin.Context) {
	id, ok := handler.ParseID(c, "program")
	if !ok {
		return
	}

	var req model.ProgramRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	program, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.FailWithValues(c, err, req)
		return
	}
	handler.OK(c, program)
}
