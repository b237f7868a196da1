package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/health-enrollment/internal/handler"
	"github.com/jwalitptl/health-enrollment/internal/model"
)

type Service interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterManageRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, d)
}
