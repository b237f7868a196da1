// Package handler holds helpers shared by the HTTP handlers. Errors are
// recorded on the gin context and rendered by middleware.ErrorHandler.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
	"github.com/jwalitptl/health-enrollment/pkg/httputil"
)

// Fail records err for the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// FailWithValues is Fail for form submissions. The submitted payload is
// echoed back when err is a validation error.
func FailWithValues(c *gin.Context, err error, submitted interface{}) {
	_ = c.Error(err).SetMeta(submitted)
	c.Abort()
}

// ParseID reads the :id path parameter. Identifiers that cannot be parsed
// name no record, so they are answered like an absent one.
func ParseID(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		Fail(c, errors.NotFound(resource, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes the request body into obj.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		Fail(c, errors.BadRequest("malformed request body", err))
		return false
	}
	return true
}

// BindQuery decodes query parameters into obj.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		Fail(c, errors.BadRequest("invalid query parameters", err))
		return false
	}
	return true
}

// RespondPage writes one page of a list in the paginated envelope.
func RespondPage[T any](c *gin.Context, p model.Page[T]) {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	httputil.RespondWithPagination(c, items, p.Page, p.PageSize, p.Total, p.TotalPages())
}

// OK writes data with status 200.
func OK(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusOK, data)
}

// Created writes data with status 201.
func Created(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusCreated, data)
}
