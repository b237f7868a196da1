package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

// ErrorResponse wraps all API errors
type ErrorResponse struct {
	Error  *Error      `json:"error"`
	Values interface{} `json:"values,omitempty"`
}

// Error represents API error
type Error struct {
	Code    errors.ErrorCode    `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// PaginatedResponse is the list envelope. Count is the number of matching
// rows across all pages.
type PaginatedResponse struct {
	Count      int         `json:"count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	Next       *string     `json:"next"`
	Previous   *string     `json:"previous"`
	Results    interface{} `json:"results"`
}

// RespondWithSuccess sends data with the given status
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// RespondWithError sends an error response. An expired request deadline
// is answered as 504; other errors that are not an AppError are logged
// and answered as 500 without details.
func RespondWithError(c *gin.Context, err error) {
	respond(c, err, nil)
}

// RespondWithValidation is RespondWithError that also echoes the submitted
// payload on validation failures so a form can be re-rendered.
func RespondWithValidation(c *gin.Context, err error, submitted interface{}) {
	respond(c, err, submitted)
}

func respond(c *gin.Context, err error, submitted interface{}) {
	appErr, ok := errors.As(err)
	if stderrors.Is(err, context.DeadlineExceeded) && (!ok || appErr.Code == errors.ErrInternal) {
		appErr, ok = &errors.AppError{Code: errors.ErrTimeout, Message: "request timeout", Err: err}, true
	}
	if !ok {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("request_id")).
			Msg("unhandled error")
		appErr = errors.Internal(err)
	}

	body := ErrorResponse{
		Error: &Error{
			Code:    appErr.Code,
			Message: appErr.Message,
			Fields:  appErr.Fields,
		},
	}
	if appErr.Code == errors.ErrValidation {
		body.Values = submitted
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), body)
}

// RespondWithPagination sends a paginated response with links to the
// neighbouring pages of the current request.
func RespondWithPagination(c *gin.Context, results interface{}, page, pageSize, total, totalPages int) {
	resp := PaginatedResponse{
		Count:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Results:    results,
	}
	if page < totalPages {
		resp.Next = pageLink(c, page+1)
	}
	if page > 1 {
		resp.Previous = pageLink(c, page-1)
	}
	c.JSON(http.StatusOK, resp)
}

func pageLink(c *gin.Context, page int) *string {
	u := url.URL{Path: c.Request.URL.Path}
	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
