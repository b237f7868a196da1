package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/health-enrollment/pkg/httputil"
)

// ErrorHandler answers the last error a handler attached with c.Error.
// Meta set on that error is echoed back as the submitted values of a
// failed validation.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		httputil.RespondWithValidation(c, last.Err, last.Meta)
	}
}
