package httpkit

import (
	"net/http"

	"lead_intake_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes err and reports whether there was one. Typed errors use
// their kind's status, message and details. Anything else is a 500 with a
// generic message; the cause is attached to the gin context so RequestLogger
// records it without leaking it to the client.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	appErr, ok := apperr.As(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return true
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError || appErr.Kind == apperr.KindProvider {
		_ = c.Error(err)
	}
	c.JSON(status, ErrorResponse{Error: appErr.Message, Details: appErr.Details})
	return true
}
