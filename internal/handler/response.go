package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinic-api/internal/model"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes an error response with the HTTP status derived from the
// error's code. Internal errors are masked with a generic message.
func Error(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= 500 {
		message = "internal server error"
	}

	c.JSON(status, gin.H{"status": "error", "message": message})
}

// ActorFromContext reads the identity placed by the auth middleware.
// The zero Actor is returned for unauthenticated routes.
func ActorFromContext(c *gin.Context) model.Actor {
	if v, exists := c.Get("actor"); exists {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}
