package handler

import (
	"net/http"

	"backoffice/internal/apperrors"
	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError writes the status and message for a classified service error.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	c.JSON(status, response.Error(status, apperrors.PublicMessage(err)))
}

func respondInvalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, "Invalid request payload: "+err.Error()))
}

// callerOf returns the authenticated caller, or an anonymous one that every
// service rejects.
func callerOf(c *gin.Context) model.Caller {
	caller, _ := middleware.CallerFromContext(c)
	return caller
}
