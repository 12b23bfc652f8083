package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/apperr"
)

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDependency:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondResult renders a successful mutation. A failed audit append
// does not change the status; it is reported as a partial flag.
func respondResult(c *gin.Context, status int, body gin.H, auditErr error) {
	if auditErr != nil {
		body["partial"] = true
		body["auditError"] = "action succeeded but could not be recorded"
	}
	c.JSON(status, body)
}
