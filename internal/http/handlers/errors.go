package handlers

import (
	"context"
	"errors"
	"net/http"

	"zentari/internal/domain"
	"zentari/internal/logger"

	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation, domain.KindInvalidReferral:
		return http.StatusBadRequest
	case domain.KindInsufficientResource:
		return http.StatusUnprocessableEntity
	case domain.KindAlreadyInProgress, domain.KindAlreadyClaimed, domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {error, code, details}. Invariant violations and
// infrastructure failures are reported without internals.
func respondError(c *gin.Context, err error) {
	if de, ok := domain.AsError(err); ok && de.Kind() != domain.KindInvariant {
		body := gin.H{"error": de.Message, "code": de.Code}
		if len(de.Details) > 0 {
			body["details"] = de.Details
		}
		c.JSON(StatusFor(de.Kind()), body)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled", "code": "cancelled"})
		return
	}

	logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": domain.CodeValidation})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
}
