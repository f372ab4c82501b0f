package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/apperr"
)

// respondError maps a taxonomy error to its status. Internal errors are
// logged and collapsed to a generic body.
func respondError(ctx *gin.Context, err error) {
	status := apperr.Status(err)

	if status == http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
	}

	ctx.JSON(status, gin.H{"error": apperr.Message(err)})
}
