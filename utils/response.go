package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed API call. Clients display Message as-is.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Respond writes payload as the JSON body with the given status code.
func Respond(ctx *gin.Context, status int, payload interface{}) {
	ctx.JSON(status, payload)
}

// Success returns a 200 response carrying payload.
func Success(ctx *gin.Context, payload interface{}) {
	Respond(ctx, http.StatusOK, payload)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, ErrorResponse{Code: code, Message: message})
}
