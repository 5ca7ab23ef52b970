package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/utils"
)

// respondError maps service errors onto HTTP statuses and application codes.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		utils.Error(ctx, http.StatusUnauthorized, 40105, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, err.Error())
	default:
		utils.Sugar.Errorw("request failed",
			"path", ctx.FullPath(),
			"request_id", ctx.GetString(utils.RequestIDKey),
			"error", err,
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func badPayload(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40000, "invalid request payload")
}
