package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/middleware"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func userMessage(err error, fallback string) string {
	if msg := appErr.UserMessage(err); msg != "" {
		return msg
	}
	return fallback
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var verr *appErr.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Fail(c, http.StatusBadRequest, verr.Error(), gin.H{"errors": verr.Fields})
	case errors.Is(err, appErr.ErrInvalid):
		response.Fail(c, http.StatusBadRequest, userMessage(err, "Invalid request"), nil)
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, userMessage(err, "Not Authenticated"), nil)
	case errors.Is(err, appErr.ErrBadCredentials):
		response.Fail(c, http.StatusUnauthorized, userMessage(err, "Incorrect password"), nil)
	case errors.Is(err, appErr.ErrNotVerified):
		response.Fail(c, http.StatusForbidden, userMessage(err, "User not verified"), nil)
	case errors.Is(err, appErr.ErrNotFound):
		response.Fail(c, http.StatusNotFound, userMessage(err, "Not found"), nil)
	case errors.Is(err, appErr.ErrConflict):
		response.Fail(c, http.StatusBadRequest, userMessage(err, "Already exists"), nil)
	case errors.Is(err, appErr.ErrExpired), errors.Is(err, appErr.ErrInvalidCode):
		response.Fail(c, http.StatusBadRequest, userMessage(err, "Invalid code"), nil)
	case errors.Is(err, appErr.ErrNotAccepting):
		// an application level refusal, not a transport failure
		response.Fail(c, http.StatusOK, userMessage(err, "User is not accepting messages"), nil)
	case errors.Is(err, appErr.ErrUpstream):
		logFailure(c, err)
		response.Fail(c, http.StatusBadGateway, userMessage(err, "Upstream service failed"), nil)
	default:
		logFailure(c, err)
		response.Fail(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

func logFailure(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
}
