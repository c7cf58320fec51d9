package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/middleware"
	"github.com/xxxsen/docchat/internal/pkg/errcode"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
	"github.com/xxxsen/docchat/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user", getUserID(c)),
		zap.Error(err))
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrExtraction):
		response.Error(c, errcode.ErrExtractionFailed, "failed to extract document text")
	case errors.Is(err, appErr.ErrIndex):
		response.Error(c, errcode.ErrIndexUnavailable, "retrieval index unavailable")
	case errors.Is(err, appErr.ErrCompletion):
		response.Error(c, errcode.ErrCompletionFailed, "completion service failed")
	case errors.Is(err, appErr.ErrStore):
		response.Error(c, errcode.ErrStoreUnavailable, "storage unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
