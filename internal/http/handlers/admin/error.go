package admin

import (
	handlershared "github.com/despensa-next/internal/http/handlers/shared"
	"github.com/despensa-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, err error) {
	handlershared.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, msg, err)
}
