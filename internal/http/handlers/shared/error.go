package shared

import (
	"context"
	"errors"

	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/logger"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal error"

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	respondAppError(c, response.WrapError(code, msg, err))
}

// RespondError 将业务错误映射为响应码：校验 400，不存在 404，冲突与换算缺失 409，队列不可用 503，其余 500。
func RespondError(c *gin.Context, err error) {
	respondAppError(c, MapError(err))
}

// MapError 业务错误到响应错误的映射
func MapError(err error) *response.AppError {
	var missing *service.MissingFieldError
	var unresolved *service.ConversionUnresolvedError
	switch {
	case err == nil:
		return response.WrapError(response.CodeInternal, internalErrorMessage, nil)
	case errors.As(err, &missing):
		return response.WrapError(response.CodeBadRequest, missing.Error(), nil).
			WithData(gin.H{"field": missing.Field})
	case errors.As(err, &unresolved):
		return response.WrapError(response.CodeConflict, unresolved.Error(), nil).
			WithData(gin.H{
				"product_id": unresolved.ProductID,
				"from_unit":  unresolved.FromUnit,
				"to_unit":    unresolved.ToUnit,
			})
	case errors.Is(err, service.ErrPurchaseInvalid),
		errors.Is(err, service.ErrEvidenceInvalid),
		errors.Is(err, service.ErrConversionFactorInvalid),
		errors.Is(err, service.ErrProductInvalid),
		errors.Is(err, service.ErrProviderInvalid),
		errors.Is(err, service.ErrSettingInvalid),
		errors.Is(err, service.ErrInvalidDateFilter),
		errors.Is(err, service.ErrSubstituteSameProduct):
		return response.WrapError(response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrProviderNotFound),
		errors.Is(err, service.ErrConversionFactorNotFound):
		return response.WrapError(response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrTaskCompleted),
		errors.Is(err, service.ErrTaskSubstituted),
		errors.Is(err, service.ErrSubstituteUnitChanged),
		errors.Is(err, service.ErrProductInactive):
		return response.WrapError(response.CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrQueueUnavailable):
		return response.WrapError(response.CodeServiceUnavailable, service.ErrQueueUnavailable.Error(), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return response.WrapError(response.CodeServiceUnavailable, "request canceled", err)
	default:
		return response.WrapError(response.CodeInternal, internalErrorMessage, err)
	}
}

func respondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	if appErr.Data != nil {
		response.ErrorWithData(c, appErr.Code, appErr.Message, appErr.Data)
		return
	}
	response.Error(c, appErr.Code, appErr.Message)
}
