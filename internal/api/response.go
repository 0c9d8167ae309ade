package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wfunc/gem-cascade/internal/errors"
	"github.com/wfunc/gem-cascade/internal/middleware"
)

// respondError 按错误码返回统一错误响应
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	// 调用栈只写日志，不返回给客户端
	body := *appErr
	body.Stack = nil
	c.AbortWithStatusJSON(appErr.HTTPStatus(), errors.NewErrorResponse(&body, middleware.GetRequestID(c)))
}
