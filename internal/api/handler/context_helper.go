package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/service"
	"pacing-calendar/backend/pkg/response"
	"pacing-calendar/backend/pkg/validator"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// requestContext 携带操作人的请求 context，写操作以此记录 updated_by
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok && id != "" {
			ctx = service.WithActor(ctx, id)
		}
	}
	return ctx
}

// resolveSchoolYear 解析请求中的学年，失败时写入错误响应并返回 false
func resolveSchoolYear(c *gin.Context, years service.SchoolYearService, name string) (string, bool) {
	year, err := years.Resolve(c.Request.Context(), name)
	if err != nil {
		handleSchoolYearError(c, err)
		return "", false
	}
	return year, true
}

// bindFailed 写入参数校验失败响应，details 为逐字段的中文提示
func bindFailed(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", validator.Describe(err))
}
