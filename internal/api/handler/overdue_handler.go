package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"unilend/backend/internal/service"
	"unilend/backend/pkg/response"
)

// OverdueHandler 逾期扫描触发端点
//
// 不走 JWT 认证：调用方是外部定时器（cron / 云函数），
// 用配置中的共享密钥做 Bearer 校验。
type OverdueHandler struct {
	overdueSvc service.OverdueService
	token      string
}

// NewOverdueHandler 创建 OverdueHandler
func NewOverdueHandler(overdueSvc service.OverdueService, token string) *OverdueHandler {
	return &OverdueHandler{overdueSvc: overdueSvc, token: token}
}

// TriggerScan 触发逾期扫描
// POST /api/v1/tasks/overdue-scan
func (h *OverdueHandler) TriggerScan(c *gin.Context) {
	if !h.authorized(c) {
		response.Unauthorized(c, 10002, "无效的任务令牌")
		return
	}

	result, err := h.overdueSvc.Scan(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Usage 端点使用说明（便于人工排查，GET 不触发扫描）
// GET /api/v1/tasks/overdue-scan
func (h *OverdueHandler) Usage(c *gin.Context) {
	response.OK(c, gin.H{
		"usage": "POST 该地址并携带 Authorization: Bearer <task token> 触发逾期扫描",
	})
}

func (h *OverdueHandler) authorized(c *gin.Context) bool {
	if h.token == "" {
		return false
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.token)) == 1
}
