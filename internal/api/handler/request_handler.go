package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/service"
	apperrors "unilend/backend/pkg/errors"
	"unilend/backend/pkg/response"
)

// RequestHandler 借用申请模块 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// SubmitRequest 提交借用/预约申请
// POST /api/v1/requests
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	var req dto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Submit(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.Created(c, result)
}

// ListRequests 申请列表
// GET /api/v1/requests
// user 角色只能看到自己的申请；staff 看到全量
func (h *RequestHandler) ListRequests(c *gin.Context) {
	var req dto.ListRequestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	scopeUserID := userID
	if role == model.RoleStaff {
		scopeUserID = ""
	}

	requests, total, err := h.requestSvc.List(c.Request.Context(), &req, scopeUserID)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OKPage(c, requests, total, req.GetPage(), req.GetPageSize())
}

// GetRequest 申请详情
// GET /api/v1/requests/:id
// user 角色只能查看本人申请
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	if role != model.RoleStaff && (result.User == nil || result.User.ID != userID) {
		response.NotFound(c, 14001, "申请不存在")
		return
	}

	response.OK(c, result)
}

// ApproveRequest 审批通过（仅 staff）
// PUT /api/v1/requests/:id/approve
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.ApproveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	staffID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Approve(c.Request.Context(), id, staffID, &req)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, result)
}

// RejectRequest 驳回申请（仅 staff）
// PUT /api/v1/requests/:id/reject
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	staffID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.requestSvc.Reject(c.Request.Context(), id, staffID); err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, nil)
}

// CancelRequest 用户撤回本人 pending 申请
// PUT /api/v1/requests/:id/cancel
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.requestSvc.Cancel(c.Request.Context(), id, userID); err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, nil)
}

// RequestCancellation 对已批准申请发起取消请求
// POST /api/v1/requests/:id/cancellation-request
func (h *RequestHandler) RequestCancellation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.CancellationRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.requestSvc.RequestCancellation(c.Request.Context(), id, userID, &req); err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, nil)
}

// CompleteRequest 归还登记（仅 staff）
// PUT /api/v1/requests/:id/complete
func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	staffID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Complete(c.Request.Context(), id, staffID)
	if err != nil {
		h.handleRequestError(c, err)
		return
	}

	response.OK(c, result)
}

// handleRequestError 统一处理申请模块业务错误
func (h *RequestHandler) handleRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 14001, "申请不存在")
	case errors.Is(err, service.ErrItemNotFound):
		response.NotFound(c, 13001, "物品不存在")
	case errors.Is(err, service.ErrAmountInvalid):
		response.BadRequest(c, 14003, "申请数量超出可借范围")
	case errors.Is(err, service.ErrInsufficientQuantity):
		response.Conflict(c, 14004, "物品可用数量不足")
	case errors.Is(err, service.ErrRequestStateInvalid):
		response.Conflict(c, 14005, "申请状态不允许该操作")
	case errors.Is(err, service.ErrNotRequestOwner):
		response.Forbidden(c, 14006, "只能操作本人提交的申请")
	case errors.Is(err, service.ErrReturnTimeInvalid):
		response.BadRequest(c, 14007, "预期归还时间无效")
	case errors.Is(err, apperrors.ErrOptimisticLock):
		response.Conflict(c, 14008, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
