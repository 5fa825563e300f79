package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/service"
	apperrors "unilend/backend/pkg/errors"
	"unilend/backend/pkg/response"
)

// ItemHandler 物品模块 HTTP 处理器
type ItemHandler struct {
	itemSvc service.ItemService
}

// NewItemHandler 创建 ItemHandler
func NewItemHandler(itemSvc service.ItemService) *ItemHandler {
	return &ItemHandler{itemSvc: itemSvc}
}

// ListItems 获取物品列表
// GET /api/v1/items
func (h *ItemHandler) ListItems(c *gin.Context) {
	var req dto.ListItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, total, err := h.itemSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// ListCategories 获取分类列表
// GET /api/v1/items/categories
func (h *ItemHandler) ListCategories(c *gin.Context) {
	categories, err := h.itemSvc.ListCategories(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": categories})
}

// GetItem 获取物品详情
// GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	item, err := h.itemSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, item)
}

// CreateItem 创建物品（仅 staff）
// POST /api/v1/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.itemSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.Created(c, item)
}

// UpdateItem 更新物品（仅 staff）
// PUT /api/v1/items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.itemSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, item)
}

// DeleteItem 删除物品（仅 staff）
// DELETE /api/v1/items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.itemSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleItemError 统一处理物品模块业务错误
func (h *ItemHandler) handleItemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		response.NotFound(c, 13001, "物品不存在")
	case errors.Is(err, service.ErrItemInUse):
		response.Conflict(c, 13002, "物品仍有未完结的申请，无法删除")
	case errors.Is(err, service.ErrItemAmountTooLow):
		response.BadRequest(c, 13003, "总量调整会导致可用数量为负")
	case errors.Is(err, apperrors.ErrOptimisticLock):
		response.Conflict(c, 13004, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
