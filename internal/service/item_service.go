package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
	apperrors "unilend/backend/pkg/errors"
)

// ── 物品模块业务错误 ──

var (
	ErrItemInUse        = errors.New("物品仍有未完结的申请，无法删除")
	ErrItemAmountTooLow = errors.New("总量调整会导致可用数量为负")
)

// ItemService 物品库存业务接口
type ItemService interface {
	Create(ctx context.Context, req *dto.CreateItemRequest, callerID string) (*dto.ItemResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ItemResponse, error)
	List(ctx context.Context, req *dto.ListItemsRequest) ([]dto.ItemResponse, int64, error)
	ListCategories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id string, req *dto.UpdateItemRequest, callerID string) (*dto.ItemResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type itemService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewItemService 创建 ItemService 实例
func NewItemService(repo *repository.Repository, logger *zap.Logger) ItemService {
	return &itemService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *itemService) Create(ctx context.Context, req *dto.CreateItemRequest, callerID string) (*dto.ItemResponse, error) {
	item := &model.Item{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		ImageURL:        req.ImageURL,
		Amount:          req.Amount,
		AvailableAmount: req.Amount, // 新建物品全部可用
		Status:          model.ItemStatusAvailable,
	}
	item.CreatedBy = &callerID
	item.UpdatedBy = &callerID

	if err := s.repo.Item.Create(ctx, item); err != nil {
		s.logger.Error("创建物品失败", zap.Error(err))
		return nil, err
	}

	return toItemResponse(item), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *itemService) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := s.repo.Item.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toItemResponse(item), nil
}

// ────────────────────── List ──────────────────────

func (s *itemService) List(ctx context.Context, req *dto.ListItemsRequest) ([]dto.ItemResponse, int64, error) {
	items, total, err := s.repo.Item.List(ctx, repository.ItemFilter{
		Search:   req.Search,
		Category: req.Category,
		Status:   req.Status,
		Offset:   req.GetOffset(),
		Limit:    req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询物品列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		result = append(result, *toItemResponse(&items[i]))
	}
	return result, total, nil
}

func (s *itemService) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Item.ListCategories(ctx)
	if err != nil {
		s.logger.Error("查询分类列表失败", zap.Error(err))
		return nil, err
	}
	return categories, nil
}

// ────────────────────── Update ──────────────────────

// Update 更新物品信息
// 总量调整同步平移可用量（delta 语义）：已借出部分不受影响，
// 调整后可用量为负时拒绝。并发冲突时重读重试。
func (s *itemService) Update(ctx context.Context, id string, req *dto.UpdateItemRequest, callerID string) (*dto.ItemResponse, error) {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		item, err := s.repo.Item.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrItemNotFound
			}
			s.logger.Error("查询物品失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}

		if req.Name != nil {
			item.Name = *req.Name
		}
		if req.Description != nil {
			item.Description = *req.Description
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.ImageURL != nil {
			item.ImageURL = *req.ImageURL
		}
		if req.Amount != nil {
			delta := *req.Amount - item.Amount
			if item.AvailableAmount+delta < 0 {
				return nil, ErrItemAmountTooLow
			}
			item.Amount = *req.Amount
			item.AvailableAmount += delta
			item.Status = item.DeriveStatus()
		}
		item.UpdatedBy = &callerID

		err = s.repo.Item.UpdateWithVersion(ctx, item)
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			continue
		}
		if err != nil {
			s.logger.Error("更新物品失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		return toItemResponse(item), nil
	}

	return nil, apperrors.ErrOptimisticLock
}

// ────────────────────── Delete ──────────────────────

// Delete 删除物品（软删除）
// 存在 pending/approved 申请时拒绝删除，避免申请悬挂引用
func (s *itemService) Delete(ctx context.Context, id string, callerID string) error {
	_, err := s.repo.Item.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.String("id", id), zap.Error(err))
		return err
	}

	active, err := s.repo.Request.CountActiveByItem(ctx, id)
	if err != nil {
		s.logger.Error("统计未完结申请失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if active > 0 {
		return ErrItemInUse
	}

	if err := s.repo.Item.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除物品失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func toItemResponse(item *model.Item) *dto.ItemResponse {
	return &dto.ItemResponse{
		ID:                item.ItemID,
		Name:              item.Name,
		Description:       item.Description,
		Category:          item.Category,
		ImageURL:          item.ImageURL,
		Amount:            item.Amount,
		AvailableAmount:   item.AvailableAmount,
		Status:            item.Status,
		CurrentBorrowerID: item.CurrentBorrowerID,
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.Format(time.RFC3339),
	}
}
