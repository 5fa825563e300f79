package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"unilend/backend/internal/model"
	apperrors "unilend/backend/pkg/errors"
)

// ItemFilter 物品列表筛选条件
type ItemFilter struct {
	Search   string // 名称/描述 ILIKE 匹配
	Category string
	Status   string
	Offset   int
	Limit    int
}

// ItemRepository 物品数据访问接口
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	List(ctx context.Context, f ItemFilter) ([]model.Item, int64, error)
	ListCategories(ctx context.Context) ([]string, error)
	// UpdateWithVersion 乐观锁条件更新：仅当行内 version 仍等于读取值时生效，
	// 冲突返回 pkg/errors.ErrOptimisticLock；成功后就地递增 item.Version
	UpdateWithVersion(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepo 创建 ItemRepository 实例
func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Where("item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) List(ctx context.Context, f ItemFilter) ([]model.Item, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Item{})

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Item
	err := q.Order("created_at DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&items).Error
	return items, total, err
}

// ListCategories 列出去重后的非空分类
func (r *itemRepo) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *itemRepo) UpdateWithVersion(ctx context.Context, item *model.Item) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("item_id = ? AND version = ?", item.ItemID, item.Version).
		Updates(map[string]interface{}{
			"name":                item.Name,
			"description":         item.Description,
			"category":            item.Category,
			"image_url":           item.ImageURL,
			"amount":              item.Amount,
			"available_amount":    item.AvailableAmount,
			"status":              item.Status,
			"current_borrower_id": item.CurrentBorrowerID,
			"updated_by":          item.UpdatedBy,
			"updated_at":          time.Now(),
			"version":             item.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	item.Version++
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("item_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
