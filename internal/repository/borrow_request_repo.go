package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"unilend/backend/internal/model"
)

// RequestFilter 申请列表筛选条件
type RequestFilter struct {
	UserID string
	ItemID string
	Status string
	Type   string
	Offset int
	Limit  int
}

// BorrowRequestRepository 借用申请数据访问接口
type BorrowRequestRepository interface {
	Create(ctx context.Context, req *model.BorrowRequest) error
	GetByID(ctx context.Context, id string) (*model.BorrowRequest, error)
	List(ctx context.Context, f RequestFilter) ([]model.BorrowRequest, int64, error)
	// ListAll 不分页的全量筛选查询（台账导出用），忽略 f 中的 Offset/Limit
	ListAll(ctx context.Context, f RequestFilter) ([]model.BorrowRequest, error)
	// UpdateStatusFrom 状态机 CAS：仅当行内状态仍为 fromStatus 时应用 updates，
	// 返回是否命中（false 表示状态已被并发迁移）
	UpdateStatusFrom(ctx context.Context, id, fromStatus string, updates map[string]interface{}) (bool, error)
	// ListPendingReserves 某物品的预约队列，按申请时间 FIFO
	ListPendingReserves(ctx context.Context, itemID string) ([]model.BorrowRequest, error)
	// ListOverdue 已批准且超过预期归还时间的申请
	ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRequest, error)
	// ListApprovedByUser 用户当前借出中的申请（归还日历用）
	ListApprovedByUser(ctx context.Context, userID string) ([]model.BorrowRequest, error)
	// CountActiveByItem 某物品上 pending/approved 状态的申请数（删除保护用）
	CountActiveByItem(ctx context.Context, itemID string) (int64, error)
}

type borrowRequestRepo struct {
	db *gorm.DB
}

// NewBorrowRequestRepo 创建 BorrowRequestRepository 实例
func NewBorrowRequestRepo(db *gorm.DB) BorrowRequestRepository {
	return &borrowRequestRepo{db: db}
}

func (r *borrowRequestRepo) Create(ctx context.Context, req *model.BorrowRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *borrowRequestRepo) GetByID(ctx context.Context, id string) (*model.BorrowRequest, error) {
	var req model.BorrowRequest
	err := r.db.WithContext(ctx).
		Preload("Item").
		Preload("User").
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *borrowRequestRepo) List(ctx context.Context, f RequestFilter) ([]model.BorrowRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.BorrowRequest{})

	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ItemID != "" {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("request_type = ?", f.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []model.BorrowRequest
	err := q.Preload("Item").
		Preload("User").
		Order("requested_at DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&reqs).Error
	return reqs, total, err
}

func (r *borrowRequestRepo) ListAll(ctx context.Context, f RequestFilter) ([]model.BorrowRequest, error) {
	q := r.db.WithContext(ctx).Model(&model.BorrowRequest{})

	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ItemID != "" {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("request_type = ?", f.Type)
	}

	var reqs []model.BorrowRequest
	err := q.Preload("Item").
		Preload("User").
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *borrowRequestRepo) UpdateStatusFrom(ctx context.Context, id, fromStatus string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.BorrowRequest{}).
		Where("request_id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *borrowRequestRepo) ListPendingReserves(ctx context.Context, itemID string) ([]model.BorrowRequest, error) {
	var reqs []model.BorrowRequest
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status = ? AND request_type = ?",
			itemID, model.RequestStatusPending, model.RequestTypeReserve).
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *borrowRequestRepo) ListOverdue(ctx context.Context, now time.Time) ([]model.BorrowRequest, error) {
	var reqs []model.BorrowRequest
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("status = ? AND expected_return_at IS NOT NULL AND expected_return_at < ?",
			model.RequestStatusApproved, now).
		Order("expected_return_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *borrowRequestRepo) ListApprovedByUser(ctx context.Context, userID string) ([]model.BorrowRequest, error) {
	var reqs []model.BorrowRequest
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ? AND status = ?", userID, model.RequestStatusApproved).
		Order("expected_return_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *borrowRequestRepo) CountActiveByItem(ctx context.Context, itemID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.BorrowRequest{}).
		Where("item_id = ? AND status IN ?", itemID,
			[]string{model.RequestStatusPending, model.RequestStatusApproved}).
		Count(&n).Error
	return n, err
}
