package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Item         ItemRepository
	Request      BorrowRequestRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Item:         NewItemRepo(db),
		Request:      NewBorrowRequestRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx 开启数据库事务
// db 为 nil 时（单测中手工组装的聚合）返回 nil 事务，WithTx 对应降级
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到指定事务的 Repository 视图
// tx 为 nil 时返回自身（配合 BeginTx 的降级语义）
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
