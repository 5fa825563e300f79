package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
)

// ErrNotificationNotFound 通知不存在或不属于当前用户
var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 站内通知业务接口
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.ListNotificationsRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.ListNotificationsRequest) ([]dto.NotificationResponse, int64, error) {
	notifications, total, err := s.repo.Notification.List(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		result = append(result, *toNotificationResponse(&notifications[i]))
	}
	return result, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification.UnreadCount(ctx, userID)
	if err != nil {
		s.logger.Error("查询未读数失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.repo.Notification.MarkRead(ctx, id, userID)
	if err != nil {
		s.logger.Error("标记已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.Notification.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) Delete(ctx context.Context, id, userID string) error {
	ok, err := s.repo.Notification.Delete(ctx, id, userID)
	if err != nil {
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// ── 内部辅助方法 ──

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:               n.NotificationID,
		Title:            n.Title,
		Message:          n.Message,
		Type:             n.Type,
		IsRead:           n.IsRead,
		RelatedItemID:    n.RelatedItemID,
		RelatedRequestID: n.RelatedRequestID,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
	}
}
