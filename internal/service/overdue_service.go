package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"unilend/backend/internal/dto"
	"unilend/backend/internal/model"
	"unilend/backend/internal/repository"
	"unilend/backend/pkg/redis"
)

// OverdueService 逾期扫描业务接口
//
// 由外部定时器通过触发端点调用。扫描本身幂等：
// 每个逾期申请每天至多发一条通知（Redis SetNX 标记，24h TTL）。
// Redis 不可用时退化为每次触发都通知——触发方约定每天调用一次，可接受。
type OverdueService interface {
	Scan(ctx context.Context) (*dto.OverdueScanResponse, error)
}

type overdueService struct {
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewOverdueService 创建 OverdueService 实例
func NewOverdueService(repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) OverdueService {
	return &overdueService{repo: repo, rdb: rdb, logger: logger}
}

func (s *overdueService) Scan(ctx context.Context) (*dto.OverdueScanResponse, error) {
	now := time.Now()
	overdue, err := s.repo.Request.ListOverdue(ctx, now)
	if err != nil {
		s.logger.Error("查询逾期申请失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.OverdueScanResponse{Scanned: len(overdue)}
	day := now.Format("2006-01-02")

	for i := range overdue {
		r := &overdue[i]

		if s.rdb != nil {
			key := fmt.Sprintf("overdue:notified:%s:%s", r.RequestID, day)
			first, err := s.rdb.MarkOnce(ctx, key, 24*time.Hour)
			if err != nil {
				s.logger.Warn("写入幂等标记失败，照常通知", zap.String("request_id", r.RequestID), zap.Error(err))
			} else if !first {
				continue // 今天已通知过
			}
		}

		itemName := r.ItemID
		if r.Item != nil {
			itemName = r.Item.Name
		}
		n := &model.Notification{
			UserID: r.UserID,
			Title:  "归还逾期提醒",
			Message: fmt.Sprintf("您借用的「%s」（%d 件）已超过预期归还时间 %s，请尽快归还。",
				itemName, r.RequestedAmount, r.ExpectedReturnAt.Format("2006-01-02 15:04")),
			Type:             model.NotifyReturnOverdue,
			RelatedItemID:    &r.ItemID,
			RelatedRequestID: &r.RequestID,
		}
		if err := s.repo.Notification.Create(ctx, n); err != nil {
			s.logger.Error("发送逾期通知失败", zap.String("request_id", r.RequestID), zap.Error(err))
			continue
		}
		resp.Notified++
	}

	s.logger.Info("逾期扫描完成",
		zap.Int("scanned", resp.Scanned),
		zap.Int("notified", resp.Notified),
	)
	return resp, nil
}
