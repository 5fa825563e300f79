package service

import (
	"context"
	"fmt"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"unilend/backend/internal/repository"
)

// CalendarService 归还日历业务接口
//
// 设计说明：
//   - 将用户当前借出中（approved）的申请生成标准 iCalendar (RFC 5545) 订阅内容
//   - 每条申请一个 VEVENT，落在预期归还时间上，无归还时间的申请跳过
//   - 序列化结果由 Handler 层以 text/calendar 返回
type CalendarService interface {
	// DueDateFeed 生成用户的归还日历
	DueDateFeed(ctx context.Context, userID string) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func (s *calendarService) DueDateFeed(ctx context.Context, userID string) (string, error) {
	requests, err := s.repo.Request.ListApprovedByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询借出中申请失败", zap.String("user_id", userID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//UniLend//Return Calendar//CN")
	cal.SetName("UniLend 归还日历")

	for i := range requests {
		r := &requests[i]
		if r.ExpectedReturnAt == nil {
			continue
		}

		itemName := r.ItemID
		if r.Item != nil {
			itemName = r.Item.Name
		}

		evt := cal.AddEvent(fmt.Sprintf("request-%s@unilend", r.RequestID))
		evt.SetCreatedTime(r.RequestedAt)
		evt.SetDtStampTime(r.RequestedAt)
		evt.SetStartAt(*r.ExpectedReturnAt)
		evt.SetEndAt(*r.ExpectedReturnAt)
		evt.SetSummary(fmt.Sprintf("归还：%s（%d 件）", itemName, r.RequestedAmount))
		if r.Notes != "" {
			evt.SetDescription(r.Notes)
		}
	}

	return cal.Serialize(), nil
}
