package service

import (
	"go.uber.org/zap"

	"unilend/backend/config"
	"unilend/backend/internal/repository"
	"unilend/backend/pkg/jwt"
	"unilend/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Item         ItemService
	Request      RequestService
	Notification NotificationService
	Overdue      OverdueService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:         NewUserService(repo, logger),
		Item:         NewItemService(repo, logger),
		Request:      NewRequestService(cfg, repo, logger),
		Notification: NewNotificationService(repo, logger),
		Overdue:      NewOverdueService(repo, rdb, logger),
		Export:       NewExportService(repo, logger),
		Calendar:     NewCalendarService(repo, logger),
	}
}
