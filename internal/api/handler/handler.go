package handler

import (
	"unilend/backend/config"
	"unilend/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Item         *ItemHandler
	Request      *RequestHandler
	Notification *NotificationHandler
	Overdue      *OverdueHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Item:         NewItemHandler(svc.Item),
		Request:      NewRequestHandler(svc.Request),
		Notification: NewNotificationHandler(svc.Notification),
		Overdue:      NewOverdueHandler(svc.Overdue, cfg.Lending.OverdueToken),
		Export:       NewExportHandler(svc.Export, svc.Calendar),
	}
}
