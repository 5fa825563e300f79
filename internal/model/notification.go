package model

// 通知类型
const (
	NotifyItemAvailable       = "item_available"
	NotifyReturnOverdue       = "return_overdue"
	NotifyItemApproved        = "item_approved"
	NotifyItemRejected        = "item_rejected"
	NotifyCancellationRequest = "cancellation_request"
)

// Notification 站内通知表 — 对应 notifications
type Notification struct {
	NotificationID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID           string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Title            string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Message          string  `gorm:"type:text;not null"                             json:"message"`
	Type             string  `gorm:"type:varchar(30);not null"                      json:"type"`
	IsRead           bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedItemID    *string `gorm:"type:uuid"                                      json:"related_item_id,omitempty"`
	RelatedRequestID *string `gorm:"type:uuid"                                      json:"related_request_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
