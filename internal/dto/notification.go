package dto

// ListNotificationsRequest 通知列表参数
type ListNotificationsRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Message          string  `json:"message"`
	Type             string  `json:"type"`
	IsRead           bool    `json:"is_read"`
	RelatedItemID    *string `json:"related_item_id,omitempty"`
	RelatedRequestID *string `json:"related_request_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// UnreadCountResponse 未读数响应
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// OverdueScanResponse 逾期扫描结果
type OverdueScanResponse struct {
	Scanned  int `json:"scanned"`  // 命中的逾期申请数
	Notified int `json:"notified"` // 实际发出的通知数（幂等去重后）
}
