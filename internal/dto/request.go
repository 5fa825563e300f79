package dto

// SubmitRequestRequest 提交借用/预约申请
type SubmitRequestRequest struct {
	ItemID      string `json:"item_id"      binding:"required,uuid"`
	RequestType string `json:"request_type" binding:"required,oneof=borrow reserve"`
	Amount      int    `json:"amount"       binding:"required,min=1"`
	Notes       string `json:"notes"        binding:"omitempty,max=500"`
}

// ApproveRequestRequest 审批通过申请
// ExpectedReturnAt 为 RFC3339 时间；缺省时按配置的默认借期推算
type ApproveRequestRequest struct {
	ExpectedReturnAt string `json:"expected_return_at" binding:"omitempty"`
}

// CancellationRequestRequest 对已批准申请发起取消请求（由员工处理）
type CancellationRequestRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ListRequestsRequest 申请列表筛选参数
type ListRequestsRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected cancelled completed"`
	Type   string `form:"type"   binding:"omitempty,oneof=borrow reserve"`
	ItemID string `form:"item_id" binding:"omitempty,uuid"`
}

// RequestResponse 申请响应（含物品与申请人摘要）
type RequestResponse struct {
	ID               string        `json:"id"`
	RequestType      string        `json:"request_type"`
	RequestedAmount  int           `json:"requested_amount"`
	Status           string        `json:"status"`
	RequestedAt      string        `json:"requested_at"`
	ApprovedAt       string        `json:"approved_at,omitempty"`
	BorrowedAt       string        `json:"borrowed_at,omitempty"`
	ExpectedReturnAt string        `json:"expected_return_at,omitempty"`
	ReturnedAt       string        `json:"returned_at,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Item             *ItemResponse `json:"item,omitempty"`
	User             *UserResponse `json:"user,omitempty"`
}
