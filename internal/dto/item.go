package dto

// CreateItemRequest 创建物品请求
type CreateItemRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	Category    string `json:"category"    binding:"omitempty,max=100"`
	ImageURL    string `json:"image_url"   binding:"omitempty,url,max=2000"`
	Amount      int    `json:"amount"      binding:"required,min=1"`
}

// UpdateItemRequest 更新物品请求（局部更新）
type UpdateItemRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Category    *string `json:"category"    binding:"omitempty,max=100"`
	ImageURL    *string `json:"image_url"   binding:"omitempty,max=2000"`
	Amount      *int    `json:"amount"      binding:"omitempty,min=1"`
}

// ListItemsRequest 物品列表筛选参数
// 搜索与过滤在服务端完成，客户端只做只读缓存
type ListItemsRequest struct {
	PaginationRequest
	Search   string `form:"search"   binding:"omitempty,max=200"`
	Category string `form:"category" binding:"omitempty,max=100"`
	Status   string `form:"status"   binding:"omitempty,oneof=available borrowed reserved"`
}

// ItemResponse 物品响应
type ItemResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Category          string  `json:"category,omitempty"`
	ImageURL          string  `json:"image_url,omitempty"`
	Amount            int     `json:"amount"`
	AvailableAmount   int     `json:"available_amount"`
	Status            string  `json:"status"`
	CurrentBorrowerID *string `json:"current_borrower_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}
