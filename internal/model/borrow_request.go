package model

import "time"

// 申请类型
const (
	RequestTypeBorrow  = "borrow"
	RequestTypeReserve = "reserve"
)

// 申请状态
// 状态机：pending → {approved, rejected, cancelled}；approved → completed
// rejected / cancelled / completed 为终态
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCancelled = "cancelled"
	RequestStatusCompleted = "completed"
)

// BorrowRequest 借用/预约申请表 — 对应 borrow_requests
type BorrowRequest struct {
	RequestID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	ItemID           string     `gorm:"type:uuid;not null;index"                       json:"item_id"`
	UserID           string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	RequestType      string     `gorm:"type:varchar(10);not null"                      json:"request_type"` // borrow | reserve
	RequestedAmount  int        `gorm:"not null"                                       json:"requested_amount"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	RequestedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"requested_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       *string    `gorm:"type:uuid" json:"approved_by,omitempty"`
	BorrowedAt       *time.Time `json:"borrowed_at,omitempty"`
	ExpectedReturnAt *time.Time `json:"expected_return_at,omitempty"`
	ReturnedAt       *time.Time `json:"returned_at,omitempty"`
	Notes            string     `gorm:"type:varchar(500)" json:"notes,omitempty"`
	VersionedModel

	// 关联
	Item *Item `gorm:"foreignKey:ItemID;references:ItemID"    json:"item,omitempty"`
	User *User `gorm:"foreignKey:UserID;references:ProfileID" json:"user,omitempty"`
}

// TableName 指定表名
func (BorrowRequest) TableName() string { return "borrow_requests" }

// IsTerminal 是否处于终态
func (r *BorrowRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusRejected, RequestStatusCancelled, RequestStatusCompleted:
		return true
	}
	return false
}
