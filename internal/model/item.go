package model

// 物品状态
const (
	ItemStatusAvailable = "available"
	ItemStatusBorrowed  = "borrowed"
	ItemStatusReserved  = "reserved"
)

// Item 物品库存表 — 对应 items
//
// 库存不变量：0 <= AvailableAmount <= Amount（数据库 CHECK 约束兜底）。
// Status 由 AvailableAmount 推导后落库：有余量为 available，否则 borrowed。
type Item struct {
	ItemID          string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"item_id"`
	Name            string  `gorm:"type:varchar(200);not null"                     json:"name"`
	Description     string  `gorm:"type:text"                                      json:"description,omitempty"`
	Category        string  `gorm:"type:varchar(100);index"                        json:"category,omitempty"`
	ImageURL        string  `gorm:"type:text"                                      json:"image_url,omitempty"`
	Amount          int     `gorm:"not null;default:1"                             json:"amount"`
	AvailableAmount int     `gorm:"not null;default:1"                             json:"available_amount"`
	Status          string  `gorm:"type:varchar(20);not null;default:'available'"  json:"status"`
	// CurrentBorrowerID 仅在单次审批把 AvailableAmount 清零时填写；
	// 多人分批借用时该字段不维护（见 DESIGN.md 的决策记录）
	CurrentBorrowerID *string `gorm:"type:uuid" json:"current_borrower_id,omitempty"`
	VersionedModel

	// 关联
	CurrentBorrower *User `gorm:"foreignKey:CurrentBorrowerID;references:ProfileID" json:"current_borrower,omitempty"`
}

// TableName 指定表名
func (Item) TableName() string { return "items" }

// DeriveStatus 根据余量推导物品状态
func (i *Item) DeriveStatus() string {
	if i.AvailableAmount > 0 {
		return ItemStatusAvailable
	}
	return ItemStatusBorrowed
}
