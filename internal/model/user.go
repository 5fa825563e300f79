package model

// 用户角色
const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

// User 用户档案表 — 对应 profiles
type User struct {
	ProfileID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"profile_id"`
	FullName     string `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'user'"       json:"role"` // user | staff
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "profiles" }

// IsStaff 是否为管理员工
func (u *User) IsStaff() bool { return u.Role == RoleStaff }
