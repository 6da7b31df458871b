package dto

// ── 排班模块 DTO ──

// PlanWeekRequest 生成周排班请求
type PlanWeekRequest struct {
	WeekStartDate string `json:"week_start_date" binding:"required,len=10"` // YYYY-MM-DD
}

// AssignmentResponse 接送任务响应
type AssignmentResponse struct {
	ID               string       `json:"id"`
	GroupID          string       `json:"group_id"`
	TemplateSlot     *SlotBrief   `json:"template_slot,omitempty"`
	Driver           *DriverBrief `json:"driver,omitempty"`
	WeekStartDate    string       `json:"week_start_date"`
	Date             string       `json:"date"`
	Passengers       []string     `json:"passengers,omitempty"`
	AssignmentMethod string       `json:"assignment_method"`
	Status           string       `json:"status"`
	Notes            string       `json:"notes,omitempty"`
}

// UnassignedSlotResponse 未能分配的时段
type UnassignedSlotResponse struct {
	TemplateSlotID string `json:"template_slot_id"`
	SlotName       string `json:"slot_name"`
	Date           string `json:"date"`
	Reason         string `json:"reason"`
}

// PlanWeekResponse 周排班结果响应
type PlanWeekResponse struct {
	PlanRunID   string                   `json:"plan_run_id"`
	TotalSlots  int                      `json:"total_slots"`
	FilledSlots int                      `json:"filled_slots"`
	Assignments []AssignmentResponse     `json:"assignments"`
	Unassigned  []UnassignedSlotResponse `json:"unassigned,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Trace       []string                 `json:"trace,omitempty"` // 各阶段分配摘要
}

// AssignmentChangeLogResponse 任务变更记录响应
type AssignmentChangeLogResponse struct {
	ID               string `json:"id"`
	AssignmentID     string `json:"assignment_id"`
	OriginalDriverID string `json:"original_driver_id"`
	NewDriverID      string `json:"new_driver_id"`
	ChangeType       string `json:"change_type"`
	Reason           string `json:"reason,omitempty"`
	OperatorID       string `json:"operator_id"`
	CreatedAt        string `json:"created_at"`
}

// [自证通过] internal/dto/planning.go
