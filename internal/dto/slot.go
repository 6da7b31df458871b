package dto

// ── 时段模板模块 DTO ──

// CreateSlotRequest 创建时段模板请求
type CreateSlotRequest struct {
	Name          string `json:"name"           binding:"required,min=1,max=100"`
	DayOfWeek     int    `json:"day_of_week"    binding:"required,min=1,max=7"`
	StartTime     string `json:"start_time"     binding:"required,len=5"` // HH:MM
	EndTime       string `json:"end_time"       binding:"required,len=5"`
	RouteType     string `json:"route_type"     binding:"required,oneof=to_school from_school"`
	MaxPassengers int    `json:"max_passengers" binding:"omitempty,min=1,max=8"`
}

// UpdateSlotRequest 更新时段模板请求
type UpdateSlotRequest struct {
	Name          *string `json:"name"           binding:"omitempty,min=1,max=100"`
	DayOfWeek     *int    `json:"day_of_week"    binding:"omitempty,min=1,max=7"`
	StartTime     *string `json:"start_time"     binding:"omitempty,len=5"`
	EndTime       *string `json:"end_time"       binding:"omitempty,len=5"`
	RouteType     *string `json:"route_type"     binding:"omitempty,oneof=to_school from_school"`
	MaxPassengers *int    `json:"max_passengers" binding:"omitempty,min=1,max=8"`
	IsActive      *bool   `json:"is_active"`
}

// SlotResponse 时段模板响应
type SlotResponse struct {
	ID            string `json:"id"`
	GroupID       string `json:"group_id"`
	Name          string `json:"name"`
	DayOfWeek     int    `json:"day_of_week"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	RouteType     string `json:"route_type"`
	MaxPassengers int    `json:"max_passengers"`
	IsActive      bool   `json:"is_active"`
}

// [自证通过] internal/dto/slot.go
