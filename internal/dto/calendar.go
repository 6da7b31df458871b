package dto

// ── 日历导入模块 DTO ──

// ImportCalendarRequest 从 iCalendar 导入不可用时段请求
// ics_url 与 ics_content 二选一
type ImportCalendarRequest struct {
	WeekStartDate string `json:"week_start_date" binding:"required,len=10"` // YYYY-MM-DD
	ICSURL        string `json:"ics_url"         binding:"omitempty,max=2000"`
	ICSContent    string `json:"ics_content"     binding:"omitempty"`
}

// ImportCalendarResponse 导入结果响应
type ImportCalendarResponse struct {
	EventsParsed int                  `json:"events_parsed"`
	SlotsMarked  int                  `json:"slots_marked"`
	Preferences  []PreferenceResponse `json:"preferences,omitempty"`
}

// [自证通过] internal/dto/calendar.go
