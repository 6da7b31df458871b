package dto

// ── 公平性模块 DTO ──

// FairnessRequest 公平性报告查询参数
type FairnessRequest struct {
	Weeks int `form:"weeks" binding:"omitempty,min=1,max=52"` // 统计窗口（周数），默认 8
}

// DriverLoadResponse 单个司机的负载统计
type DriverLoadResponse struct {
	DriverID      string  `json:"driver_id"`
	DriverName    string  `json:"driver_name"`
	TripCount     int     `json:"trip_count"`
	ExpectedTrips float64 `json:"expected_trips"` // 均摊期望趟数 = 总趟数/活跃司机数
	FairnessScore float64 `json:"fairness_score"` // 实际/期望，1 为正好均摊
	Share         float64 `json:"share"`          // 占全组趟数比例
}

// FairnessReportResponse 公平性报告响应
type FairnessReportResponse struct {
	GroupID       string               `json:"group_id"`
	WindowWeeks   int                  `json:"window_weeks"`
	TotalTrips    int                  `json:"total_trips"`
	ActiveDrivers int                  `json:"active_drivers"`
	FairnessScore float64              `json:"fairness_score"` // 1 为完全均衡
	CV            float64              `json:"cv"`             // 变异系数 = 标准差/均值
	Loads         []DriverLoadResponse `json:"loads"`
}

// FairnessTrendPoint 趋势图单点（无任务的周不出现在序列中）
type FairnessTrendPoint struct {
	WeekStartDate string  `json:"week_start_date"`
	FairnessScore float64 `json:"fairness_score"`
	TotalTrips    int     `json:"total_trips"`
}

// FairnessTrendResponse 公平性趋势响应
type FairnessTrendResponse struct {
	GroupID     string               `json:"group_id"`
	WindowWeeks int                  `json:"window_weeks"`
	Points      []FairnessTrendPoint `json:"points"`
}

// FairnessRecommendation 调度建议（仅供参考，不构成约束）
type FairnessRecommendation struct {
	Type       string `json:"type"` // over_driving | under_driving | needs_attention | need_more_drivers | all_good
	DriverID   string `json:"driver_id,omitempty"`
	DriverName string `json:"driver_name,omitempty"`
	Message    string `json:"message"`
}

// RecommendationsResponse 调度建议响应
type RecommendationsResponse struct {
	GroupID         string                   `json:"group_id"`
	FairnessScore   float64                  `json:"fairness_score"`
	Recommendations []FairnessRecommendation `json:"recommendations"`
}

// [自证通过] internal/dto/fairness.go
