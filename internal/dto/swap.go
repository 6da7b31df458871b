package dto

// ── 换班模块 DTO ──

// CreateSwapRequest 发起换班申请请求
type CreateSwapRequest struct {
	AssignmentID     string  `json:"assignment_id"      binding:"required,uuid"`
	TargetID         *string `json:"target_id"          binding:"omitempty,uuid"` // 为空表示对全组开放
	ProposedDriverID *string `json:"proposed_driver_id" binding:"omitempty,uuid"`
	Reason           string  `json:"reason"             binding:"omitempty,max=500"`
}

// RespondSwapRequest 响应换班申请请求
type RespondSwapRequest struct {
	Accept  bool   `json:"accept"`
	Message string `json:"message" binding:"omitempty,max=500"`
}

// SwapListRequest 换班申请列表查询参数
type SwapListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending accepted declined cancelled auto_accepted"`
	PaginationRequest
}

// SwapResponse 换班申请响应
type SwapResponse struct {
	ID              string              `json:"id"`
	Assignment      *AssignmentResponse `json:"assignment,omitempty"`
	RequesterID     string              `json:"requester_id"`
	RequesterName   string              `json:"requester_name,omitempty"`
	TargetID        *string             `json:"target_id,omitempty"`
	Reason          string              `json:"reason,omitempty"`
	Status          string              `json:"status"`
	AutoAcceptAt    string              `json:"auto_accept_at"`
	RespondedAt     *string             `json:"responded_at,omitempty"`
	ResponderID     *string             `json:"responder_id,omitempty"`
	ResponseMessage string              `json:"response_message,omitempty"`
	CreatedAt       string              `json:"created_at"`
}

// [自证通过] internal/dto/swap.go
