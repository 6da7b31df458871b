package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// WeekHandler 接送周模块 HTTP 处理器
type WeekHandler struct {
	weekSvc service.WeekService
}

// NewWeekHandler 创建 WeekHandler
func NewWeekHandler(weekSvc service.WeekService) *WeekHandler {
	return &WeekHandler{weekSvc: weekSvc}
}

// Create 开启接送周（组管理员）
// POST /api/v1/groups/:id/weeks
func (h *WeekHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.CreateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13101, "参数校验失败")
		return
	}

	result, err := h.weekSvc.Create(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		h.handleWeekError(c, err)
		return
	}

	response.Created(c, result)
}

// Get 查询某周详情
// GET /api/v1/groups/:id/weeks/:weekStart
func (h *WeekHandler) Get(c *gin.Context) {
	result, err := h.weekSvc.GetByGroupAndStart(c.Request.Context(), c.Param("id"), c.Param("weekStart"))
	if err != nil {
		h.handleWeekError(c, err)
		return
	}

	response.OK(c, result)
}

// List 接送周列表
// GET /api/v1/groups/:id/weeks
func (h *WeekHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13101, "参数校验失败")
		return
	}

	list, total, err := h.weekSvc.ListByGroup(c.Request.Context(), c.Param("id"), req.GetPage(), req.GetPageSize())
	if err != nil {
		h.handleWeekError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Advance 推进周阶段（组管理员；仅允许按序 +1 迁移）
// PATCH /api/v1/groups/:id/weeks/:weekStart/phase
func (h *WeekHandler) Advance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.AdvanceWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13101, "参数校验失败")
		return
	}

	// 路由以周开始日期定位，先解析出周 ID
	week, err := h.weekSvc.GetByGroupAndStart(c.Request.Context(), c.Param("id"), c.Param("weekStart"))
	if err != nil {
		h.handleWeekError(c, err)
		return
	}

	result, err := h.weekSvc.Advance(c.Request.Context(), c.Param("id"), week.ID, &req, userID, role)
	if err != nil {
		h.handleWeekError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *WeekHandler) handleWeekError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 12002, service.ErrGroupNotFound.Error())
	case errors.Is(err, service.ErrNotGroupAdmin):
		response.Forbidden(c, 12004, service.ErrNotGroupAdmin.Error())
	case errors.Is(err, service.ErrWeekNotFound):
		response.NotFound(c, 13102, service.ErrWeekNotFound.Error())
	case errors.Is(err, service.ErrWeekDateInvalid):
		response.BadRequest(c, 13103, service.ErrWeekDateInvalid.Error())
	case errors.Is(err, service.ErrWeekExists):
		response.Conflict(c, 13104, service.ErrWeekExists.Error())
	case errors.Is(err, service.ErrPhaseTransition):
		response.Conflict(c, 13105, service.ErrPhaseTransition.Error())
	case errors.Is(err, service.ErrSwapsDeadlineMissing):
		response.BadRequest(c, 13106, service.ErrSwapsDeadlineMissing.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/week_handler.go
