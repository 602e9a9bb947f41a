package handlers

import (
	"strconv"

	"saaskit/internal/services"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	service *services.SubscriptionService
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	PlanID string `json:"plan_id" binding:"required,max=100"`
}

// Subscribe 为租户开通订阅
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.Subscribe(uint(id), req.PlanID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "开通订阅失败")
		return
	}

	response.Success(c, tenant)
}

// Cancel 取消租户订阅
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.Cancel(uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "取消订阅失败")
		return
	}

	response.Success(c, tenant)
}
