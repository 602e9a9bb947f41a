package handlers

import (
	"strconv"

	"saaskit/internal/models"
	"saaskit/internal/services"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/pagination"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// RoleRequest 角色授予/撤销请求
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GetByID 获取用户
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.GetByID(uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, user)
}

// GetAll 分页查询用户列表
func (h *UserHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	keyword := c.Query("keyword")

	var tenantID *uint
	if raw := c.Query("tenant_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "租户ID格式错误")
			return
		}
		id := uint(parsed)
		tenantID = &id
	}

	users, total, err := h.service.GetWithFiltersAndPage(tenantID, keyword, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, users, pageInfo)
}

// Me 获取当前登录用户信息
func (h *UserHandler) Me(c *gin.Context) {
	current, exists := c.Get("user")
	if !exists {
		response.Unauthorized(c, "未登录")
		return
	}

	response.Success(c, current)
}

// Activate 激活用户
func (h *UserHandler) Activate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.Activate(uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.ServerError(c, "激活失败")
		return
	}

	response.Success(c, user)
}

// Deactivate 停用用户
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.Deactivate(uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.ServerError(c, "停用失败")
		return
	}

	response.Success(c, user)
}

// Delete 软删除用户
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(uint(id)); err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.ServerError(c, "删除失败")
		return
	}

	response.Success(c, nil)
}

// GrantRole 授予角色
func (h *UserHandler) GrantRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	operator := c.MustGet("user").(*models.User)
	user, err := h.service.GrantRole(operator, uint(id), role)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.Forbidden(c, err.Error())
		return
	}

	response.Success(c, user)
}

// RevokeRole 撤销角色
func (h *UserHandler) RevokeRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	operator := c.MustGet("user").(*models.User)
	user, err := h.service.RevokeRole(operator, uint(id), role)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			response.NotFound(c, "用户不存在")
			return
		}
		response.Forbidden(c, err.Error())
		return
	}

	response.Success(c, user)
}

// GetStats 用户统计
func (h *UserHandler) GetStats(c *gin.Context) {
	var tenantID *uint
	if raw := c.Query("tenant_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "租户ID格式错误")
			return
		}
		id := uint(parsed)
		tenantID = &id
	}

	stats, err := h.service.GetStats(tenantID)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, stats)
}
