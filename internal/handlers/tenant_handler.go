package handlers

import (
	"strconv"
	"strings"

	"saaskit/internal/services"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/pagination"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateTenantRequest 请求结构体
type CreateTenantRequest struct {
	TenantID string  `json:"tenant_id" binding:"required,tenantid"`
	Name     string  `json:"name" binding:"required,max=100"`
	Domain   *string `json:"domain" binding:"omitempty,fqdn"`
}

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{
		service: service,
	}
}

// Create 创建租户
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.Create(c.Request.Context(), req.TenantID, req.Name, req.Domain)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantConflict) {
			response.Conflict(c, "租户标识已存在")
			return
		}

		// 验证错误 -> 400
		errMsg := err.Error()
		if strings.Contains(errMsg, "租户标识") || strings.Contains(errMsg, "租户名称长度") {
			response.BadRequest(c, errMsg)
			return
		}

		response.ServerError(c, "创建失败")
		return
	}

	response.Success(c, tenant)
}

// GetByID 获取租户
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.GetByID(uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tenant)
}

// Resolve 按外部标识解析租户
func (h *TenantHandler) Resolve(c *gin.Context) {
	identifier := c.Param("identifier")

	tenant, err := h.service.Resolve(c.Request.Context(), identifier)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tenant)
}

// GetAll 分页查询租户列表
func (h *TenantHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)

	// 支持按激活状态筛选、关键词搜索
	activeOnly := c.Query("active") == "true"
	keyword := c.Query("keyword")

	tenants, total, err := h.service.GetWithFiltersAndPage(keyword, activeOnly, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, tenants, pageInfo)
}

// Deactivate 停用租户
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.Deactivate(c.Request.Context(), uint(id))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrTenantNotFound) {
			response.NotFound(c, "租户不存在")
			return
		}
		response.ServerError(c, "停用失败")
		return
	}

	response.Success(c, tenant)
}

// GetStats 租户统计
func (h *TenantHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats()
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, stats)
}
