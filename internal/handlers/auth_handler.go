package handlers

import (
	"saaskit/internal/services"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type SignupRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8,max=100"`
	FirstName  string `json:"first_name" binding:"max=100"`
	LastName   string `json:"last_name" binding:"max=100"`
	TenantID   string `json:"tenant_id" binding:"omitempty,tenantid"`
	TenantName string `json:"tenant_name" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type OAuthLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=200"`
	Provider string `json:"provider" binding:"required,max=50"`
	Subject  string `json:"subject" binding:"required,max=200"`
}

// Signup 用户注册
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &services.SignupRequest{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		TenantID:   req.TenantID,
		TenantName: req.TenantName,
	}, c.ClientIP())
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrEmailExists):
			response.Conflict(c, err.Error())
		case apperrors.Is(err, apperrors.ErrTenantConflict):
			response.Conflict(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}

	response.Success(c, resp)
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrInvalidCredentials):
			response.Unauthorized(c, err.Error())
		case apperrors.Is(err, apperrors.ErrAccountInactive):
			response.Forbidden(c, err.Error())
		default:
			response.ServerError(c, "登录失败")
		}
		return
	}

	response.Success(c, resp)
}

// Refresh 刷新令牌
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrTokenNotFound),
			apperrors.Is(err, apperrors.ErrTokenRevoked),
			apperrors.Is(err, apperrors.ErrTokenExpired):
			response.Unauthorized(c, err.Error())
		case apperrors.Is(err, apperrors.ErrAccountInactive):
			response.Forbidden(c, err.Error())
		case apperrors.Is(err, apperrors.ErrUserNotFound):
			response.Unauthorized(c, "用户不存在")
		default:
			response.ServerError(c, "刷新令牌失败")
		}
		return
	}

	response.Success(c, resp)
}

// Logout 用户登出
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 没有有效令牌也算登出成功
		response.SuccessWithMessage(c, "登出成功", nil)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken, c.ClientIP()); err != nil {
		response.ServerError(c, "登出失败")
		return
	}

	response.SuccessWithMessage(c, "登出成功", nil)
}

// OAuthLogin 外部身份提供方登录
// 请求方必须已完成与提供方的验证流程
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req OAuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.authService.OAuthLogin(c.Request.Context(), &services.OAuthIdentity{
		Email:    req.Email,
		Name:     req.Name,
		Provider: req.Provider,
		Subject:  req.Subject,
	}, c.ClientIP())
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrInvalidCredentials):
			response.Unauthorized(c, err.Error())
		case apperrors.Is(err, apperrors.ErrAccountInactive):
			response.Forbidden(c, err.Error())
		default:
			response.ServerError(c, "登录失败")
		}
		return
	}

	response.Success(c, resp)
}
