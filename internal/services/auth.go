package services

import (
	"context"
	"strings"

	"saaskit/internal/models"
	"saaskit/internal/tenantctx"
	apperrors "saaskit/pkg/errors"
	"saaskit/pkg/jwt"
	"saaskit/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuthService 认证编排服务
// 组合令牌编解码、刷新令牌存储和租户目录，实现注册/登录/刷新/登出
// 每个操作要么完整生效，要么完整回滚
type AuthService struct {
	db            *gorm.DB
	tenants       *TenantService
	users         *UserService
	refreshTokens *RefreshTokenService
	jwtManager    *jwt.JWTManager
	events        *AuthEventService // 可为nil
}

func NewAuthService(db *gorm.DB, tenants *TenantService, users *UserService,
	refreshTokens *RefreshTokenService, jwtManager *jwt.JWTManager, events *AuthEventService) *AuthService {
	return &AuthService{
		db:            db,
		tenants:       tenants,
		users:         users,
		refreshTokens: refreshTokens,
		jwtManager:    jwtManager,
		events:        events,
	}
}

// SignupRequest 注册请求
type SignupRequest struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	TenantID   string // 可选，为空时自动生成新租户
	TenantName string // 可选
}

// OAuthIdentity 外部身份层已验证的身份
// 调用方必须已向提供方完成验证，本服务直接信任这些属性
type OAuthIdentity struct {
	Email    string
	Name     string
	Provider string
	Subject  string // 提供方侧的用户标识
}

// AuthResponse 认证结果
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Roles        []string `json:"roles"`
}

// Signup 注册
// 邮箱已注册返回 ErrEmailExists；指定租户标识时复用或创建该租户，
// 否则生成短随机标识并创建全新租户；新用户角色为USER
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest, clientIP string) (*AuthResponse, error) {
	if err := s.users.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	var resp *AuthResponse
	var tenant *models.Tenant
	var tenantCreated bool
	var user *models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("LOWER(email) = LOWER(?)", req.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrEmailExists
		}

		var err error
		tenant, tenantCreated, err = s.resolveOrCreateTenant(tx, req.TenantID, req.TenantName)
		if err != nil {
			return err
		}

		user = &models.User{
			Email:         req.Email,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			TenantID:      tenant.ID,
			Roles:         datatypes.JSONSlice[models.Role]{models.RoleUser},
			Active:        true,
			EmailVerified: false,
		}
		if err := user.SetPassword(req.Password); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 新租户的schema预配在事务提交后执行（DDL加迁移，失败可重放）
	if tenantCreated && s.tenants.router != nil {
		if err := s.tenants.Provision(tenant.SchemaName); err != nil {
			logger.GetLogger().Errorf("租户 %s schema预配失败: %v", tenant.TenantID, err)
		}
	}
	s.tenants.invalidate(ctx, tenant.TenantID)

	ctx = tenantctx.Bind(ctx, tenant.TenantID, tenant.ID)
	s.events.Record(ctx, user.ID, user.Email, models.AuthActionSignup, clientIP)

	return resp, nil
}

// Login 登录
// 邮箱不存在与密码错误对调用方不可区分，统一返回 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.users.IsActive(user) {
		return nil, apperrors.ErrAccountInactive
	}

	ctx = s.bindTenant(ctx, user)

	var resp *AuthResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, user.ID, user.Email, models.AuthActionLogin, clientIP)
	return resp, nil
}

// Refresh 刷新令牌
// 校验顺序：已撤销 -> 已过期 -> 用户停用；
// 新令牌对签发即令旧令牌失效（轮换），而非等待其自然过期
func (s *AuthService) Refresh(ctx context.Context, tokenString, clientIP string) (*AuthResponse, error) {
	rt, err := s.refreshTokens.Lookup(tokenString)
	if err != nil {
		return nil, err
	}

	if rt.Revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if rt.IsExpired() {
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.users.GetByID(rt.UserID)
	if err != nil {
		return nil, err
	}
	if !s.users.IsActive(user) {
		return nil, apperrors.ErrAccountInactive
	}

	ctx = s.bindTenant(ctx, user)

	var resp *AuthResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, user.ID, user.Email, models.AuthActionRefresh, clientIP)
	return resp, nil
}

// Logout 登出
// 撤销指定刷新令牌；令牌不存在也视为成功（幂等）
func (s *AuthService) Logout(ctx context.Context, tokenString, clientIP string) error {
	rt, err := s.refreshTokens.Lookup(tokenString)
	if err != nil {
		// 不存在的令牌直接成功
		return nil
	}

	if err := s.refreshTokens.Revoke(tokenString); err != nil {
		logger.GetLogger().Errorf("撤销刷新令牌失败: %v", err)
		return nil
	}

	// 利用令牌上冗余的租户ID绑定上下文记录审计
	if tenant, terr := s.tenants.GetByID(rt.TenantID); terr == nil {
		ctx = tenantctx.Bind(ctx, tenant.TenantID, tenant.ID)
		s.events.Record(ctx, rt.UserID, "", models.AuthActionLogout, clientIP)
	}

	return nil
}

// OAuthLogin 外部身份提供方登录
// 优先按(provider, subject)匹配，其次按邮箱；无匹配则创建新用户
// （邮箱已验证、无本地密码）；匹配用户的subject变化时更新并标记已验证
func (s *AuthService) OAuthLogin(ctx context.Context, identity *OAuthIdentity, clientIP string) (*AuthResponse, error) {
	if strings.TrimSpace(identity.Email) == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByOAuth(identity.Provider, identity.Subject)
	if err != nil && !apperrors.Is(err, apperrors.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || err != nil {
		user, err = s.users.GetByEmail(identity.Email)
		if err != nil && !apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
	}

	if user == nil || err != nil {
		user, err = s.createUserFromOAuth(ctx, identity)
		if err != nil {
			return nil, err
		}
	} else if user.OAuthID == nil || *user.OAuthID != identity.Subject {
		user.OAuthProvider = &identity.Provider
		subject := identity.Subject
		user.OAuthID = &subject
		user.EmailVerified = true
		if err := s.db.Save(user).Error; err != nil {
			return nil, err
		}
	}

	if !s.users.IsActive(user) {
		return nil, apperrors.ErrAccountInactive
	}

	ctx = s.bindTenant(ctx, user)

	var resp *AuthResponse
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = s.issueTokens(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, user.ID, user.Email, models.AuthActionOAuthLogin, clientIP)
	return resp, nil
}

// ========== 内部方法 ==========

// resolveOrCreateTenant 解析或创建租户
// 显式指定标识时先尝试复用，不存在则按该标识创建；
// 未指定时生成8位随机标识创建全新租户
func (s *AuthService) resolveOrCreateTenant(tx *gorm.DB, tenantID, tenantName string) (*models.Tenant, bool, error) {
	if tenantID != "" {
		identifier := NormalizeTenantID(tenantID)

		var tenant models.Tenant
		err := tx.Where("tenant_id = ? AND active = ? AND deleted = ?", identifier, true, false).
			First(&tenant).Error
		if err == nil {
			return &tenant, false, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, false, err
		}

		name := tenantName
		if name == "" {
			name = identifier
		}
		created, err := s.tenants.createIn(tx, identifier, name, nil)
		return created, err == nil, err
	}

	identifier := synthesizeTenantID()
	name := tenantName
	if name == "" {
		name = "默认组织"
	}
	created, err := s.tenants.createIn(tx, identifier, name, nil)
	return created, err == nil, err
}

// synthesizeTenantID 生成8位短随机租户标识
func synthesizeTenantID() string {
	return uuid.New().String()[:8]
}

// createUserFromOAuth 按OAuth身份创建用户，邮箱视为已验证，不设置本地密码
func (s *AuthService) createUserFromOAuth(ctx context.Context, identity *OAuthIdentity) (*models.User, error) {
	firstName, lastName := splitName(identity.Name)

	var user *models.User
	var tenant *models.Tenant
	var tenantCreated bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tenant, tenantCreated, err = s.oauthTenant(ctx, tx)
		if err != nil {
			return err
		}

		provider := identity.Provider
		subject := identity.Subject
		user = &models.User{
			Email:         identity.Email,
			FirstName:     firstName,
			LastName:      lastName,
			TenantID:      tenant.ID,
			Roles:         datatypes.JSONSlice[models.Role]{models.RoleUser},
			Active:        true,
			EmailVerified: true,
			OAuthProvider: &provider,
			OAuthID:       &subject,
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}

	if tenantCreated && s.tenants.router != nil {
		if err := s.tenants.Provision(tenant.SchemaName); err != nil {
			logger.GetLogger().Errorf("租户 %s schema预配失败: %v", tenant.TenantID, err)
		}
	}

	return user, nil
}

// oauthTenant OAuth引导：优先使用请求已绑定的租户，否则创建新租户
func (s *AuthService) oauthTenant(ctx context.Context, tx *gorm.DB) (*models.Tenant, bool, error) {
	if info, ok := tenantctx.Current(ctx); ok {
		var tenant models.Tenant
		if err := tx.First(&tenant, info.TenantDBID).Error; err == nil {
			return &tenant, false, nil
		}
	}

	created, err := s.tenants.createIn(tx, synthesizeTenantID(), "默认组织", nil)
	return created, err == nil, err
}

// issueTokens 签发访问+刷新令牌对，刷新令牌写入存储并轮换旧令牌
func (s *AuthService) issueTokens(tx *gorm.DB, user *models.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.Email, user.ID, user.TenantID, user.RoleNames())
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.Email, user.ID, user.TenantID)
	if err != nil {
		return nil, err
	}

	if _, err := s.refreshTokens.IssueFor(tx, user, refreshToken); err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Roles:        user.RoleNames(),
	}, nil
}

// bindTenant 将用户所属租户绑定到请求上下文
func (s *AuthService) bindTenant(ctx context.Context, user *models.User) context.Context {
	tenant, err := s.tenants.GetByID(user.TenantID)
	if err != nil {
		logger.GetLogger().Warnf("绑定租户上下文失败: %v", err)
		return ctx
	}
	return tenantctx.Bind(ctx, tenant.TenantID, tenant.ID)
}

// splitName 拆分显示名为姓和名
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
