package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/youngberry1/coindarks-sub001/internal/user/application"
	"github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
	"github.com/youngberry1/coindarks-sub001/pkg/middleware"
)

const callerKey = "caller"

// CallerMiddleware 将 JWT 中的用户 ID 解析为 Caller，需挂在 JWTAuthMiddleware 之后
func CallerMiddleware(svc *application.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.CurrentUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		caller, err := svc.GetCaller(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			logger.Error(c.Request.Context(), "Failed to resolve caller", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CurrentCaller 返回当前请求的调用方
func CurrentCaller(c *gin.Context) (domain.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return domain.Caller{}, false
	}
	caller, ok := v.(domain.Caller)
	return caller, ok
}

// RequireAdmin 仅允许管理员
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok || !caller.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// UserHandler 用户管理 HTTP 处理器
type UserHandler struct {
	svc *application.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(svc *application.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// RegisterAdminRoutes 注册管理员路由，admin 分组需已挂载 RequireAdmin
func (h *UserHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.PUT("/users/:id/kyc", h.ReviewKyc)
}

type reviewKycRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReviewKyc 更新用户 KYC 状态
func (h *UserHandler) ReviewKyc(c *gin.Context) {
	var req reviewKycRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	status := domain.KycStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of PENDING, APPROVED, REJECTED"})
		return
	}

	reviewer, _ := CurrentCaller(c)
	userID := c.Param("id")
	if err := h.svc.ReviewKyc(c.Request.Context(), reviewer, userID, status); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logger.Error(c.Request.Context(), "Failed to review KYC", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": userID, "kyc_status": status})
}
