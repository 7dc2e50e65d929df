package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/youngberry1/coindarks-sub001/internal/notification/application"
	userhttp "github.com/youngberry1/coindarks-sub001/internal/user/interfaces/http"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// NotificationHandler 通知 HTTP 处理器
type NotificationHandler struct {
	app *application.NotificationService
}

// NewNotificationHandler 创建 HTTP 处理器实例
func NewNotificationHandler(app *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{app: app}
}

// RegisterRoutes 注册需登录的路由
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/notifications", h.GetNotificationHistory)
}

// GetNotificationHistory 当前用户的通知历史
func (h *NotificationHandler) GetNotificationHistory(c *gin.Context) {
	caller, ok := userhttp.CurrentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	items, total, err := h.app.ListNotifications(c.Request.Context(), caller.UserID, limit, offset)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list notifications", "user_id", caller.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "total": total})
}
