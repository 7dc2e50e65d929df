package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/youngberry1/coindarks-sub001/internal/order/application"
	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

type createWalletRequest struct {
	Chain    string  `json:"chain"`
	Currency string  `json:"currency" binding:"required"`
	Address  string  `json:"address" binding:"required"`
	Label    *string `json:"label"`
	IsActive *bool   `json:"is_active"`
}

type updateWalletRequest struct {
	Address  *string `json:"address"`
	Label    *string `json:"label"`
	IsActive *bool   `json:"is_active"`
}

type inventoryRequest struct {
	BuyEnabled  bool `json:"buy_enabled"`
	SellEnabled bool `json:"sell_enabled"`
}

// ListWallets 全部平台地址
func (h *OrderHandler) ListWallets(c *gin.Context) {
	wallets, err := h.wallets.ListWallets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// CreateWallet 新增平台地址，默认启用
func (h *OrderHandler) CreateWallet(c *gin.Context) {
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	w, err := h.wallets.CreateWallet(c.Request.Context(), application.CreateWalletCommand{
		Chain:    req.Chain,
		Currency: req.Currency,
		Address:  req.Address,
		Label:    req.Label,
		IsActive: active,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// UpdateWallet 修改平台地址
func (h *OrderHandler) UpdateWallet(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}

	var req updateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	w, err := h.wallets.UpdateWallet(c.Request.Context(), id, application.UpdateWalletCommand{
		Address:  req.Address,
		Label:    req.Label,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// DeleteWallet 删除平台地址
func (h *OrderHandler) DeleteWallet(c *gin.Context) {
	id, ok := walletID(c)
	if !ok {
		return
	}
	if err := h.wallets.DeleteWallet(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListInventory 资产买卖开关
func (h *OrderHandler) ListInventory(c *gin.Context) {
	items, err := h.wallets.ListInventory(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list inventory", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// SetInventory 设置资产买卖开关
func (h *OrderHandler) SetInventory(c *gin.Context) {
	var req inventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	inv, err := h.wallets.SetInventory(c.Request.Context(), c.Param("asset"), req.BuyEnabled, req.SellEnabled)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func walletID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet id"})
		return 0, false
	}
	return uint(id), true
}
