package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/rates/application"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// RateHandler 汇率 HTTP 处理器
type RateHandler struct {
	resolver *application.RateResolver
	cmd      *application.RateCommandService
}

// NewRateHandler 创建处理器
func NewRateHandler(resolver *application.RateResolver, cmd *application.RateCommandService) *RateHandler {
	return &RateHandler{resolver: resolver, cmd: cmd}
}

// RegisterRoutes 注册公开路由
func (h *RateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rates", h.ListRates)
}

// RegisterAdminRoutes 注册管理员路由
func (h *RateHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.PUT("/rates/:pair", h.UpsertRate)
	admin.DELETE("/rates/:pair", h.DeleteRate)
}

// RateDTO 汇率查询输出
type RateDTO struct {
	Pair              string   `json:"pair"`
	Rate              float64  `json:"rate"`
	ManualRate        *float64 `json:"manual_rate"`
	MarginPercent     float64  `json:"margin_percent"`
	BuyMarginPercent  float64  `json:"buy_margin_percent"`
	SellMarginPercent float64  `json:"sell_margin_percent"`
	IsAutomated       bool     `json:"is_automated"`
	DisplayRate       float64  `json:"display_rate"`
}

func toDTO(q domain.RateQuote) RateDTO {
	dto := RateDTO{
		Pair:              q.Pair,
		Rate:              q.Rate.InexactFloat64(),
		MarginPercent:     q.MarginPercent.InexactFloat64(),
		BuyMarginPercent:  q.BuyMarginPercent.InexactFloat64(),
		SellMarginPercent: q.SellMarginPercent.InexactFloat64(),
		IsAutomated:       q.IsAutomated,
		DisplayRate:       q.DisplayRate.InexactFloat64(),
	}
	if q.ManualRate.Valid {
		v := q.ManualRate.Decimal.InexactFloat64()
		dto.ManualRate = &v
	}
	return dto
}

// ListRates 返回全部交易对报价
func (h *RateHandler) ListRates(c *gin.Context) {
	quotes, err := h.resolver.LoadRates(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to load rates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rates"})
		return
	}

	out := make([]RateDTO, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toDTO(q))
	}
	c.JSON(http.StatusOK, out)
}

type upsertRateRequest struct {
	Rate              decimal.Decimal     `json:"rate"`
	ManualRate        decimal.NullDecimal `json:"manual_rate"`
	MarginPercent     decimal.Decimal     `json:"margin_percent"`
	BuyMarginPercent  decimal.NullDecimal `json:"buy_margin_percent"`
	SellMarginPercent decimal.NullDecimal `json:"sell_margin_percent"`
	IsAutomated       bool                `json:"is_automated"`
}

// UpsertRate 新增或更新交易对
func (h *RateHandler) UpsertRate(c *gin.Context) {
	var req upsertRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tp, err := h.cmd.UpsertPair(c.Request.Context(), application.UpsertPairCommand{
		Pair:              c.Param("pair"),
		Rate:              req.Rate,
		ManualRate:        req.ManualRate,
		MarginPercent:     req.MarginPercent,
		BuyMarginPercent:  req.BuyMarginPercent,
		SellMarginPercent: req.SellMarginPercent,
		IsAutomated:       req.IsAutomated,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toDTO(domain.NewRateQuote(tp, tp.FallbackRate(), false)))
}

// DeleteRate 删除交易对
func (h *RateHandler) DeleteRate(c *gin.Context) {
	pair := c.Param("pair")
	if err := h.cmd.DeletePair(c.Request.Context(), pair); err != nil {
		if errors.Is(err, domain.ErrPairNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trading pair not found"})
			return
		}
		logger.Error(c.Request.Context(), "Failed to delete pair", "pair", pair, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
