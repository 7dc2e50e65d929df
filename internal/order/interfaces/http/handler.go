package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/youngberry1/coindarks-sub001/internal/order/application"
	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	ratesdomain "github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	userhttp "github.com/youngberry1/coindarks-sub001/internal/user/interfaces/http"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// OrderHandler 订单 HTTP 处理器
type OrderHandler struct {
	cmd     *application.OrderCommandService
	query   *application.OrderQueryService
	wallets *application.WalletService
}

// NewOrderHandler 创建处理器
func NewOrderHandler(cmd *application.OrderCommandService, query *application.OrderQueryService, wallets *application.WalletService) *OrderHandler {
	return &OrderHandler{cmd: cmd, query: query, wallets: wallets}
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *OrderHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/inventory", h.ListInventory)
}

// RegisterRoutes 注册需登录的路由，create 可单独挂限流中间件
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, create ...gin.HandlerFunc) {
	orders := router.Group("/orders")
	{
		orders.POST("", append(create, h.CreateOrder)...)
		orders.POST("/quote", h.QuoteOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:number", h.GetOrder)
	}
}

// RegisterAdminRoutes 注册管理员路由
func (h *OrderHandler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/wallets", h.ListWallets)
	admin.POST("/wallets", h.CreateWallet)
	admin.PATCH("/wallets/:id", h.UpdateWallet)
	admin.DELETE("/wallets/:id", h.DeleteWallet)
	admin.PUT("/inventory/:asset", h.SetInventory)
}

type createOrderRequest struct {
	Type             string          `json:"type"`
	Asset            string          `json:"asset"`
	AmountInput      decimal.Decimal `json:"amountInput"`
	InputType        string          `json:"inputType"`
	FiatCurrency     string          `json:"fiatCurrency"`
	ReceivingAddress string          `json:"receivingAddress"`
}

func (r createOrderRequest) command() application.CreateOrderCommand {
	return application.CreateOrderCommand{
		Type:             domain.OrderType(r.Type),
		Asset:            r.Asset,
		AmountInput:      r.AmountInput,
		InputType:        domain.InputType(r.InputType),
		FiatCurrency:     r.FiatCurrency,
		ReceivingAddress: r.ReceivingAddress,
	}
}

// AmountsDTO 订单双边金额
type AmountsDTO struct {
	Crypto float64 `json:"crypto"`
	Fiat   float64 `json:"fiat"`
}

func toAmounts(a domain.Amounts) AmountsDTO {
	return AmountsDTO{Crypto: a.Crypto.InexactFloat64(), Fiat: a.Fiat.InexactFloat64()}
}

// CreateOrderResponse 下单成功输出
type CreateOrderResponse struct {
	Success        bool       `json:"success"`
	OrderNumber    string     `json:"orderNumber"`
	OrderID        string     `json:"orderId"`
	DepositAddress string     `json:"depositAddress"`
	Amounts        AmountsDTO `json:"amounts"`
}

// CreateOrder 下单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	caller, ok := userhttp.CurrentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.cmd.CreateOrder(c.Request.Context(), caller, req.command())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateOrderResponse{
		Success:        true,
		OrderNumber:    res.Order.OrderNumber,
		OrderID:        res.Order.ID,
		DepositAddress: res.Order.DepositAddress,
		Amounts:        toAmounts(res.Amounts),
	})
}

// QuoteResponse 报价预览输出
type QuoteResponse struct {
	Asset          string     `json:"asset"`
	FiatCurrency   string     `json:"fiatCurrency"`
	Type           string     `json:"type"`
	EffectiveRate  float64    `json:"effectiveRate"`
	MarginPercent  float64    `json:"marginPercent"`
	FinalRate      float64    `json:"finalRate"`
	Bridged        bool       `json:"bridged"`
	SourcePair     string     `json:"sourcePair"`
	BridgePair     string     `json:"bridgePair,omitempty"`
	DepositAddress string     `json:"depositAddress"`
	Amounts        AmountsDTO `json:"amounts"`
}

// QuoteOrder 报价预览，不创建订单
func (h *OrderHandler) QuoteOrder(c *gin.Context) {
	caller, ok := userhttp.CurrentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	q, err := h.cmd.Quote(c.Request.Context(), caller, req.command())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Asset:          q.Asset,
		FiatCurrency:   q.FiatCurrency,
		Type:           string(q.Type),
		EffectiveRate:  q.Effective.Rate.InexactFloat64(),
		MarginPercent:  q.Effective.MarginPercent.InexactFloat64(),
		FinalRate:      q.FinalRate.InexactFloat64(),
		Bridged:        q.Effective.Bridged,
		SourcePair:     q.Effective.SourcePair,
		BridgePair:     q.Effective.BridgePair,
		DepositAddress: q.DepositAddress,
		Amounts:        toAmounts(q.Amounts),
	})
}

// OrderDTO 订单输出
type OrderDTO struct {
	ID               string  `json:"id"`
	OrderNumber      string  `json:"orderNumber"`
	UserID           string  `json:"userId"`
	Type             string  `json:"type"`
	Asset            string  `json:"asset"`
	FinalRate        float64 `json:"finalRate"`
	AmountCrypto     float64 `json:"amountCrypto"`
	AmountFiat       float64 `json:"amountFiat"`
	FiatCurrency     string  `json:"fiatCurrency"`
	ReceivingAddress string  `json:"receivingAddress"`
	DepositAddress   string  `json:"depositAddress"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"createdAt"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Type:             string(o.Type),
		Asset:            o.Asset,
		FinalRate:        o.FinalRate.InexactFloat64(),
		AmountCrypto:     o.AmountCrypto.InexactFloat64(),
		AmountFiat:       o.AmountFiat.InexactFloat64(),
		FiatCurrency:     o.FiatCurrency,
		ReceivingAddress: o.ReceivingAddress,
		DepositAddress:   o.DepositAddress,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// GetOrder 查询单个订单
func (h *OrderHandler) GetOrder(c *gin.Context) {
	caller, ok := userhttp.CurrentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	o, err := h.query.GetOrder(c.Request.Context(), caller, c.Param("number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(o))
}

// ListOrders 查询订单列表
func (h *OrderHandler) ListOrders(c *gin.Context) {
	caller, ok := userhttp.CurrentCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	page, err := h.query.ListOrders(c.Request.Context(), caller, application.ListOrdersQuery{
		Status: domain.OrderStatus(strings.ToUpper(c.Query("status"))),
		Limit:  limit,
		Offset: offset,
		All:    c.Query("all") == "true",
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]OrderDTO, 0, len(page.Orders))
	for _, o := range page.Orders {
		out = append(out, toOrderDTO(o))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": out,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// writeError 将领域错误映射为状态码，内部错误不向外暴露原因
func (h *OrderHandler) writeError(c *gin.Context, err error) {
	var (
		kyc         *domain.KycRequiredError
		minimum     *domain.MinimumOrderError
		noRate      *ratesdomain.NoRateError
		unavailable *domain.RateUnavailableError
		noDest      *domain.NoDestinationError
		invalid     *domain.InvalidOrderError
		creation    *domain.OrderCreationError
	)

	switch {
	case errors.As(err, &kyc):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &invalid), errors.As(err, &minimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &noRate), errors.As(err, &unavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &noDest):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		// 未归类的错误按下单失败处理
		if !errors.As(err, &creation) {
			creation = &domain.OrderCreationError{Cause: err}
		}
		logger.Error(c.Request.Context(), "Order request failed", "error", creation.Cause)
		c.JSON(http.StatusInternalServerError, gin.H{"error": creation.Error()})
	}
}
