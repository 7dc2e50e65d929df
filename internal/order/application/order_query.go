package application

import (
	"context"

	"github.com/youngberry1/coindarks-sub001/internal/order/domain"
	userdomain "github.com/youngberry1/coindarks-sub001/internal/user/domain"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListOrdersQuery 订单列表查询
type ListOrdersQuery struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
	// 仅管理员可用，查询全部用户
	All bool
}

// OrderPage 分页结果
type OrderPage struct {
	Orders []*domain.Order
	Total  int64
	Limit  int
	Offset int
}

// OrderQueryService 订单查询
type OrderQueryService struct {
	repo domain.OrderRepository
}

// NewOrderQueryService 创建订单查询服务
func NewOrderQueryService(repo domain.OrderRepository) *OrderQueryService {
	return &OrderQueryService{repo: repo}
}

// GetOrder 非本人且非管理员时视为不存在
func (s *OrderQueryService) GetOrder(ctx context.Context, caller userdomain.Caller, orderNumber string) (*domain.Order, error) {
	o, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListOrders 列出订单，新订单在前
func (s *OrderQueryService) ListOrders(ctx context.Context, caller userdomain.Caller, q ListOrdersQuery) (*OrderPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, &domain.InvalidOrderError{Field: "status", Reason: "unknown status"}
	}

	filter := domain.OrderFilter{
		UserID: caller.UserID,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.All && caller.IsAdmin() {
		filter.UserID = ""
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}
