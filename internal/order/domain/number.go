package domain

import (
	"crypto/rand"
	"math/big"
	"time"
)

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OrderNumberGenerator 生成形如 ORD-20240131-7KQ2XH 的订单号
type OrderNumberGenerator struct {
	prefix string
	now    func() time.Time
}

// NewOrderNumberGenerator 创建订单号生成器
func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	if prefix == "" {
		prefix = "ORD"
	}
	return &OrderNumberGenerator{prefix: prefix, now: time.Now}
}

// Generate 生成订单号，唯一性由存储层的唯一索引保证
func (g *OrderNumberGenerator) Generate() string {
	b := make([]byte, 6)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// 系统熵源不可用时退化为时间戳
			n = big.NewInt(g.now().UnixNano() % int64(len(numberAlphabet)))
		}
		b[i] = numberAlphabet[n.Int64()]
	}
	return g.prefix + "-" + g.now().UTC().Format("20060102") + "-" + string(b)
}
