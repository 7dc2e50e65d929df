// Package domain 包含用户身份与 KYC 状态的领域模型
package domain

import (
	"context"
	"errors"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// KycStatus KYC 审核状态
type KycStatus string

const (
	KycPending  KycStatus = "PENDING"
	KycApproved KycStatus = "APPROVED"
	KycRejected KycStatus = "REJECTED"
)

// Valid 是否为已知状态
func (s KycStatus) Valid() bool {
	switch s {
	case KycPending, KycApproved, KycRejected:
		return true
	}
	return false
}

// ErrUserNotFound 用户不存在
var ErrUserNotFound = errors.New("user not found")

// User 用户实体，身份由外部提供方签发，这里只保存交易相关属性
type User struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"column:role;type:varchar(16);not null;default:USER" json:"role"`
	KycStatus KycStatus `gorm:"column:kyc_status;type:varchar(16);not null;default:PENDING" json:"kyc_status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Caller 请求发起方，显式传入每次守卫检查
type Caller struct {
	UserID    string
	Role      Role
	KycStatus KycStatus
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanTrade KYC 已通过或管理员
func (c Caller) CanTrade() bool {
	return c.KycStatus == KycApproved || c.IsAdmin()
}

// Caller 由用户记录构造调用方
func (u *User) Caller() Caller {
	return Caller{UserID: u.ID, Role: u.Role, KycStatus: u.KycStatus}
}

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// GetByID 不存在时返回 ErrUserNotFound
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateKycStatus(ctx context.Context, id string, status KycStatus) error
}
