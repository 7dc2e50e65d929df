// Package application 用户应用服务：解析调用方身份与 KYC 审核
package application

import (
	"context"
	"fmt"

	"github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"github.com/youngberry1/coindarks-sub001/pkg/logger"
)

// UserService 用户应用服务
type UserService struct {
	repo domain.UserRepository
}

// NewUserService 创建用户应用服务
func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetCaller 根据已认证的用户 ID 构造调用方
func (s *UserService) GetCaller(ctx context.Context, userID string) (domain.Caller, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.Caller{}, err
	}
	return u.Caller(), nil
}

// GetUser 获取用户
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// EmailOf 通知收件地址
func (s *UserService) EmailOf(ctx context.Context, userID string) (string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// ReviewKyc 管理员更新 KYC 状态
func (s *UserService) ReviewKyc(ctx context.Context, reviewer domain.Caller, userID string, status domain.KycStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid kyc status %q", status)
	}
	if err := s.repo.UpdateKycStatus(ctx, userID, status); err != nil {
		return err
	}
	logger.Info(ctx, "KYC status updated", "user_id", userID, "status", status, "reviewer", reviewer.UserID)
	return nil
}
