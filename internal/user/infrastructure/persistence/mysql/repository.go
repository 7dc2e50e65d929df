package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"gorm.io/gorm"
)

type userRepository struct{ db *gorm.DB }

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdateKycStatus(ctx context.Context, id string, status domain.KycStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("kyc_status", status)
	if res.Error != nil {
		return fmt.Errorf("update kyc status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 对未变化的行返回 0，需再确认是否存在
	_, err := r.GetByID(ctx, id)
	return err
}
