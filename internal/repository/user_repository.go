package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"passchecker/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// SetTwoFactorSecret stores a new secret and resets the enabled flag to false.
	SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, id uuid.UUID) error
	// DisableTwoFactor clears both the secret and the enabled flag.
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return r.updateTwoFactor(ctx, id, map[string]interface{}{
		"two_factor_secret":  secret,
		"two_factor_enabled": false,
	})
}

func (r *userRepository) EnableTwoFactor(ctx context.Context, id uuid.UUID) error {
	return r.updateTwoFactor(ctx, id, map[string]interface{}{
		"two_factor_enabled": true,
	})
}

func (r *userRepository) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	return r.updateTwoFactor(ctx, id, map[string]interface{}{
		"two_factor_secret":  nil,
		"two_factor_enabled": false,
	})
}

func (r *userRepository) updateTwoFactor(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(values).Error
}
