package gormstore

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/repository"
	"github.com/turtacn/perimeter/pkg/errors"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a gorm-backed repository.UserRepository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.id") }).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound.WithMessage("user not found")
		}
		return nil, errors.ErrServiceUnavailable.WithMessage("user lookup failed").WithCause(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles := make([]models.Role, 0, len(user.Roles))
		for _, role := range user.Roles {
			stored := models.Role{Name: role.Name}
			if err := tx.Where(models.Role{Name: role.Name}).FirstOrCreate(&stored).Error; err != nil {
				return errors.ErrServiceUnavailable.WithMessage("role upsert failed").WithCause(err)
			}
			roles = append(roles, stored)
		}
		user.Roles = roles
		if user.Status == "" {
			user.Status = models.UserStatusActive
		}
		if err := tx.Create(user).Error; err != nil {
			return errors.ErrServiceUnavailable.WithMessage("user insert failed").WithCause(err)
		}
		return nil
	})
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, errors.ErrServiceUnavailable.WithMessage("user count failed").WithCause(err)
	}
	return n, nil
}
