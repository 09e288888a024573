package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type Repository interface {
	FindByID(ctx context.Context, userID string) (*User, error)
	RolesByUserIDs(ctx context.Context, userIDs []string) (map[string]string, error)
	UpdateStatus(ctx context.Context, userID, status string) error
}

type repository struct{ db *gorm.DB }

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) FindByID(ctx context.Context, userID string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// RolesByUserIDs omits ids with no matching user.
func (r *repository) RolesByUserIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []User
	err := r.db.WithContext(ctx).
		Select("id", "role").
		Where("id IN ?", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	for _, u := range rows {
		out[u.ID] = u.Role
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID, status string) error {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update user status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
