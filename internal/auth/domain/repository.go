package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	Create(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error
}
