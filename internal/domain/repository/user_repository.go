package repository

import (
	"context"

	"freshkart/internal/domain/entity"
)

// UserRepository reads marketplace profiles. Profiles are owned by the
// accounts service; Create exists for seeding and tests.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
