package repository

import (
	"context"

	"welfare/internal/domain"
)

// StaffRepository defines the persistence operations for staff accounts.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.Staff) error
	GetByEmail(ctx context.Context, email string) (*domain.Staff, error)
}
