package repository

import (
	"context"

	"welfare/internal/domain"
)

// MemberRepository defines the persistence operations for members.
type MemberRepository interface {
	// Create adds a new member.
	Create(ctx context.Context, member *domain.Member) error

	// GetByID retrieves a member by ID.
	GetByID(ctx context.Context, id string) (*domain.Member, error)

	// GetByPhone retrieves a member by normalized phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Member, error)

	// GetAll retrieves all members.
	GetAll(ctx context.Context) ([]*domain.Member, error)
}
