package postgres

import (
	"context"
	"database/sql"
	"strings"

	"welfare/internal/domain"
)

// StaffRepository implements repository.StaffRepository using PostgreSQL.
type StaffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a new StaffRepository.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create adds a new staff account.
func (r *StaffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	query := `
		INSERT INTO staff (id, email, full_name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		staff.ID,
		strings.ToLower(staff.Email),
		staff.FullName,
		staff.Role,
		staff.PasswordHash,
	).Scan(&staff.CreatedAt)
	return mapError(err)
}

// GetByEmail retrieves a staff account by email, case-insensitively.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	query := `
		SELECT id, email, full_name, role, password_hash, created_at
		FROM staff WHERE email = $1
	`
	var staff domain.Staff
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&staff.ID,
		&staff.Email,
		&staff.FullName,
		&staff.Role,
		&staff.PasswordHash,
		&staff.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &staff, nil
}
