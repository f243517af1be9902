package postgres

import (
	"context"
	"database/sql"

	"welfare/internal/domain"
)

// MemberRepository implements repository.MemberRepository using PostgreSQL.
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create adds a new member. The member number is assigned by the database sequence.
func (r *MemberRepository) Create(ctx context.Context, member *domain.Member) error {
	query := `
		INSERT INTO members (id, full_name, phone_number, email)
		VALUES ($1, $2, $3, $4)
		RETURNING member_number, created_at
	`
	err := r.db.QueryRowContext(ctx, query, member.ID, member.FullName, member.PhoneNumber, nullString(member.Email)).
		Scan(&member.MemberNumber, &member.CreatedAt)
	return mapError(err)
}

const memberColumns = `id, member_number, full_name, phone_number, email, created_at`

// GetByID retrieves a member by ID.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.db.QueryRowContext(ctx, query, id))
}

// GetByPhone retrieves a member by phone number.
func (r *MemberRepository) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE phone_number = $1`
	return scanMember(r.db.QueryRowContext(ctx, query, phone))
}

// GetAll retrieves all members.
func (r *MemberRepository) GetAll(ctx context.Context) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanMember(row rowScanner) (*domain.Member, error) {
	var (
		member domain.Member
		email  sql.NullString
	)
	err := row.Scan(&member.ID, &member.MemberNumber, &member.FullName, &member.PhoneNumber, &email, &member.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	member.Email = email.String
	return &member, nil
}
