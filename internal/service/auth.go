package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"welfare/internal/auth"
	"welfare/internal/domain"
	"welfare/internal/repository"
)

const minPasswordLength = 8

// AuthService signs staff in and provisions staff accounts.
type AuthService struct {
	staffRepo repository.StaffRepository
	tokens    *auth.TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(staffRepo repository.StaffRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{staffRepo: staffRepo, tokens: tokens}
}

// LoginResult is a successful staff sign-in.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.Staff
	Portal    string
}

// Login checks the credentials and issues a token for the staff member's role.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	staff, err := s.staffRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(staff)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expires,
		Staff:     staff,
		Portal:    auth.PortalPath(staff.Role),
	}, nil
}

// CreateStaffRequest contains the parameters for a new staff account.
type CreateStaffRequest struct {
	Email    string
	FullName string
	Role     domain.Role
	Password string
}

// CreateStaff provisions a staff account with a bcrypt password hash.
func (s *AuthService) CreateStaff(ctx context.Context, req CreateStaffRequest) (*domain.Staff, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrInvalidFullName
	}

	if !req.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	staff := &domain.Staff{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     name,
		Role:         req.Role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.staffRepo.Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrStaffAlreadyExists
		}
		return nil, err
	}

	return staff, nil
}
