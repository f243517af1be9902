package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"welfare/internal/domain"
	"welfare/internal/mpesa"
	"welfare/internal/repository"
)

// MemberService handles member registration and lookup.
type MemberService struct {
	memberRepo repository.MemberRepository
}

// NewMemberService creates a new MemberService.
func NewMemberService(memberRepo repository.MemberRepository) *MemberService {
	return &MemberService{memberRepo: memberRepo}
}

// RegisterMemberRequest contains the parameters for registering a member.
type RegisterMemberRequest struct {
	FullName    string
	PhoneNumber string
	Email       string
}

// Register creates a member. If the phone number is already registered the
// existing member is returned together with ErrMemberAlreadyRegistered.
func (s *MemberService) Register(ctx context.Context, req RegisterMemberRequest) (*domain.Member, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrInvalidFullName
	}

	phone, err := mpesa.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, ErrInvalidPhoneNumber
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	existing, err := s.memberRepo.GetByPhone(ctx, phone)
	if err == nil {
		return existing, ErrMemberAlreadyRegistered
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	member := &domain.Member{
		ID:          uuid.New().String(),
		FullName:    name,
		PhoneNumber: phone,
		Email:       strings.ToLower(email),
		CreatedAt:   time.Now(),
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent registration.
			if existing, getErr := s.memberRepo.GetByPhone(ctx, phone); getErr == nil {
				return existing, ErrMemberAlreadyRegistered
			}
			return nil, ErrMemberAlreadyRegistered
		}
		return nil, err
	}

	return member, nil
}

// Get retrieves a member by ID.
func (s *MemberService) Get(ctx context.Context, id string) (*domain.Member, error) {
	if id == "" {
		return nil, ErrInvalidMemberID
	}

	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// List retrieves all members.
func (s *MemberService) List(ctx context.Context) ([]*domain.Member, error) {
	return s.memberRepo.GetAll(ctx)
}
