package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"welfare/internal/domain"
	"welfare/internal/service"
)

// MemberHandler handles HTTP requests for members.
type MemberHandler struct {
	memberService *service.MemberService
	ledgerService *service.LedgerService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberService *service.MemberService, ledgerService *service.LedgerService) *MemberHandler {
	return &MemberHandler{memberService: memberService, ledgerService: ledgerService}
}

// RegisterMemberRequest is the HTTP request body for member registration.
type RegisterMemberRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// MemberResponse is the HTTP response for member data.
type MemberResponse struct {
	ID           string    `json:"id"`
	MemberNumber string    `json:"member_number"`
	FullName     string    `json:"full_name"`
	PhoneNumber  string    `json:"phone_number"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// BalanceResponse is the HTTP response for a member's balance.
type BalanceResponse struct {
	MemberID      string `json:"member_id"`
	Contributions string `json:"contributions"`
	Disbursements string `json:"disbursements"`
	Net           string `json:"net"`
}

func toMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		ID:           m.ID,
		MemberNumber: m.MemberNumber,
		FullName:     m.FullName,
		PhoneNumber:  m.PhoneNumber,
		Email:        m.Email,
		CreatedAt:    m.CreatedAt,
	}
}

// Register handles POST /v1/members/register
func (h *MemberHandler) Register(c *gin.Context) {
	var req RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	member, err := h.memberService.Register(c.Request.Context(), service.RegisterMemberRequest{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	})
	if errors.Is(err, service.ErrMemberAlreadyRegistered) && member != nil {
		c.JSON(http.StatusConflict, gin.H{
			"message": "Member already registered",
			"member":  toMemberResponse(member),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toMemberResponse(member))
}

// GetAll handles GET /v1/members
func (h *MemberHandler) GetAll(c *gin.Context) {
	members, err := h.memberService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		response = append(response, toMemberResponse(m))
	}
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.memberService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toMemberResponse(member))
}

// Balance handles GET /v1/members/:id/balance
func (h *MemberHandler) Balance(c *gin.Context) {
	balance, err := h.ledgerService.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BalanceResponse{
		MemberID:      balance.MemberID,
		Contributions: balance.Contributions.StringFixed(2),
		Disbursements: balance.Disbursements.StringFixed(2),
		Net:           balance.Net().StringFixed(2),
	})
}
