package domain

import "time"

// Member represents a registered welfare member.
type Member struct {
	ID           string
	MemberNumber string
	FullName     string
	PhoneNumber  string
	Email        string
	CreatedAt    time.Time
}
