package model

import "time"

type Session struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	UserID      int64     `json:"user_id"`
	HouseholdID int64     `json:"household_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invite is an emailed 6-digit code that lets a partner join a household.
type Invite struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	Email       string     `json:"email"`
	HouseholdID int64      `json:"household_id"`
	InvitedBy   int64      `json:"invited_by"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
}
