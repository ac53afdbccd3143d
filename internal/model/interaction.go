package model

import "time"

const (
	InteractionLike    = "like"
	InteractionDislike = "dislike"
	InteractionView    = "view"
)

// ValidInteractionKind reports whether kind is one of the recognized
// interaction kinds.
func ValidInteractionKind(kind string) bool {
	switch kind {
	case InteractionLike, InteractionDislike, InteractionView:
		return true
	}
	return false
}

type Interaction struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	UserID      int64     `json:"user_id"`
	PropertyID  int64     `json:"property_id"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemberLike records when a single household member liked a property.
type MemberLike struct {
	UserID  int64     `json:"user_id"`
	Name    string    `json:"name"`
	LikedAt time.Time `json:"liked_at"`
}

// MutualLike is a property every member of a household has liked.
type MutualLike struct {
	Property Property     `json:"property"`
	Likes    []MemberLike `json:"likes"`
	// MatchedAt is the moment the last member's like landed.
	MatchedAt time.Time `json:"matched_at"`
}

// MemberSummary is one member's interaction counts for the couples summary.
type MemberSummary struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
	Views    int    `json:"views"`
}
