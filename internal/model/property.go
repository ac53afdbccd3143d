package model

import "time"

const (
	PropertyStatusActive  = "active"
	PropertyStatusPending = "pending"
	PropertyStatusSold    = "sold"
)

type Property struct {
	ID             int64     `json:"id"`
	ExternalID     string    `json:"external_id"`
	NeighborhoodID *int64    `json:"neighborhood_id"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	ZipCode        string    `json:"zip_code"`
	Price          int64     `json:"price"`
	Beds           int       `json:"beds"`
	Baths          float64   `json:"baths"`
	Sqft           int       `json:"sqft"`
	YearBuilt      int       `json:"year_built"`
	PropertyType   string    `json:"property_type"`
	PhotoURL       string    `json:"photo_url"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Neighborhood struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	WalkScore    int       `json:"walk_score"`
	TransitScore int       `json:"transit_score"`
	Vibe         string    `json:"vibe"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
