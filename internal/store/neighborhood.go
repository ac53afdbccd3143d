package store

import (
	"database/sql"
	"fmt"

	"github.com/homematch/homematch/internal/model"
)

type NeighborhoodStore struct {
	db *sql.DB
}

func NewNeighborhoodStore(db *sql.DB) *NeighborhoodStore {
	return &NeighborhoodStore{db: db}
}

func scanNeighborhood(scanner interface{ Scan(...any) error }) (*model.Neighborhood, error) {
	var n model.Neighborhood
	err := scanner.Scan(
		&n.ID, &n.Name, &n.City, &n.Latitude, &n.Longitude,
		&n.WalkScore, &n.TransitScore, &n.Vibe, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const neighborhoodCols = `id, name, city, latitude, longitude, walk_score, transit_score, vibe, created_at, updated_at`

func (s *NeighborhoodStore) Create(n *model.Neighborhood) (*model.Neighborhood, error) {
	result, err := s.db.Exec(
		`INSERT INTO neighborhoods (name, city, latitude, longitude, walk_score, transit_score, vibe)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.Name, n.City, n.Latitude, n.Longitude, n.WalkScore, n.TransitScore, n.Vibe,
	)
	if err != nil {
		return nil, fmt.Errorf("insert neighborhood: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Upsert inserts the neighborhood, or refreshes its scores when one with the
// same name and city already exists.
func (s *NeighborhoodStore) Upsert(n *model.Neighborhood) (*model.Neighborhood, error) {
	_, err := s.db.Exec(
		`INSERT INTO neighborhoods (name, city, latitude, longitude, walk_score, transit_score, vibe)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name, city) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			walk_score = excluded.walk_score,
			transit_score = excluded.transit_score,
			vibe = excluded.vibe,
			updated_at = datetime('now')`,
		n.Name, n.City, n.Latitude, n.Longitude, n.WalkScore, n.TransitScore, n.Vibe,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert neighborhood: %w", err)
	}
	return s.GetByName(n.Name, n.City)
}

func (s *NeighborhoodStore) GetByID(id int64) (*model.Neighborhood, error) {
	row := s.db.QueryRow(`SELECT `+neighborhoodCols+` FROM neighborhoods WHERE id = ?`, id)
	n, err := scanNeighborhood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get neighborhood: %w", err)
	}
	return n, nil
}

func (s *NeighborhoodStore) GetByName(name, city string) (*model.Neighborhood, error) {
	row := s.db.QueryRow(
		`SELECT `+neighborhoodCols+` FROM neighborhoods WHERE name = ? AND city = ?`,
		name, city,
	)
	n, err := scanNeighborhood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get neighborhood by name: %w", err)
	}
	return n, nil
}

func (s *NeighborhoodStore) List() ([]model.Neighborhood, error) {
	rows, err := s.db.Query(`SELECT ` + neighborhoodCols + ` FROM neighborhoods ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list neighborhoods: %w", err)
	}
	defer rows.Close()

	var neighborhoods []model.Neighborhood
	for rows.Next() {
		n, err := scanNeighborhood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan neighborhood: %w", err)
		}
		neighborhoods = append(neighborhoods, *n)
	}
	return neighborhoods, rows.Err()
}

// MedianPrice returns the median active listing price in a neighborhood,
// or 0 when it has no active listings.
func (s *NeighborhoodStore) MedianPrice(id int64) (int64, error) {
	var median sql.NullInt64
	err := s.db.QueryRow(
		`SELECT price FROM properties
		 WHERE neighborhood_id = ? AND status = 'active'
		 ORDER BY price
		 LIMIT 1 OFFSET (SELECT COUNT(*) FROM properties WHERE neighborhood_id = ? AND status = 'active') / 2`,
		id, id,
	).Scan(&median)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("median price: %w", err)
	}
	return median.Int64, nil
}
