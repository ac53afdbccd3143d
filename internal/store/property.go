package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/homematch/homematch/internal/model"
)

type PropertyStore struct {
	db *sql.DB
}

func NewPropertyStore(db *sql.DB) *PropertyStore {
	return &PropertyStore{db: db}
}

func scanProperty(scanner interface{ Scan(...any) error }) (*model.Property, error) {
	var p model.Property
	var neighborhoodID sql.NullInt64
	err := scanner.Scan(
		&p.ID, &p.ExternalID, &neighborhoodID, &p.Address, &p.City, &p.State,
		&p.ZipCode, &p.Price, &p.Beds, &p.Baths, &p.Sqft, &p.YearBuilt,
		&p.PropertyType, &p.PhotoURL, &p.Description, &p.Status,
		&p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if neighborhoodID.Valid {
		p.NeighborhoodID = &neighborhoodID.Int64
	}
	return &p, nil
}

const propertyCols = `id, external_id, neighborhood_id, address, city, state, zip_code,
	price, beds, baths, sqft, year_built, property_type, photo_url, description,
	status, latitude, longitude, created_at, updated_at`

// PropertyFilter narrows a listing query. Zero values mean "no constraint".
type PropertyFilter struct {
	NeighborhoodID int64
	MinPrice       int64
	MaxPrice       int64
	MinBeds        int
	PropertyType   string
	Status         string
	// ExcludeDecidedBy skips properties the given user has already liked or
	// disliked (the browse feed shows each listing until a decision lands).
	ExcludeDecidedBy int64
	Limit            int
	Offset           int
}

func (s *PropertyStore) Create(p *model.Property) (*model.Property, error) {
	result, err := s.db.Exec(
		`INSERT INTO properties (external_id, neighborhood_id, address, city, state, zip_code,
			price, beds, baths, sqft, year_built, property_type, photo_url, description,
			status, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ExternalID, nullableID(p.NeighborhoodID), p.Address, p.City, p.State, p.ZipCode,
		p.Price, p.Beds, p.Baths, p.Sqft, p.YearBuilt, p.PropertyType, p.PhotoURL,
		p.Description, p.Status, p.Latitude, p.Longitude,
	)
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Upsert inserts the property, or refreshes price/status/details when a
// listing with the same external_id already exists. Used by the feed importer.
func (s *PropertyStore) Upsert(p *model.Property) (*model.Property, error) {
	_, err := s.db.Exec(
		`INSERT INTO properties (external_id, neighborhood_id, address, city, state, zip_code,
			price, beds, baths, sqft, year_built, property_type, photo_url, description,
			status, latitude, longitude)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
			neighborhood_id = excluded.neighborhood_id,
			price = excluded.price,
			beds = excluded.beds,
			baths = excluded.baths,
			sqft = excluded.sqft,
			photo_url = excluded.photo_url,
			description = excluded.description,
			status = excluded.status,
			updated_at = datetime('now')`,
		p.ExternalID, nullableID(p.NeighborhoodID), p.Address, p.City, p.State, p.ZipCode,
		p.Price, p.Beds, p.Baths, p.Sqft, p.YearBuilt, p.PropertyType, p.PhotoURL,
		p.Description, p.Status, p.Latitude, p.Longitude,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert property: %w", err)
	}
	return s.GetByExternalID(p.ExternalID)
}

func (s *PropertyStore) GetByID(id int64) (*model.Property, error) {
	row := s.db.QueryRow(`SELECT `+propertyCols+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) GetByExternalID(externalID string) (*model.Property, error) {
	row := s.db.QueryRow(`SELECT `+propertyCols+` FROM properties WHERE external_id = ?`, externalID)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get property by external id: %w", err)
	}
	return p, nil
}

func (s *PropertyStore) List(f PropertyFilter) ([]model.Property, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.NeighborhoodID != 0 {
		where = append(where, "neighborhood_id = ?")
		args = append(args, f.NeighborhoodID)
	}
	if f.MinPrice != 0 {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice != 0 {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.MinBeds != 0 {
		where = append(where, "beds >= ?")
		args = append(args, f.MinBeds)
	}
	if f.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.ExcludeDecidedBy != 0 {
		where = append(where, `id NOT IN (
			SELECT property_id FROM interactions WHERE user_id = ? AND kind IN ('like', 'dislike'))`)
		args = append(args, f.ExcludeDecidedBy)
	}

	query := `SELECT ` + propertyCols + ` FROM properties`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var properties []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

func (s *PropertyStore) UpdateStatus(id int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE properties SET status = ?, updated_at = datetime('now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update property status: %w", err)
	}
	return nil
}

func (s *PropertyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	return nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
