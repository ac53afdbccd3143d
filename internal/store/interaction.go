package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/homematch/homematch/internal/model"
)

type InteractionStore struct {
	db *sql.DB
}

func NewInteractionStore(db *sql.DB) *InteractionStore {
	return &InteractionStore{db: db}
}

func scanInteraction(scanner interface{ Scan(...any) error }) (*model.Interaction, error) {
	var in model.Interaction
	err := scanner.Scan(&in.ID, &in.HouseholdID, &in.UserID, &in.PropertyID, &in.Kind, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

const interactionCols = `id, household_id, user_id, property_id, kind, created_at, updated_at`

// parseSQLiteTime converts a textual SQLite datetime into time.Time, matching
// the layouts the driver accepts for columns with a declared DATETIME type.
func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse sqlite time %q", s)
}

// Record stores a user's decision on a property. A later swipe replaces an
// earlier one, except that a view never downgrades an existing like/dislike.
func (s *InteractionStore) Record(householdID, userID, propertyID int64, kind string) (*model.Interaction, error) {
	var err error
	if kind == model.InteractionView {
		_, err = s.db.Exec(
			`INSERT INTO interactions (household_id, user_id, property_id, kind) VALUES (?, ?, ?, ?)
			 ON CONFLICT(household_id, user_id, property_id) DO NOTHING`,
			householdID, userID, propertyID, kind,
		)
	} else {
		_, err = s.db.Exec(
			`INSERT INTO interactions (household_id, user_id, property_id, kind) VALUES (?, ?, ?, ?)
			 ON CONFLICT(household_id, user_id, property_id) DO UPDATE SET
				kind = excluded.kind,
				updated_at = datetime('now')`,
			householdID, userID, propertyID, kind,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}
	return s.Get(householdID, userID, propertyID)
}

func (s *InteractionStore) Get(householdID, userID, propertyID int64) (*model.Interaction, error) {
	row := s.db.QueryRow(
		`SELECT `+interactionCols+` FROM interactions WHERE household_id = ? AND user_id = ? AND property_id = ?`,
		householdID, userID, propertyID,
	)
	in, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	return in, nil
}

// ListForUser returns a user's interactions in a household, newest first.
// An empty kind returns all kinds.
func (s *InteractionStore) ListForUser(householdID, userID int64, kind string) ([]model.Interaction, error) {
	query := `SELECT ` + interactionCols + ` FROM interactions WHERE household_id = ? AND user_id = ?`
	args := []any{householdID, userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []model.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, *in)
	}
	return interactions, rows.Err()
}

// Delete removes a user's interaction on a property (undo a swipe).
func (s *InteractionStore) Delete(householdID, userID, propertyID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM interactions WHERE household_id = ? AND user_id = ? AND property_id = ?`,
		householdID, userID, propertyID,
	)
	if err != nil {
		return fmt.Errorf("delete interaction: %w", err)
	}
	return nil
}

// ListForProperty returns every current member's interaction on a property.
func (s *InteractionStore) ListForProperty(householdID, propertyID int64) ([]model.Interaction, error) {
	rows, err := s.db.Query(
		`SELECT `+interactionCols+` FROM interactions
		 WHERE household_id = ? AND property_id = ?
		   AND user_id IN (SELECT user_id FROM household_members WHERE household_id = ?)
		 ORDER BY updated_at DESC`,
		householdID, propertyID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions for property: %w", err)
	}
	defer rows.Close()

	var interactions []model.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, *in)
	}
	return interactions, rows.Err()
}

// MutualLikes returns the properties every current household member has
// liked, newest match first. Households with fewer than two members have no
// mutual likes by definition.
func (s *InteractionStore) MutualLikes(householdID int64) ([]model.MutualLike, error) {
	rows, err := s.db.Query(
		`SELECT `+propertyColsP+`, MAX(i.updated_at) AS matched_at
		 FROM properties p
		 JOIN interactions i ON i.property_id = p.id
		 WHERE i.household_id = ? AND i.kind = 'like'
		   AND i.user_id IN (SELECT user_id FROM household_members WHERE household_id = ?)
		 GROUP BY p.id
		 HAVING COUNT(DISTINCT i.user_id) = (SELECT COUNT(*) FROM household_members WHERE household_id = ?)
		    AND (SELECT COUNT(*) FROM household_members WHERE household_id = ?) >= 2
		 ORDER BY matched_at DESC, p.id DESC`,
		householdID, householdID, householdID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("mutual likes: %w", err)
	}
	defer rows.Close()

	var mutual []model.MutualLike
	for rows.Next() {
		var p model.Property
		var neighborhoodID sql.NullInt64
		var ml model.MutualLike
		// MAX(i.updated_at) has no declared column type, so the driver hands
		// it back as a string instead of converting it to time.Time.
		var matchedAt string
		err := rows.Scan(
			&p.ID, &p.ExternalID, &neighborhoodID, &p.Address, &p.City, &p.State,
			&p.ZipCode, &p.Price, &p.Beds, &p.Baths, &p.Sqft, &p.YearBuilt,
			&p.PropertyType, &p.PhotoURL, &p.Description, &p.Status,
			&p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt,
			&matchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan mutual like: %w", err)
		}
		ml.MatchedAt, err = parseSQLiteTime(matchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan mutual like: %w", err)
		}
		if neighborhoodID.Valid {
			p.NeighborhoodID = &neighborhoodID.Int64
		}
		ml.Property = p
		mutual = append(mutual, ml)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range mutual {
		likes, err := s.memberLikes(householdID, mutual[idx].Property.ID)
		if err != nil {
			return nil, err
		}
		mutual[idx].Likes = likes
	}
	return mutual, nil
}

func (s *InteractionStore) memberLikes(householdID, propertyID int64) ([]model.MemberLike, error) {
	rows, err := s.db.Query(
		`SELECT i.user_id, u.name, i.updated_at
		 FROM interactions i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.household_id = ? AND i.property_id = ? AND i.kind = 'like'
		 ORDER BY i.updated_at ASC`,
		householdID, propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("member likes: %w", err)
	}
	defer rows.Close()

	var likes []model.MemberLike
	for rows.Next() {
		var l model.MemberLike
		if err := rows.Scan(&l.UserID, &l.Name, &l.LikedAt); err != nil {
			return nil, fmt.Errorf("scan member like: %w", err)
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// MemberSummaries returns per-member like/dislike/view counts for a household.
func (s *InteractionStore) MemberSummaries(householdID int64) ([]model.MemberSummary, error) {
	rows, err := s.db.Query(
		`SELECT hm.user_id, u.name,
			COALESCE(SUM(CASE WHEN i.kind = 'like' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.kind = 'dislike' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.kind = 'view' THEN 1 ELSE 0 END), 0)
		 FROM household_members hm
		 JOIN users u ON u.id = hm.user_id
		 LEFT JOIN interactions i ON i.user_id = hm.user_id AND i.household_id = hm.household_id
		 WHERE hm.household_id = ?
		 GROUP BY hm.user_id, u.name
		 ORDER BY hm.created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("member summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.MemberSummary
	for rows.Next() {
		var ms model.MemberSummary
		if err := rows.Scan(&ms.UserID, &ms.Name, &ms.Likes, &ms.Dislikes, &ms.Views); err != nil {
			return nil, fmt.Errorf("scan member summary: %w", err)
		}
		summaries = append(summaries, ms)
	}
	return summaries, rows.Err()
}

// MarkMutualLikeSeen records that a mutual like has been notified. Returns
// false when it was already marked (notify is idempotent).
func (s *InteractionStore) MarkMutualLikeSeen(householdID, propertyID int64) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO mutual_like_seen (household_id, property_id) VALUES (?, ?)
		 ON CONFLICT(household_id, property_id) DO NOTHING`,
		householdID, propertyID,
	)
	if err != nil {
		return false, fmt.Errorf("mark mutual like seen: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SeenPropertyIDs returns the property IDs already notified for a household.
func (s *InteractionStore) SeenPropertyIDs(householdID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT property_id FROM mutual_like_seen WHERE household_id = ?`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("seen property ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen property id: %w", err)
		}
		seen[id] = true
	}
	return seen, rows.Err()
}

// AgreementCounts looks at properties where at least two current members
// made a like-or-dislike decision, and reports how many of those the members
// agreed on versus decided at all.
func (s *InteractionStore) AgreementCounts(householdID int64) (agreed, decided int, err error) {
	row := s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN kinds = 1 THEN 1 ELSE 0 END), 0),
			COUNT(*)
		 FROM (
			SELECT property_id, COUNT(DISTINCT kind) AS kinds
			FROM interactions
			WHERE household_id = ? AND kind IN ('like', 'dislike')
			  AND user_id IN (SELECT user_id FROM household_members WHERE household_id = ?)
			GROUP BY property_id
			HAVING COUNT(DISTINCT user_id) >= 2
		 )`,
		householdID, householdID,
	)
	if err := row.Scan(&agreed, &decided); err != nil {
		return 0, 0, fmt.Errorf("agreement counts: %w", err)
	}
	return agreed, decided, nil
}

// propertyColsP is propertyCols qualified with the p alias for joined queries.
const propertyColsP = `p.id, p.external_id, p.neighborhood_id, p.address, p.city, p.state, p.zip_code,
	p.price, p.beds, p.baths, p.sqft, p.year_built, p.property_type, p.photo_url, p.description,
	p.status, p.latitude, p.longitude, p.created_at, p.updated_at`
