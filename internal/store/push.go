package store

import (
	"database/sql"
	"fmt"

	"github.com/homematch/homematch/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const pushSubscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

// CreateSubscription registers a browser push subscription. Re-subscribing
// the same endpoint reassigns it to the caller.
func (s *PushStore) CreateSubscription(userID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh_key = excluded.p256dh_key,
			auth_key = excluded.auth_key,
			device_name = excluded.device_name`,
		userID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+pushSubscriptionCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return scanPushSubscription(row)
}

func (s *PushStore) GetSubscription(id int64) (*model.PushSubscription, error) {
	row := s.db.QueryRow(`SELECT `+pushSubscriptionCols+` FROM push_subscriptions WHERE id = ?`, id)
	sub, err := scanPushSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListSubscriptionsForUser(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushSubscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteSubscription(id int64) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteSubscriptionByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func scanPushPreferences(scanner interface{ Scan(...any) error }) (*model.PushPreferences, error) {
	var p model.PushPreferences
	err := scanner.Scan(&p.ID, &p.UserID, &p.MutualLikes, &p.NewListings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const pushPreferencesCols = `id, user_id, mutual_likes, new_listings, created_at, updated_at`

// GetPreferences returns the user's preferences, falling back to the
// defaults (mutual likes on, new listings off) when none are stored.
func (s *PushStore) GetPreferences(userID int64) (*model.PushPreferences, error) {
	row := s.db.QueryRow(`SELECT `+pushPreferencesCols+` FROM push_preferences WHERE user_id = ?`, userID)
	p, err := scanPushPreferences(row)
	if err == sql.ErrNoRows {
		return &model.PushPreferences{UserID: userID, MutualLikes: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push preferences: %w", err)
	}
	return p, nil
}

func (s *PushStore) SetPreferences(userID int64, mutualLikes, newListings bool) (*model.PushPreferences, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_preferences (user_id, mutual_likes, new_listings) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			mutual_likes = excluded.mutual_likes,
			new_listings = excluded.new_listings,
			updated_at = datetime('now')`,
		userID, mutualLikes, newListings,
	)
	if err != nil {
		return nil, fmt.Errorf("set push preferences: %w", err)
	}
	return s.GetPreferences(userID)
}
