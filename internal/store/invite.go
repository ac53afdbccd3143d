package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/homematch/homematch/internal/model"
)

const inviteTTL = 72 * time.Hour

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.Invite, error) {
	var inv model.Invite
	var usedAt sql.NullTime

	err := scanner.Scan(
		&inv.ID, &inv.Token, &inv.Email, &inv.HouseholdID, &inv.InvitedBy,
		&inv.ExpiresAt, &usedAt, &inv.Attempts, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	return &inv, nil
}

const inviteCols = `id, token, email, household_id, invited_by, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new invite code for the email. Any previous pending codes
// for the same email are invalidated first.
func (s *InviteStore) Create(email string, householdID, invitedBy int64) (*model.Invite, error) {
	_, err := s.db.Exec(
		`UPDATE invites SET used_at = datetime('now') WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous invites: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(inviteTTL)

	result, err := s.db.Exec(
		`INSERT INTO invites (token, email, household_id, invited_by, expires_at) VALUES (?, ?, ?, ?, ?)`,
		code, email, householdID, invitedBy, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM invites WHERE id = ?`, id)
	return scanInvite(row)
}

// GetLatestByEmail returns the most recent valid (unexpired, unused) invite for an email.
func (s *InviteStore) GetLatestByEmail(email string) (*model.Invite, error) {
	row := s.db.QueryRow(
		`SELECT `+inviteCols+` FROM invites WHERE email = ? AND expires_at > datetime('now') AND used_at IS NULL ORDER BY created_at DESC LIMIT 1`,
		email,
	)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest invite by email: %w", err)
	}
	return inv, nil
}

// IncrementAttempts increments the attempt count and returns the new value.
func (s *InviteStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(`UPDATE invites SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var attempts int
	err = s.db.QueryRow(`SELECT attempts FROM invites WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *InviteStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE invites SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}
	return nil
}

func (s *InviteStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM invites WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
