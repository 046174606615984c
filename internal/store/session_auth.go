package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/cikmis/examclient/internal/model"
)

const adminSessionTTL = 24 * time.Hour

// CreateAdminSession stores the bearer token issued for username and returns
// the random id to put in the admin cookie.
func (s *Store) CreateAdminSession(username, token string) (string, error) {
	id, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO admin_sessions (id, username, token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, username, token, now, now.Add(adminSessionTTL),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetAdminSession returns the admin session for the cookie id, or nil if not found/expired.
func (s *Store) GetAdminSession(id string) (*model.AdminSession, error) {
	var sess model.AdminSession
	err := s.db.QueryRow(
		`SELECT id, username, token, created_at, expires_at FROM admin_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Username, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAdminSession(id)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAdminSession removes a session.
func (s *Store) DeleteAdminSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE id = ?`, id)
	return err
}

// CleanupExpiredSessions removes all expired admin sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM admin_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
