package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boda2004/game-catalog/internal/domain"
)

// GetOrCreateUser resolves a username to its user row, creating it on first
// sight. Safe under concurrent callers: the unique index rejects the losing
// insert and the loser re-reads the winner's row.
func (db *DB) GetOrCreateUser(username string) (*domain.User, error) {
	user, err := db.GetUserByUsername(username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	u := &domain.User{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	_, err = db.Exec(`INSERT OR IGNORE INTO users (id, username, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Username, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Re-read in case a concurrent insert won.
	return db.GetUserByUsername(username)
}

func (db *DB) GetUserByUsername(username string) (*domain.User, error) {
	var user domain.User
	err := db.Get(&user, `SELECT id, username, created_at FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) GetUser(id string) (*domain.User, error) {
	var user domain.User
	err := db.Get(&user, `SELECT id, username, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
