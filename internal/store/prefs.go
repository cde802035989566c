package store

import (
	"database/sql"
	"errors"

	"github.com/boda2004/game-catalog/internal/domain"
)

// GetPreferences returns the user's saved display preferences, or the
// defaults when none were saved yet.
func (db *DB) GetPreferences(userID string) (*domain.UserPreferences, error) {
	var prefs domain.UserPreferences
	err := db.Get(&prefs, `SELECT * FROM user_preferences WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultPreferences()
		defaults.UserID = userID
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (db *DB) SavePreferences(prefs *domain.UserPreferences) error {
	_, err := db.NamedExec(`INSERT INTO user_preferences (user_id, view_mode, visible_fields, items_per_page)
		VALUES (:user_id, :view_mode, :visible_fields, :items_per_page)
		ON CONFLICT(user_id) DO UPDATE SET
			view_mode = excluded.view_mode,
			visible_fields = excluded.visible_fields,
			items_per_page = excluded.items_per_page`, prefs)
	return err
}
