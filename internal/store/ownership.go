package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boda2004/game-catalog/internal/domain"
)

// ErrNotOwned is returned by mutations that require an existing ownership
// record.
var ErrNotOwned = errors.New("game not found in collection")

// GetOwnership returns the single ownership record for (user, game), or nil.
// The table may hold duplicate rows for one pair after a historical insert
// race; they are a repair-on-read condition, collapsed here before any caller
// mutates: flags OR-merge into the earliest row and the rest are deleted.
func (db *DB) GetOwnership(userID, gameID string) (*domain.UserGame, error) {
	var rows []domain.UserGame
	err := db.Select(&rows,
		`SELECT * FROM user_games WHERE user_id = ? AND game_id = ? ORDER BY added_at ASC, id ASC`,
		userID, gameID)
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	}

	keep := rows[0]
	merged := keep.Flags()
	for _, dup := range rows[1:] {
		merged = merged.Or(dup.Flags())
		if _, err := db.Exec(`DELETE FROM user_games WHERE id = ?`, dup.ID); err != nil {
			return nil, fmt.Errorf("failed to collapse duplicate ownership: %w", err)
		}
	}
	if err := db.setOwnershipFlags(keep.ID, merged); err != nil {
		return nil, err
	}
	keep.OwnedOnSteam = merged.Steam
	keep.OwnedOnEpic = merged.Epic
	keep.OwnedOnGog = merged.Gog
	return &keep, nil
}

// UpsertOwnership adds gameID to the user's collection with flags, OR-merging
// into an existing record. Returns alreadyOwned=true when a record existed.
// A previously-set flag is never cleared here; see ReplaceOwnershipFlags for
// the explicit update operation.
func (db *DB) UpsertOwnership(userID, gameID string, flags domain.StoreFlags) (alreadyOwned bool, err error) {
	existing, err := db.GetOwnership(userID, gameID)
	if err != nil {
		return false, err
	}

	if existing != nil {
		merged := existing.Flags().Or(flags)
		if err := db.setOwnershipFlags(existing.ID, merged); err != nil {
			return false, err
		}
		return true, nil
	}

	ug := domain.UserGame{
		ID:           uuid.New().String(),
		UserID:       userID,
		GameID:       gameID,
		OwnedOnSteam: flags.Steam,
		OwnedOnEpic:  flags.Epic,
		OwnedOnGog:   flags.Gog,
		AddedAt:      time.Now(),
	}
	_, err = db.NamedExec(`INSERT INTO user_games (id, user_id, game_id, owned_on_steam, owned_on_epic, owned_on_gog, added_at)
		VALUES (:id, :user_id, :game_id, :owned_on_steam, :owned_on_epic, :owned_on_gog, :added_at)`, &ug)
	if err != nil {
		return false, fmt.Errorf("failed to insert ownership: %w", err)
	}
	return false, nil
}

// ReplaceOwnershipFlags fully replaces the flag set for (user, game); this is
// the one operation allowed to clear a previously-true flag.
func (db *DB) ReplaceOwnershipFlags(userID, gameID string, flags domain.StoreFlags) error {
	existing, err := db.GetOwnership(userID, gameID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotOwned
	}
	return db.setOwnershipFlags(existing.ID, flags)
}

// DeleteOwnership removes gameID from the user's collection, including any
// not-yet-collapsed duplicate rows.
func (db *DB) DeleteOwnership(userID, gameID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM user_games WHERE user_id = ? AND game_id = ?`, userID, gameID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListUserGames returns the user's collection joined with catalog metadata,
// ordered by the time the user added each game (newest first).
func (db *DB) ListUserGames(userID string) ([]domain.LibraryGame, error) {
	type row struct {
		domain.CatalogGame
		UserAddedAt  time.Time `db:"user_added_at"`
		OwnedOnSteam bool      `db:"owned_on_steam"`
		OwnedOnEpic  bool      `db:"owned_on_epic"`
		OwnedOnGog   bool      `db:"owned_on_gog"`
	}

	var rows []row
	err := db.Select(&rows, `
		SELECT g.*, ug.added_at AS user_added_at,
			ug.owned_on_steam, ug.owned_on_epic, ug.owned_on_gog
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ?
		ORDER BY ug.added_at DESC, ug.id ASC`, userID)
	if err != nil {
		return nil, err
	}

	games := make([]domain.LibraryGame, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		// Skip duplicate ownership rows; GetOwnership repairs them on the
		// next mutating access.
		if _, ok := seen[r.CatalogGame.ID]; ok {
			continue
		}
		seen[r.CatalogGame.ID] = struct{}{}
		games = append(games, domain.LibraryGame{
			CatalogGame:  r.CatalogGame,
			UserAddedAt:  r.UserAddedAt,
			OwnedOnSteam: r.OwnedOnSteam,
			OwnedOnEpic:  r.OwnedOnEpic,
			OwnedOnGog:   r.OwnedOnGog,
		})
	}
	return games, nil
}

// ListOwnedRAWGIDs returns the RAWG ids of every game in the user's
// collection, for marking search results that are already owned.
func (db *DB) ListOwnedRAWGIDs(userID string) ([]int64, error) {
	var ids []int64
	err := db.Select(&ids, `
		SELECT DISTINCT g.rawg_id
		FROM user_games ug
		JOIN games g ON g.id = ug.game_id
		WHERE ug.user_id = ?
		ORDER BY g.rawg_id`, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// CountOwnershipRows returns the raw number of ownership rows for a game.
func (db *DB) CountOwnershipRows(gameID string) (int, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM user_games WHERE game_id = ?`, gameID)
	return count, err
}

func (db *DB) setOwnershipFlags(id string, flags domain.StoreFlags) error {
	_, err := db.Exec(`UPDATE user_games SET owned_on_steam = ?, owned_on_epic = ?, owned_on_gog = ? WHERE id = ?`,
		flags.Steam, flags.Epic, flags.Gog, id)
	if err != nil {
		return fmt.Errorf("failed to update ownership flags: %w", err)
	}
	return nil
}
