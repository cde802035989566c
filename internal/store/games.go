package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boda2004/game-catalog/internal/domain"
)

// GetOrInsertGame returns the catalog row for game.RAWGID, inserting game if
// no row exists yet. First writer wins; a concurrent loser discovers and
// reuses the winner's row instead of erroring.
func (db *DB) GetOrInsertGame(game *domain.CatalogGame) (*domain.CatalogGame, error) {
	existing, err := db.GetGameByRAWGID(game.RAWGID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	insert := *game
	insert.ID = uuid.New().String()
	insert.AddedAt = time.Now()

	query := `INSERT OR IGNORE INTO games (
		id, rawg_id, name, slug, background_image, released, rating, metacritic,
		platforms, genres, developers, publishers, tags,
		esrb_rating, playtime, description, website, added_at
	) VALUES (
		:id, :rawg_id, :name, :slug, :background_image, :released, :rating, :metacritic,
		:platforms, :genres, :developers, :publishers, :tags,
		:esrb_rating, :playtime, :description, :website, :added_at
	)`

	if _, err := db.NamedExec(query, &insert); err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}

	// Re-read: either our insert landed or a concurrent writer won the race.
	return db.GetGameByRAWGID(game.RAWGID)
}

func (db *DB) GetGameByRAWGID(rawgID int64) (*domain.CatalogGame, error) {
	var game domain.CatalogGame
	err := db.Get(&game, `SELECT * FROM games WHERE rawg_id = ?`, rawgID)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (db *DB) GetGame(id string) (*domain.CatalogGame, error) {
	var game domain.CatalogGame
	err := db.Get(&game, `SELECT * FROM games WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// CountGames returns the number of catalog rows.
func (db *DB) CountGames() (int, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM games`)
	return count, err
}
