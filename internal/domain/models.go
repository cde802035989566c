package domain

import (
	"errors"
	"time"
)

// Fatal pre-loop conditions; per-item failures are reported in ImportResult instead.
var (
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrMissingAPIKey      = errors.New("RAWG API key not configured")
	ErrMissingSteamAPIKey = errors.New("Steam API key not configured")
)

type JobType string

const (
	JobTypeBulk  JobType = "bulk"
	JobTypeSteam JobType = "steam"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ImportJob tracks batch import progress for live observation by a caller.
// Completed counts processed items regardless of per-item outcome.
type ImportJob struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Error     *string   `json:"error,omitempty" db:"error"`
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Type      JobType   `json:"type" db:"type"`
	Status    JobStatus `json:"status" db:"status"`
	Total     int       `json:"total" db:"total"`
	Completed int       `json:"completed" db:"completed"`
}

// CatalogGame is a de-duplicated, globally shared catalog entry keyed by its
// RAWG id. Optional scalar fields are nil when the upstream record omits them;
// list fields are never nil-for-absent, they default to an empty slice.
type CatalogGame struct { //nolint:govet // field ordering prioritizes readability over memory alignment
	ID              string      `json:"id" db:"id"`
	RAWGID          int64       `json:"rawg_id" db:"rawg_id"`
	Name            string      `json:"name" db:"name"`
	Slug            string      `json:"slug" db:"slug"`
	BackgroundImage *string     `json:"background_image,omitempty" db:"background_image"`
	Released        *string     `json:"released,omitempty" db:"released"`
	Rating          *float64    `json:"rating,omitempty" db:"rating"`
	Metacritic      *int64      `json:"metacritic,omitempty" db:"metacritic"`
	Platforms       StringSlice `json:"platforms" db:"platforms"`
	Genres          StringSlice `json:"genres" db:"genres"`
	Developers      StringSlice `json:"developers" db:"developers"`
	Publishers      StringSlice `json:"publishers" db:"publishers"`
	Tags            StringSlice `json:"tags" db:"tags"`
	ESRBRating      *string     `json:"esrb_rating,omitempty" db:"esrb_rating"`
	Playtime        *int64      `json:"playtime,omitempty" db:"playtime"`
	Description     *string     `json:"description,omitempty" db:"description"`
	Website         *string     `json:"website,omitempty" db:"website"`
	AddedAt         time.Time   `json:"added_at" db:"added_at"`
}

// StoreFlags records which storefronts a user owns a game on.
type StoreFlags struct {
	Steam bool `json:"owned_on_steam"`
	Epic  bool `json:"owned_on_epic"`
	Gog   bool `json:"owned_on_gog"`
}

// Or returns the monotonic merge of two flag sets.
func (f StoreFlags) Or(other StoreFlags) StoreFlags {
	return StoreFlags{
		Steam: f.Steam || other.Steam,
		Epic:  f.Epic || other.Epic,
		Gog:   f.Gog || other.Gog,
	}
}

// UserGame links one user to one catalog game plus storefront ownership flags.
type UserGame struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	GameID       string    `json:"game_id" db:"game_id"`
	OwnedOnSteam bool      `json:"owned_on_steam" db:"owned_on_steam"`
	OwnedOnEpic  bool      `json:"owned_on_epic" db:"owned_on_epic"`
	OwnedOnGog   bool      `json:"owned_on_gog" db:"owned_on_gog"`
	AddedAt      time.Time `json:"added_at" db:"added_at"`
}

// Flags returns the ownership flags of the record.
func (ug *UserGame) Flags() StoreFlags {
	return StoreFlags{Steam: ug.OwnedOnSteam, Epic: ug.OwnedOnEpic, Gog: ug.OwnedOnGog}
}

// LibraryGame is a catalog game projected with the requesting user's ownership.
type LibraryGame struct {
	CatalogGame
	UserAddedAt  time.Time `json:"user_added_at"`
	OwnedOnSteam bool      `json:"owned_on_steam"`
	OwnedOnEpic  bool      `json:"owned_on_epic"`
	OwnedOnGog   bool      `json:"owned_on_gog"`
}

// ImportResult is the per-item outcome of a batch import.
type ImportResult struct {
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	AddedName    string `json:"addedName,omitempty"`
	Error        string `json:"error,omitempty"`
	AlreadyOwned bool   `json:"alreadyOwned,omitempty"`
}

type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ViewMode string

const (
	ViewModeGrid  ViewMode = "grid"
	ViewModeTable ViewMode = "table"
)

// UserPreferences holds per-user library display settings.
type UserPreferences struct {
	UserID        string      `json:"-" db:"user_id"`
	ViewMode      ViewMode    `json:"view_mode" db:"view_mode"`
	VisibleFields StringSlice `json:"visible_fields" db:"visible_fields"`
	ItemsPerPage  int         `json:"items_per_page" db:"items_per_page"`
}

// DefaultPreferences returns the preferences used before a user saves any.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		ViewMode:      ViewModeGrid,
		VisibleFields: StringSlice{"name", "platforms", "genres", "rating", "released"},
		ItemsPerPage:  12,
	}
}
