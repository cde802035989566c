// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort        = "8080"
	DefaultDBPath      = "gamecatalog.db"
	DefaultRAWGAPIURL  = "https://api.rawg.io/api"
	DefaultSteamAPIURL = "https://api.steampowered.com"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultUsername    = "gamecatalog"
)

// Retry policy defaults for the RAWG client
const (
	DefaultMaxRetries   = 5
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	MaxRetryJitter      = 250 * time.Millisecond
)

// RAWG page sizes
const (
	SearchPageSize    = 10
	BestMatchPageSize = 1
)

// Library defaults
const (
	DefaultItemsPerPage = 12
	DefaultViewMode     = "grid"
	DefaultSortBy       = "added"
	DefaultSortOrder    = "desc"
)

// Database tables
const (
	GamesTable       = "games"
	UserGamesTable   = "user_games"
	ImportJobsTable  = "import_jobs"
	UsersTable       = "users"
	PreferencesTable = "user_preferences"
)
