package app

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boda2004/game-catalog/internal/constants"
	"github.com/boda2004/game-catalog/internal/domain"
	"github.com/boda2004/game-catalog/internal/logger"
	"github.com/boda2004/game-catalog/internal/store"
)

// Library answers questions about one user's collection: filtered pages,
// facet values for filter dropdowns, display preferences and single entries.
type Library struct {
	db     *store.DB
	logger *logger.Logger
}

func NewLibrary(db *store.DB, log *logger.Logger) *Library {
	return &Library{db: db, logger: log.WithComponent("library")}
}

// LibraryQuery narrows and orders a library listing. Zero values mean
// unfiltered, sorted by most recently added, first page of the default size.
type LibraryQuery struct {
	SearchTerm string
	Platform   string
	Genre      string
	Store      string // steam, epic or gog
	SortBy     string // name, released, rating, metacritic or added
	SortOrder  string // asc or desc
	Page       int
	PageSize   int
}

// LibraryPage is one page of a filtered listing plus paging hints.
type LibraryPage struct {
	Games      []domain.LibraryGame `json:"games"`
	TotalCount int                  `json:"totalCount"`
	HasMore    bool                 `json:"hasMore"`
}

// LibraryFacets lists the distinct filterable values present in a library.
type LibraryFacets struct {
	Platforms []string `json:"platforms"`
	Genres    []string `json:"genres"`
	Stores    []string `json:"stores"`
}

// List returns one page of the user's library. Filtering and ordering happen
// in memory over the full collection, which stays small enough for that to be
// the simpler trade.
func (l *Library) List(userID string, q LibraryQuery) (*LibraryPage, error) {
	games, err := l.db.ListUserGames(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	filtered := games[:0:0]
	for _, g := range games {
		if matchesQuery(&g, q) {
			filtered = append(filtered, g)
		}
	}
	sortGames(filtered, q.SortBy, q.SortOrder)

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = constants.DefaultItemsPerPage
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return &LibraryPage{
		Games:      filtered[start:end],
		TotalCount: len(filtered),
		HasMore:    end < len(filtered),
	}, nil
}

// Facets collects the distinct platform, genre and storefront values across
// the user's whole library, each list sorted alphabetically.
func (l *Library) Facets(userID string) (*LibraryFacets, error) {
	games, err := l.db.ListUserGames(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	platforms := map[string]struct{}{}
	genres := map[string]struct{}{}
	stores := map[string]struct{}{}
	for _, g := range games {
		for _, p := range g.Platforms {
			platforms[p] = struct{}{}
		}
		for _, gn := range g.Genres {
			genres[gn] = struct{}{}
		}
		if g.OwnedOnSteam {
			stores["steam"] = struct{}{}
		}
		if g.OwnedOnEpic {
			stores["epic"] = struct{}{}
		}
		if g.OwnedOnGog {
			stores["gog"] = struct{}{}
		}
	}

	return &LibraryFacets{
		Platforms: sortedKeys(platforms),
		Genres:    sortedKeys(genres),
		Stores:    sortedKeys(stores),
	}, nil
}

// Game returns a single library entry, or nil when the user does not own it.
func (l *Library) Game(userID, gameID string) (*domain.LibraryGame, error) {
	game, err := l.db.GetGame(gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ug, err := l.db.GetOwnership(userID, gameID)
	if err != nil {
		return nil, err
	}
	if ug == nil {
		return nil, nil
	}
	return &domain.LibraryGame{
		CatalogGame:  *game,
		UserAddedAt:  ug.AddedAt,
		OwnedOnSteam: ug.OwnedOnSteam,
		OwnedOnEpic:  ug.OwnedOnEpic,
		OwnedOnGog:   ug.OwnedOnGog,
	}, nil
}

// SetOwnership replaces the storefront flags on an existing entry. Unlike an
// import, flags given as false here are cleared.
func (l *Library) SetOwnership(userID, gameID string, flags domain.StoreFlags) error {
	return l.db.ReplaceOwnershipFlags(userID, gameID, flags)
}

// Remove drops the game from the user's library. The shared catalog row stays.
func (l *Library) Remove(userID, gameID string) (bool, error) {
	return l.db.DeleteOwnership(userID, gameID)
}

func (l *Library) Preferences(userID string) (*domain.UserPreferences, error) {
	return l.db.GetPreferences(userID)
}

func (l *Library) SavePreferences(userID string, prefs *domain.UserPreferences) error {
	prefs.UserID = userID
	if prefs.ViewMode != domain.ViewModeGrid && prefs.ViewMode != domain.ViewModeTable {
		return fmt.Errorf("invalid view mode: %s", prefs.ViewMode)
	}
	if prefs.ItemsPerPage <= 0 {
		prefs.ItemsPerPage = constants.DefaultItemsPerPage
	}
	return l.db.SavePreferences(prefs)
}

func matchesQuery(g *domain.LibraryGame, q LibraryQuery) bool {
	if term := strings.ToLower(strings.TrimSpace(q.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(g.Name), term) &&
			!containsFold(g.Genres, term) &&
			!containsFold(g.Platforms, term) {
			return false
		}
	}
	if q.Platform != "" && !containsFold(g.Platforms, strings.ToLower(q.Platform)) {
		return false
	}
	if q.Genre != "" && !containsFold(g.Genres, strings.ToLower(q.Genre)) {
		return false
	}
	switch q.Store {
	case "":
	case "steam":
		if !g.OwnedOnSteam {
			return false
		}
	case "epic":
		if !g.OwnedOnEpic {
			return false
		}
	case "gog":
		if !g.OwnedOnGog {
			return false
		}
	default:
		return false
	}
	return true
}

// containsFold reports whether any list entry contains term as a
// case-insensitive substring. term must already be lowercased.
func containsFold(list domain.StringSlice, term string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func sortGames(games []domain.LibraryGame, sortBy, order string) {
	if sortBy == "" {
		sortBy = "added"
	}
	desc := order == "desc" || (order == "" && sortBy != "name")

	sort.SliceStable(games, func(i, j int) bool {
		a, b := &games[i], &games[j]

		// Entries missing the sort field go last in either direction.
		aMissing, bMissing := missingField(a, sortBy), missingField(b, sortBy)
		if aMissing != bMissing {
			return bMissing
		}

		less, equal := compareGames(a, b, sortBy)
		if equal {
			// Stable tie-break on name keeps pages deterministic.
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		if desc {
			return !less
		}
		return less
	})
}

func missingField(g *domain.LibraryGame, sortBy string) bool {
	switch sortBy {
	case "released":
		return g.Released == nil
	case "rating":
		return g.Rating == nil
	case "metacritic":
		return g.Metacritic == nil
	default:
		return false
	}
}

// compareGames orders two entries on one field, missing values treated
// as equal since missingField has already separated them out.
func compareGames(a, b *domain.LibraryGame, sortBy string) (less, equal bool) {
	switch sortBy {
	case "name":
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		return an < bn, an == bn
	case "released":
		return compareOptStrings(a.Released, b.Released)
	case "rating":
		return compareOptFloats(a.Rating, b.Rating)
	case "metacritic":
		if a.Metacritic == nil || b.Metacritic == nil {
			return false, true
		}
		return *a.Metacritic < *b.Metacritic, *a.Metacritic == *b.Metacritic
	default: // added
		return a.UserAddedAt.Before(b.UserAddedAt), a.UserAddedAt.Equal(b.UserAddedAt)
	}
}

func compareOptStrings(a, b *string) (less, equal bool) {
	if a == nil || b == nil {
		return false, true
	}
	return *a < *b, *a == *b
}

func compareOptFloats(a, b *float64) (less, equal bool) {
	if a == nil || b == nil {
		return false, true
	}
	return *a < *b, *a == *b
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
