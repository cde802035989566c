package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boda2004/game-catalog/internal/domain"
	"github.com/boda2004/game-catalog/internal/httpclient"
	"github.com/boda2004/game-catalog/internal/logger"
	"github.com/boda2004/game-catalog/internal/rawg"
	"github.com/boda2004/game-catalog/internal/steam"
	"github.com/boda2004/game-catalog/internal/store"
)

// catalogFixture drives the fake catalog API: searching for the key returns
// one hit, fetching its id returns the detail record. Non-zero statuses force
// the corresponding endpoint to fail.
type catalogFixture struct {
	id           int64
	name         string
	searchStatus int
	detailStatus int
}

func newCatalogServer(t *testing.T, fixtures map[string]catalogFixture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/games" {
			query := r.URL.Query().Get("search")
			f, ok := fixtures[query]
			if !ok {
				fmt.Fprint(w, `{"results":[]}`)
				return
			}
			if f.searchStatus != 0 {
				w.WriteHeader(f.searchStatus)
				return
			}
			fmt.Fprintf(w, `{"results":[{"id":%d,"name":%q,"slug":"slug"}]}`, f.id, f.name)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/games/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		require.NoError(t, err)
		for _, f := range fixtures {
			if f.id != id {
				continue
			}
			if f.detailStatus != 0 {
				w.WriteHeader(f.detailStatus)
				return
			}
			fmt.Fprintf(w, `{
				"id": %d,
				"name": %q,
				"slug": "slug",
				"released": "2007-09-25",
				"rating": 4.42,
				"metacritic": 94,
				"platforms": [{"platform": {"name": "Xbox 360"}}],
				"genres": [{"name": "Shooter"}]
			}`, f.id, f.name)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestImporter(t *testing.T, rawgURL, rawgKey, steamURL, steamKey string) (*Importer, *store.DB, string) {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := db.GetOrCreateUser("tester")
	require.NoError(t, err)

	retry := httpclient.RetryOptions{MaxRetries: 0}
	rawgClient := rawg.NewClient(httpclient.NewClient(nil, &retry), rawgURL, rawgKey)
	steamClient := steam.NewClient(steamURL, steamKey)
	imp := NewImporter(db, rawgClient, steamClient, logger.Default())
	return imp, db, user.ID
}

func TestImporter_ImportByNames(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")

	results, err := imp.ImportByNames(context.Background(), userID, []string{"Halo 3"}, domain.StoreFlags{Steam: true}, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Halo 3", results[0].Name)
	assert.True(t, results[0].Success)
	assert.Equal(t, "Halo 3", results[0].AddedName)
	assert.False(t, results[0].AlreadyOwned)
	assert.Empty(t, results[0].Error)

	game, err := db.GetGameByRAWGID(9717)
	require.NoError(t, err)
	assert.Equal(t, "Halo 3", game.Name)
	require.NotNil(t, game.Rating)
	assert.InDelta(t, 4.42, *game.Rating, 0.001)
	assert.Equal(t, domain.StringSlice{"Xbox 360"}, game.Platforms)

	ug, err := db.GetOwnership(userID, game.ID)
	require.NoError(t, err)
	require.NotNil(t, ug)
	assert.True(t, ug.OwnedOnSteam)
	assert.False(t, ug.OwnedOnEpic)

	jobs, err := db.ListJobs(userID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, domain.JobTypeBulk, jobs[0].Type)
	assert.Equal(t, 1, jobs[0].Total)
	assert.Equal(t, 1, jobs[0].Completed)
}

func TestImporter_ReimportMergesFlags(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")
	ctx := context.Background()

	_, err := imp.ImportByNames(ctx, userID, []string{"Halo 3"}, domain.StoreFlags{Steam: true}, "")
	require.NoError(t, err)

	results, err := imp.ImportByNames(ctx, userID, []string{"Halo 3"}, domain.StoreFlags{Epic: true}, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.True(t, results[0].AlreadyOwned)

	count, err := db.CountGames()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	game, err := db.GetGameByRAWGID(9717)
	require.NoError(t, err)
	ug, err := db.GetOwnership(userID, game.ID)
	require.NoError(t, err)
	assert.True(t, ug.OwnedOnSteam, "previously set flag must survive")
	assert.True(t, ug.OwnedOnEpic)
	assert.False(t, ug.OwnedOnGog)
}

func TestImporter_PerItemFailures(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Good":         {id: 1, name: "Good Game"},
		"SearchBroken": {id: 2, name: "SearchBroken", searchStatus: http.StatusInternalServerError},
		"DetailBroken": {id: 3, name: "DetailBroken", detailStatus: http.StatusInternalServerError},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")

	names := []string{"Good", "SearchBroken", "Unknown", "DetailBroken"}
	results, err := imp.ImportByNames(context.Background(), userID, names, domain.StoreFlags{}, "")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Success)
	assert.Equal(t, "Good Game", results[0].AddedName)

	assert.False(t, results[1].Success)
	assert.Equal(t, "Search failed", results[1].Error)

	assert.False(t, results[2].Success)
	assert.Equal(t, "Game not found", results[2].Error)

	assert.False(t, results[3].Success)
	assert.Equal(t, "Failed to get details", results[3].Error)

	// Failed items still count as processed; the run itself completes.
	jobs, err := db.ListJobs(userID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 4, jobs[0].Total)
	assert.Equal(t, 4, jobs[0].Completed)
}

func TestImporter_MissingAPIKeyFailsJob(t *testing.T) {
	imp, db, userID := newTestImporter(t, "http://unused.invalid", "", "", "")

	job, err := db.CreatePendingJob(userID, domain.JobTypeBulk)
	require.NoError(t, err)

	_, err = imp.ImportByNames(context.Background(), userID, []string{"Halo 3"}, domain.StoreFlags{}, job.ID)
	require.ErrorIs(t, err, domain.ErrMissingAPIKey)

	failed, err := db.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, domain.ErrMissingAPIKey.Error(), *failed.Error)
}

func TestImporter_UnknownUser(t *testing.T) {
	imp, _, _ := newTestImporter(t, "http://unused.invalid", "test-key", "", "")

	_, err := imp.ImportByNames(context.Background(), "no-such-user", []string{"Halo 3"}, domain.StoreFlags{}, "")
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestImporter_PendingJobTransitionsToRunning(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")

	job, err := db.CreatePendingJob(userID, domain.JobTypeBulk)
	require.NoError(t, err)

	_, err = imp.ImportByNames(context.Background(), userID, []string{"Halo 3"}, domain.StoreFlags{}, job.ID)
	require.NoError(t, err)

	done, err := db.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, 1, done.Total)
	assert.Equal(t, 1, done.Completed)
}

func TestImporter_ImportFromSteam(t *testing.T) {
	steamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "ResolveVanityURL"):
			json.NewEncoder(w).Encode(map[string]any{
				"response": map[string]any{"success": 1, "steamid": "76561197960287930"},
			})
		case strings.Contains(r.URL.Path, "GetOwnedGames"):
			assert.Equal(t, "76561197960287930", r.URL.Query().Get("steamid"))
			json.NewEncoder(w).Encode(map[string]any{
				"response": map[string]any{"games": []map[string]any{
					{"appid": 400, "name": "Portal", "playtime_forever": 600},
					{"appid": 620, "name": "Portal 2", "playtime_forever": 5},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(steamServer.Close)

	rawgServer := newCatalogServer(t, map[string]catalogFixture{
		"Portal": {id: 13536, name: "Portal"},
	})

	imp, db, userID := newTestImporter(t, rawgServer.URL, "rawg-key", steamServer.URL, "steam-key")

	results, err := imp.ImportFromSteam(context.Background(), userID, SteamImportOptions{
		Account:     "https://steamcommunity.com/id/gaben",
		MinPlaytime: 60 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "short-playtime games are filtered out")

	assert.True(t, results[0].Success)
	assert.Equal(t, "Portal", results[0].AddedName)

	game, err := db.GetGameByRAWGID(13536)
	require.NoError(t, err)
	ug, err := db.GetOwnership(userID, game.ID)
	require.NoError(t, err)
	assert.True(t, ug.OwnedOnSteam)

	jobs, err := db.ListJobs(userID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobTypeSteam, jobs[0].Type)
	assert.Equal(t, domain.JobStatusCompleted, jobs[0].Status)
}

func TestImporter_ImportFromSteam_MissingKey(t *testing.T) {
	imp, db, userID := newTestImporter(t, "http://unused.invalid", "rawg-key", "http://unused.invalid", "")

	job, err := db.CreatePendingJob(userID, domain.JobTypeSteam)
	require.NoError(t, err)

	_, err = imp.ImportFromSteam(context.Background(), userID, SteamImportOptions{
		Account: "gaben",
		JobID:   job.ID,
	})
	require.ErrorIs(t, err, domain.ErrMissingSteamAPIKey)

	failed, err := db.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
}

func TestImporter_RejectsForeignJob(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")

	other, err := db.GetOrCreateUser("someone-else")
	require.NoError(t, err)
	foreignJob, err := db.CreatePendingJob(other.ID, domain.JobTypeBulk)
	require.NoError(t, err)

	_, err = imp.ImportByNames(context.Background(), userID, []string{"Halo 3"}, domain.StoreFlags{}, foreignJob.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	// The other user's job is untouched.
	job, err := db.GetJob(foreignJob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Total)
}

func TestImporter_AddGame(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")
	ctx := context.Background()

	// Adding by id skips the search step entirely.
	game, alreadyOwned, err := imp.AddGame(ctx, userID, 9717, domain.StoreFlags{Epic: true})
	require.NoError(t, err)
	assert.False(t, alreadyOwned)
	assert.Equal(t, "Halo 3", game.Name)
	assert.Equal(t, int64(9717), game.RAWGID)

	ug, err := db.GetOwnership(userID, game.ID)
	require.NoError(t, err)
	require.NotNil(t, ug)
	assert.True(t, ug.OwnedOnEpic)

	_, alreadyOwned, err = imp.AddGame(ctx, userID, 9717, domain.StoreFlags{Steam: true})
	require.NoError(t, err)
	assert.True(t, alreadyOwned)

	ug, err = db.GetOwnership(userID, game.ID)
	require.NoError(t, err)
	assert.True(t, ug.OwnedOnEpic, "previously set flag must survive")
	assert.True(t, ug.OwnedOnSteam)

	ids, err := db.ListOwnedRAWGIDs(userID)
	require.NoError(t, err)
	assert.Equal(t, []int64{9717}, ids)

	// No job is created on the single-add path.
	jobs, err := db.ListJobs(userID, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestImporter_AddGame_Failures(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Broken": {id: 3, name: "Broken", detailStatus: http.StatusInternalServerError},
	})
	imp, _, userID := newTestImporter(t, server.URL, "test-key", "", "")
	ctx := context.Background()

	_, _, err := imp.AddGame(ctx, userID, 3, domain.StoreFlags{})
	require.ErrorIs(t, err, rawg.ErrDetailFetch)

	noKey, _, userID2 := newTestImporter(t, server.URL, "", "", "")
	_, _, err = noKey.AddGame(ctx, userID2, 3, domain.StoreFlags{})
	require.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestImporter_CanceledContextFailsJob(t *testing.T) {
	server := newCatalogServer(t, map[string]catalogFixture{
		"Halo 3": {id: 9717, name: "Halo 3"},
	})
	imp, db, userID := newTestImporter(t, server.URL, "test-key", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := imp.ImportByNames(ctx, userID, []string{"Halo 3"}, domain.StoreFlags{}, "")
	require.True(t, errors.Is(err, context.Canceled))

	jobs, err := db.ListJobs(userID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusFailed, jobs[0].Status)
}
