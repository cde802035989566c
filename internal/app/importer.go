// Package app orchestrates catalog imports and library queries on top of the
// store and the external metadata clients.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boda2004/game-catalog/internal/domain"
	"github.com/boda2004/game-catalog/internal/logger"
	"github.com/boda2004/game-catalog/internal/rawg"
	"github.com/boda2004/game-catalog/internal/steam"
	"github.com/boda2004/game-catalog/internal/store"
)

// Importer runs batch imports item by item, recording progress on an
// import job so callers can observe a long run while it happens.
type Importer struct {
	db     *store.DB
	rawg   *rawg.Client
	steam  *steam.Client
	logger *logger.Logger
}

func NewImporter(db *store.DB, rawgClient *rawg.Client, steamClient *steam.Client, log *logger.Logger) *Importer {
	return &Importer{
		db:     db,
		rawg:   rawgClient,
		steam:  steamClient,
		logger: log.WithComponent("importer"),
	}
}

// SteamImportOptions selects which owned games to pull from a Steam account.
type SteamImportOptions struct {
	// Account is a 17-digit steamID64, a profile URL, or a vanity name.
	Account     string
	MinPlaytime time.Duration
	// Limit caps the number of games considered, 0 means no cap.
	Limit int
	// JobID names a pre-created pending job to attach to; empty creates one.
	JobID string
}

// ImportByNames resolves each name against the catalog provider and adds the
// matches to the user's library with the given storefront flags. One result is
// returned per input name, in input order. Item failures are reported in the
// results, not as an error; the returned error covers conditions that prevent
// the run from starting at all.
func (imp *Importer) ImportByNames(ctx context.Context, userID string, names []string, flags domain.StoreFlags, jobID string) ([]domain.ImportResult, error) {
	return imp.run(ctx, userID, domain.JobTypeBulk, jobID, names, flags)
}

// ImportFromSteam pulls the account's owned games, filters them per opts and
// imports the surviving names with the steam flag set.
func (imp *Importer) ImportFromSteam(ctx context.Context, userID string, opts SteamImportOptions) ([]domain.ImportResult, error) {
	if !imp.steam.HasAPIKey() {
		imp.failIfPresent(opts.JobID, userID, domain.ErrMissingSteamAPIKey)
		return nil, domain.ErrMissingSteamAPIKey
	}

	steamID, err := imp.steam.ResolveAccountID(ctx, opts.Account)
	if err != nil {
		imp.failIfPresent(opts.JobID, userID, err)
		return nil, fmt.Errorf("failed to resolve steam account: %w", err)
	}

	owned, err := imp.steam.GetOwnedGames(ctx, steamID)
	if err != nil {
		imp.failIfPresent(opts.JobID, userID, err)
		return nil, fmt.Errorf("failed to fetch owned games: %w", err)
	}

	names := steam.SelectNames(owned, opts.MinPlaytime, opts.Limit)
	imp.logger.Info("steam library fetched",
		"steam_id", steamID,
		"owned", len(owned),
		"selected", len(names))

	return imp.run(ctx, userID, domain.JobTypeSteam, opts.JobID, names, domain.StoreFlags{Steam: true})
}

// AddGame adds a single game to the user's library by its RAWG id, the path
// used after a catalog search where the id is already known. No job is
// involved; the resolved catalog entry is returned alongside whether the user
// already owned it.
func (imp *Importer) AddGame(ctx context.Context, userID string, rawgID int64, flags domain.StoreFlags) (*domain.CatalogGame, bool, error) {
	if !imp.rawg.HasAPIKey() {
		return nil, false, domain.ErrMissingAPIKey
	}

	game, err := imp.rawg.GetGameDetails(ctx, rawgID)
	if err != nil {
		return nil, false, err
	}

	stored, err := imp.db.GetOrInsertGame(game)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store catalog game: %w", err)
	}

	alreadyOwned, err := imp.db.UpsertOwnership(userID, stored.ID, flags)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record ownership: %w", err)
	}

	imp.logger.WithUser(userID).Info("game added", "rawg_id", rawgID, "name", stored.Name, "already_owned", alreadyOwned)
	return stored, alreadyOwned, nil
}

func (imp *Importer) run(ctx context.Context, userID string, jobType domain.JobType, jobID string, names []string, flags domain.StoreFlags) ([]domain.ImportResult, error) {
	if _, err := imp.db.GetUser(userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			imp.failIfPresent(jobID, userID, domain.ErrNotAuthenticated)
			return nil, domain.ErrNotAuthenticated
		}
		return nil, err
	}

	job, err := imp.prepareJob(userID, jobType, jobID, len(names))
	if err != nil {
		return nil, err
	}
	log := imp.logger.WithJob(job.ID, string(job.Type)).WithUser(userID)

	if !imp.rawg.HasAPIKey() {
		imp.failJob(job.ID, domain.ErrMissingAPIKey)
		return nil, domain.ErrMissingAPIKey
	}

	log.Info("import started", "total", len(names))
	results := make([]domain.ImportResult, 0, len(names))
	added := 0
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			imp.failJob(job.ID, err)
			return results, err
		}

		res := imp.importOne(ctx, userID, name, flags)
		results = append(results, res)
		if res.Success {
			added++
		} else {
			log.Warn("import item failed", "name", name, "reason", res.Error)
		}

		// Progress counts every processed item, succeeded or not.
		if err := imp.db.UpdateJobProgress(job.ID, i+1); err != nil {
			log.Warn("failed to record progress", "error", err)
		}
	}

	if err := imp.db.CompleteJob(job.ID); err != nil {
		log.Warn("failed to mark job completed", "error", err)
	}
	log.Info("import finished", "total", len(names), "added", added)
	return results, nil
}

// importOne performs the search-then-details resolution for a single name and
// records ownership for the user. Every failure mode maps to a short
// user-facing message; the underlying error is only logged.
func (imp *Importer) importOne(ctx context.Context, userID, name string, flags domain.StoreFlags) domain.ImportResult {
	game, err := imp.rawg.ResolveByName(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, rawg.ErrNotFound):
			return domain.ImportResult{Name: name, Error: "Game not found"}
		case errors.Is(err, rawg.ErrDetailFetch):
			return domain.ImportResult{Name: name, Error: "Failed to get details"}
		default:
			return domain.ImportResult{Name: name, Error: "Search failed"}
		}
	}

	stored, err := imp.db.GetOrInsertGame(game)
	if err != nil {
		imp.logger.Error("failed to store catalog game", "name", name, "error", err)
		return domain.ImportResult{Name: name, Error: "Failed to add game"}
	}

	alreadyOwned, err := imp.db.UpsertOwnership(userID, stored.ID, flags)
	if err != nil {
		imp.logger.Error("failed to record ownership", "name", name, "error", err)
		return domain.ImportResult{Name: name, Error: "Failed to add game"}
	}

	return domain.ImportResult{
		Name:         name,
		Success:      true,
		AddedName:    stored.Name,
		AlreadyOwned: alreadyOwned,
	}
}

// prepareJob either creates a fresh running job or transitions a pre-created
// pending job to running with the now-known total.
func (imp *Importer) prepareJob(userID string, jobType domain.JobType, jobID string, total int) (*domain.ImportJob, error) {
	if jobID == "" {
		return imp.db.CreateJob(userID, jobType, total)
	}

	job, err := imp.db.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	// A job belongs to the user that created it; anyone else sees not-found.
	if job == nil || job.UserID != userID {
		return nil, fmt.Errorf("import job %s not found", jobID)
	}
	if err := imp.db.StartJob(jobID, total); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatusRunning
	job.Total = total
	return job, nil
}

func (imp *Importer) failJob(jobID string, cause error) {
	if err := imp.db.FailJob(jobID, cause.Error()); err != nil {
		imp.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// failIfPresent marks a pre-created job failed when a run dies before a job
// would have been created for it. Jobs owned by other users are left alone.
func (imp *Importer) failIfPresent(jobID, userID string, cause error) {
	if jobID == "" {
		return
	}
	job, err := imp.db.GetJob(jobID)
	if err != nil {
		imp.logger.Error("failed to load job", "job_id", jobID, "error", err)
		return
	}
	if job == nil || job.UserID != userID {
		return
	}
	imp.failJob(jobID, cause)
}
