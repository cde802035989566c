package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boda2004/game-catalog/internal/app"
	"github.com/boda2004/game-catalog/internal/constants"
	"github.com/boda2004/game-catalog/internal/domain"
	"github.com/boda2004/game-catalog/internal/rawg"
	"github.com/boda2004/game-catalog/internal/steam"
	"github.com/boda2004/game-catalog/internal/store"
)

type libraryQueryRequest struct {
	Search    string `json:"search"`
	Platform  string `json:"platform"`
	Genre     string `json:"genre"`
	Store     string `json:"store"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type searchQueryRequest struct {
	Query    string `json:"q"`
	PageSize int    `json:"page_size"`
}

type importRequest struct {
	Names  []string          `json:"names"`
	Stores domain.StoreFlags `json:"stores"`
	JobID  string            `json:"jobId"`
}

type steamImportRequest struct {
	Account            string `json:"account"`
	MinPlaytimeMinutes int64  `json:"minPlaytimeMinutes"`
	Limit              int    `json:"limit"`
	JobID              string `json:"jobId"`
}

type createJobRequest struct {
	Type domain.JobType `json:"type"`
}

type jobResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toJobResponse(job *domain.ImportJob) jobResponse {
	return jobResponse{
		ID:        job.ID,
		Type:      string(job.Type),
		Status:    string(job.Status),
		Total:     job.Total,
		Completed: job.Completed,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// SearchCatalog proxies a free-text search to the catalog provider.
func (h *Handler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	var q searchQueryRequest
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}
	if strings.TrimSpace(q.Query) == "" {
		h.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	if !h.RAWG.HasAPIKey() {
		h.respondError(w, http.StatusServiceUnavailable, domain.ErrMissingAPIKey.Error())
		return
	}
	if q.PageSize <= 0 {
		q.PageSize = constants.SearchPageSize
	}

	results, err := h.RAWG.Search(r.Context(), q.Query, q.PageSize)
	if err != nil {
		h.Logger.Error("catalog search failed", "query", q.Query, "error", err)
		h.respondError(w, http.StatusBadGateway, "search failed")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

type addGameRequest struct {
	RAWGID int64             `json:"rawgId"`
	Stores domain.StoreFlags `json:"stores"`
}

// AddGame adds one game by its RAWG id, the direct path from a search hit.
func (h *Handler) AddGame(w http.ResponseWriter, r *http.Request) {
	var req addGameRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RAWGID <= 0 {
		h.respondError(w, http.StatusBadRequest, "rawgId is required")
		return
	}

	game, alreadyOwned, err := h.Importer.AddGame(r.Context(), h.userID(r), req.RAWGID, req.Stores)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingAPIKey):
			h.respondError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, rawg.ErrDetailFetch):
			h.respondError(w, http.StatusBadGateway, "failed to get details")
		default:
			h.Logger.Error("failed to add game", "rawg_id", req.RAWGID, "error", err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"game":         game,
		"alreadyOwned": alreadyOwned,
	})
}

// OwnedRAWGIDs lists the RAWG ids already in the library, so search results
// can be marked as owned.
func (h *Handler) OwnedRAWGIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.DB.ListOwnedRAWGIDs(h.userID(r))
	if err != nil {
		h.Logger.Error("failed to list owned ids", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"rawgIds": ids})
}

func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	var req libraryQueryRequest
	if err := h.decoder.Decode(&req, r.URL.Query()); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	page, err := h.Library.List(h.userID(r), app.LibraryQuery{
		SearchTerm: req.Search,
		Platform:   req.Platform,
		Genre:      req.Genre,
		Store:      req.Store,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		h.Logger.Error("failed to list library", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusOK, page)
}

func (h *Handler) LibraryFilters(w http.ResponseWriter, r *http.Request) {
	facets, err := h.Library.Facets(h.userID(r))
	if err != nil {
		h.Logger.Error("failed to collect facets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusOK, facets)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.Library.Game(h.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.Logger.Error("failed to load game", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if game == nil {
		h.respondError(w, http.StatusNotFound, "game not found in collection")
		return
	}
	h.respondJSON(w, http.StatusOK, game)
}

func (h *Handler) UpdateStores(w http.ResponseWriter, r *http.Request) {
	var flags domain.StoreFlags
	if err := h.decodeBody(r, &flags); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.Library.SetOwnership(h.userID(r), chi.URLParam(r, "id"), flags)
	if errors.Is(err, store.ErrNotOwned) {
		h.respondError(w, http.StatusNotFound, "game not found in collection")
		return
	}
	if err != nil {
		h.Logger.Error("failed to update store flags", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) RemoveGame(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Library.Remove(h.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.Logger.Error("failed to remove game", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !removed {
		h.respondError(w, http.StatusNotFound, "game not found in collection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Library.Preferences(h.userID(r))
	if err != nil {
		h.Logger.Error("failed to load preferences", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusOK, prefs)
}

func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs domain.UserPreferences
	if err := h.decodeBody(r, &prefs); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Library.SavePreferences(h.userID(r), &prefs); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, prefs)
}

// ImportGames runs a batch import synchronously and returns the per-item
// results. Progress is observable on the job while the request runs.
func (h *Handler) ImportGames(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	names := make([]string, 0, len(req.Names))
	for _, n := range req.Names {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		h.respondError(w, http.StatusBadRequest, "names is required")
		return
	}

	results, err := h.Importer.ImportByNames(r.Context(), h.userID(r), names, req.Stores, req.JobID)
	if err != nil {
		h.respondImportError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) ImportSteam(w http.ResponseWriter, r *http.Request) {
	var req steamImportRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Account) == "" {
		h.respondError(w, http.StatusBadRequest, "account is required")
		return
	}

	results, err := h.Importer.ImportFromSteam(r.Context(), h.userID(r), app.SteamImportOptions{
		Account:     req.Account,
		MinPlaytime: time.Duration(req.MinPlaytimeMinutes) * time.Minute,
		Limit:       req.Limit,
		JobID:       req.JobID,
	})
	if err != nil {
		h.respondImportError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) respondImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingAPIKey), errors.Is(err, domain.ErrMissingSteamAPIKey):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, steam.ErrInvalidAccountID), errors.Is(err, steam.ErrVanityNotResolved):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		h.respondError(w, http.StatusUnauthorized, err.Error())
	default:
		h.Logger.Error("import failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "import failed")
	}
}

// CreateJob pre-creates a pending job so a client can watch progress from the
// first item of a subsequent import request.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type != domain.JobTypeBulk && req.Type != domain.JobTypeSteam {
		h.respondError(w, http.StatusBadRequest, "type must be bulk or steam")
		return
	}

	job, err := h.DB.CreatePendingJob(h.userID(r), req.Type)
	if err != nil {
		h.Logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondJSON(w, http.StatusCreated, toJobResponse(job))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.DB.ListJobs(h.userID(r), 20)
	if err != nil {
		h.Logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.DB.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		h.Logger.Error("failed to load job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if job == nil || job.UserID != h.userID(r) {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	h.respondJSON(w, http.StatusOK, toJobResponse(job))
}
