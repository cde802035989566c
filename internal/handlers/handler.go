// Package handlers exposes the JSON API over chi.
package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form/v4"

	"github.com/boda2004/game-catalog/internal/app"
	"github.com/boda2004/game-catalog/internal/config"
	"github.com/boda2004/game-catalog/internal/logger"
	"github.com/boda2004/game-catalog/internal/rawg"
	"github.com/boda2004/game-catalog/internal/store"
)

type contextKey string

const userIDKey contextKey = "userID"

type Handler struct {
	Config   *config.Config
	DB       *store.DB
	RAWG     *rawg.Client
	Importer *app.Importer
	Library  *app.Library
	Logger   *logger.Logger

	decoder *form.Decoder
}

func NewHandler(cfg *config.Config, db *store.DB, rawgClient *rawg.Client, importer *app.Importer, library *app.Library, log *logger.Logger) *Handler {
	decoder := form.NewDecoder()
	decoder.SetTagName("json")
	return &Handler{
		Config:   cfg,
		DB:       db,
		RAWG:     rawgClient,
		Importer: importer,
		Library:  library,
		Logger:   log.WithComponent("http"),
		decoder:  decoder,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.basicAuth)

		r.Get("/search", h.SearchCatalog)

		r.Route("/library", func(r chi.Router) {
			r.Get("/", h.ListLibrary)
			r.Post("/", h.AddGame)
			r.Get("/filters", h.LibraryFilters)
			r.Get("/rawg-ids", h.OwnedRAWGIDs)
			r.Get("/{id}", h.GetGame)
			r.Patch("/{id}/stores", h.UpdateStores)
			r.Delete("/{id}", h.RemoveGame)
		})

		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.SavePreferences)

		r.Post("/import", h.ImportGames)
		r.Post("/import/steam", h.ImportSteam)

		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)
	})
}

// basicAuth gates the API behind the single configured account and resolves
// it to a user row, stored on the request context for handlers.
func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(username), []byte(h.Config.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(password), []byte(h.Config.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="gamecatalog"`)
			h.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.DB.GetOrCreateUser(h.Config.Username)
		if err != nil {
			h.Logger.Error("failed to resolve user", "error", err)
			h.respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) decodeBody(r *http.Request, v any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
