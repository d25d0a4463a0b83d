// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/app"
	"cinema_catalog/internal/domain"
)

// Updater starts one update run and blocks until it finishes.
type Updater interface {
	Run(ctx context.Context) (app.RunResult, error)
}

type Reader interface {
	ListMovies(ctx context.Context) ([]app.MovieView, error)
	LastReport(ctx context.Context) (app.LastReport, error)
}

type Handlers struct {
	Updates Updater
	Q       Reader
	// RunTimeout bounds POST /v1/updates; reads use a fixed 15s.
	RunTimeout time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type runSummary struct {
	RunID           string `json:"run_id"`
	Inserted        int    `json:"inserted"`
	Remapped        int    `json:"remapped"`
	ProfilesCreated int    `json:"profiles_created"`
	ProfilesApplied int    `json:"profiles_applied"`
	ShowingsMoved   int64  `json:"showings_moved"`
	OrphansRemoved  int64  `json:"orphans_removed"`
	InvalidMovies   int    `json:"invalid_movies"`
	InvalidFeatured int    `json:"invalid_featured"`
	DurationMS      int64  `json:"duration_ms"`
	Report          string `json:"report"`
}

func (s *Server) MountHandlers(h *Handlers) {
	runTimeout := h.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
		r.Get("/v1/movies", h.listMovies)
		r.Get("/v1/updates/last", h.lastReport)
	})
	s.mux.With(Timeout(runTimeout)).Post("/v1/updates", h.runUpdate)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable serves v with a weak ETag and answers 304 on a match.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any, what string) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msgf("failed to write %s body", what)
	}
}

func (h *Handlers) listMovies(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListMovies(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list movies failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "catalog unavailable")
		return
	}
	writeCacheable(w, r, out, "listMovies")
}

func (h *Handlers) lastReport(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Q.LastReport(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "no update has finished yet")
		return
	case err != nil:
		log.Error().Err(err).Msg("read last report failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "last report unavailable")
		return
	}
	writeCacheable(w, r, lr, "lastReport")
}

func (h *Handlers) runUpdate(w http.ResponseWriter, r *http.Request) {
	res, err := h.Updates.Run(r.Context())
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		writeProblem(w, http.StatusConflict, "Conflict", "an update is already running")
		return
	case err != nil:
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			writeProblem(w, http.StatusBadGateway, "Update Failed", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Update Failed", err.Error())
		return
	}

	sum := runSummary{
		RunID:           res.RunID,
		Inserted:        res.Inserted,
		Remapped:        res.Organize.Remapped,
		ProfilesCreated: res.Organize.ProfilesCreated,
		ProfilesApplied: res.Organize.ProfilesApplied,
		ShowingsMoved:   res.Organize.ShowingsMoved,
		OrphansRemoved:  res.Organize.OrphansRemoved,
		InvalidMovies:   len(res.Findings.Movies),
		InvalidFeatured: len(res.Findings.Featured),
		DurationMS:      res.Duration.Milliseconds(),
		Report:          res.Report,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		log.Error().Err(err).Msg("failed to write runUpdate body")
	}
}
