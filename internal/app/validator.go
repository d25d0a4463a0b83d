package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/domain"
)

// InvalidMovie is captured before the movie is deleted, since the report is
// rendered after all deletions.
type InvalidMovie struct {
	ID            int64
	OriginalTitle *string
	Earliest      *domain.Showing
	Violations    []domain.Violation
}

type InvalidFeatured struct {
	ID            int64
	OriginalTitle *string
	Violations    []domain.Violation
}

// Findings is the outcome of one validation pass. Movies and Featured are in
// encounter order.
type Findings struct {
	Movies   []InvalidMovie
	Featured []InvalidFeatured
}

// Validator audits the catalog: incomplete movies are deleted, incomplete
// featured entries are detached from their movie.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) Validate(ctx context.Context, tx domain.CatalogTx) (Findings, error) {
	var out Findings
	start := time.Now()

	movies, err := tx.ListMovies(ctx)
	if err != nil {
		return out, &domain.ValidationStoreError{Op: "list movies", Err: err}
	}
	for _, m := range movies {
		vs := domain.CheckMovie(m)
		if len(vs) == 0 {
			continue
		}
		inv := InvalidMovie{ID: m.ID, OriginalTitle: domain.CloneStr(m.OriginalTitle), Violations: vs}
		if s, ok := m.EarliestShowing(); ok {
			inv.Earliest = &s
		}
		out.Movies = append(out.Movies, inv)
	}
	for _, inv := range out.Movies {
		if err := tx.DeleteMovie(ctx, inv.ID); err != nil {
			return out, &domain.ValidationStoreError{Op: "delete movie", Err: err}
		}
		log.Info().Int64("movie_id", inv.ID).Strs("fields", domain.FieldNames(inv.Violations)).Msg("invalid movie removed")
	}

	featured, err := tx.ListFeatured(ctx)
	if err != nil {
		return out, &domain.ValidationStoreError{Op: "list featured", Err: err}
	}
	for _, f := range featured {
		vs := domain.CheckFeatured(f)
		if len(vs) == 0 {
			continue
		}
		out.Featured = append(out.Featured, InvalidFeatured{
			ID:            f.ID,
			OriginalTitle: domain.CloneStr(f.OriginalTitle),
			Violations:    vs,
		})
		if f.MovieID == nil {
			continue
		}
		f.MovieID = nil
		if err := tx.UpdateFeatured(ctx, f); err != nil {
			return out, &domain.ValidationStoreError{Op: "detach featured", Err: err}
		}
		log.Info().Int64("featured_id", f.ID).Strs("fields", domain.FieldNames(vs)).Msg("invalid featured detached")
	}

	observability.ObserveInvalid("movie", len(out.Movies))
	observability.ObserveInvalid("featured", len(out.Featured))
	observability.ObserveStage("validate", time.Since(start))
	return out, nil
}
