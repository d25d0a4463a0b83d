package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/domain"
)

// Aggregator fans out to every source adapter and writes their raw listings.
type Aggregator struct {
	sources []domain.SourceAdapter
	workers int64
}

func NewAggregator(sources []domain.SourceAdapter, workers int) *Aggregator {
	if workers <= 0 {
		workers = len(sources)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Aggregator{sources: sources, workers: int64(workers)}
}

type sourceResult struct {
	movies []domain.RawMovie
	err    error
}

// FetchAll waits for every adapter to settle. A failing adapter does not stop
// the others, but any failure fails the whole call and nothing is written.
// On success it returns the number of movies inserted.
func (a *Aggregator) FetchAll(ctx context.Context, tx domain.CatalogTx) (int, error) {
	results := make([]sourceResult, len(a.sources))
	sem := semaphore.NewWeighted(a.workers)

	// plain Group: a sibling failure must not cancel the others
	var g errgroup.Group
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].err = &domain.FetchError{Source: src.Name(), Err: err}
				return results[i].err
			}
			defer sem.Release(1)

			start := time.Now()
			movies, err := src.FetchMovies(ctx)
			observability.ObserveSource(src.Name(), err)
			if err != nil {
				var fe *domain.FetchError
				if !errors.As(err, &fe) {
					err = &domain.FetchError{Source: src.Name(), Err: err}
				}
				log.Warn().Str("source", src.Name()).Err(err).Msg("source fetch failed")
				results[i].err = err
				return err
			}
			log.Info().
				Str("source", src.Name()).
				Int("movies", len(movies)).
				Dur("took", time.Since(start)).
				Msg("source fetch ok")
			results[i].movies = movies
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}

	inserted := 0
	for i, src := range a.sources {
		for _, rm := range consolidateRaw(results[i].movies) {
			if _, err := tx.InsertMovie(ctx, rm.Movie, rm.Showings); err != nil {
				return inserted, fmt.Errorf("write %s listings: %w", src.Name(), err)
			}
			inserted++
		}
	}
	return inserted, nil
}

// consolidateRaw merges entries of one source that share an originalTitle,
// keeping the first entry's fields and appending the others' showings.
// Entries without an originalTitle pass through untouched.
func consolidateRaw(in []domain.RawMovie) []domain.RawMovie {
	out := make([]domain.RawMovie, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, rm := range in {
		if rm.Movie.OriginalTitle == nil {
			out = append(out, rm)
			continue
		}
		key := *rm.Movie.OriginalTitle
		if i, ok := seen[key]; ok {
			out[i].Showings = append(out[i].Showings, rm.Showings...)
			continue
		}
		seen[key] = len(out)
		rm.Showings = append([]domain.Showing(nil), rm.Showings...)
		out = append(out, rm)
	}
	return out
}
