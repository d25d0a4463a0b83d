package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/domain"
)

// Organizer merges the freshly written catalog. Each stage reads the store
// again so it sees every write of the stage before it.
type Organizer struct{}

func NewOrganizer() *Organizer { return &Organizer{} }

type OrganizeStats struct {
	Remapped        int
	ProfilesApplied int
	ProfilesCreated int
	ShowingsMoved   int64
	OrphansRemoved  int64
}

func (o *Organizer) Organize(ctx context.Context, tx domain.CatalogTx) (OrganizeStats, error) {
	var st OrganizeStats
	stages := []struct {
		name string
		run  func(context.Context, domain.CatalogTx, *OrganizeStats) error
	}{
		{"remap_titles", o.remapTitles},
		{"apply_profiles", o.applyProfiles},
		{"consolidate_showings", o.consolidateShowings},
		{"cleanup", o.cleanup},
	}
	for _, s := range stages {
		start := time.Now()
		if err := s.run(ctx, tx, &st); err != nil {
			return st, &domain.OrganizeError{Stage: s.name, Err: err}
		}
		observability.ObserveStage(s.name, time.Since(start))
	}
	log.Info().
		Int("remapped", st.Remapped).
		Int("profiles_applied", st.ProfilesApplied).
		Int("profiles_created", st.ProfilesCreated).
		Int64("showings_moved", st.ShowingsMoved).
		Int64("orphans_removed", st.OrphansRemoved).
		Msg("organize completed")
	return st, nil
}

func (o *Organizer) remapTitles(ctx context.Context, tx domain.CatalogTx, st *OrganizeStats) error {
	mappings, err := tx.ListTitleMappings(ctx)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	byTitle := make(map[string]string, len(mappings))
	for _, m := range mappings {
		byTitle[m.OriginalTitle] = m.NewOriginalTitle
	}

	movies, err := tx.ListMovies(ctx)
	if err != nil {
		return err
	}
	for _, m := range movies {
		if m.OriginalTitle == nil {
			continue
		}
		next, ok := byTitle[*m.OriginalTitle]
		if !ok || next == *m.OriginalTitle {
			continue
		}
		m.OriginalTitle = &next
		if err := tx.UpdateMovie(ctx, m); err != nil {
			return err
		}
		st.Remapped++
	}
	return nil
}

// applyProfiles lets an existing profile win over fetched fields, then maps
// genres. Genre mapping must follow the override since profiles may carry
// legacy genre names.
func (o *Organizer) applyProfiles(ctx context.Context, tx domain.CatalogTx, st *OrganizeStats) error {
	genreMappings, err := tx.ListGenreMappings(ctx)
	if err != nil {
		return err
	}
	genreMap := make(map[string]string, len(genreMappings))
	for _, g := range genreMappings {
		genreMap[g.Genre] = g.NewGenre
	}

	movies, err := tx.ListMovies(ctx)
	if err != nil {
		return err
	}
	for _, m := range movies {
		// no key, no profile
		if m.OriginalTitle == nil {
			continue
		}
		p, err := tx.GetProfile(ctx, *m.OriginalTitle)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := tx.InsertProfile(ctx, domain.ProfileFromMovie(m)); err != nil {
				return err
			}
			st.ProfilesCreated++
			continue
		case err != nil:
			return err
		}

		p.ApplyTo(&m)
		m.Genres = mapGenres(m.Genres, genreMap)
		if err := tx.UpdateMovie(ctx, m); err != nil {
			return err
		}
		st.ProfilesApplied++
	}
	return nil
}

func mapGenres(genres []string, mapping map[string]string) []string {
	if len(mapping) == 0 {
		return genres
	}
	out := make([]string, len(genres))
	for i, g := range genres {
		if n, ok := mapping[g]; ok {
			g = n
		}
		out[i] = g
	}
	return out
}

// consolidateShowings groups movies by originalTitle in one pass and moves all
// showings of a group onto its first member. Donors stay, empty, for cleanup.
func (o *Organizer) consolidateShowings(ctx context.Context, tx domain.CatalogTx, st *OrganizeStats) error {
	movies, err := tx.ListMovies(ctx)
	if err != nil {
		return err
	}
	groups := make(map[string][]int64)
	var order []string
	for _, m := range movies {
		if m.OriginalTitle == nil {
			continue
		}
		key := *m.OriginalTitle
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m.ID)
	}

	for _, key := range order {
		ids := groups[key]
		if len(ids) < 2 {
			continue
		}
		canonical := ids[0]
		for _, donor := range ids[1:] {
			n, err := tx.ReassignShowings(ctx, donor, canonical)
			if err != nil {
				return err
			}
			st.ShowingsMoved += n
		}
		log.Debug().Str("original_title", key).Int64("canonical", canonical).Int("donors", len(ids)-1).Msg("showings consolidated")
	}
	return nil
}

func (o *Organizer) cleanup(ctx context.Context, tx domain.CatalogTx, st *OrganizeStats) error {
	n, err := tx.DeleteMoviesWithoutShowings(ctx)
	if err != nil {
		return err
	}
	st.OrphansRemoved = n
	return nil
}
