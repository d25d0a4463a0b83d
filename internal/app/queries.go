package app

import (
	"context"
	"encoding/json"
	"time"

	"cinema_catalog/internal/domain"
)

const moviesKey = CachePrefix + "movies"

type ShowingView struct {
	City       string    `json:"city"`
	DateTime   time.Time `json:"datetime"`
	Venue      string    `json:"venue"`
	Is3D       bool      `json:"is_3d"`
	BookingURL string    `json:"booking_url"`
}

type MovieView struct {
	ID            int64         `json:"id"`
	Title         *string       `json:"title"`
	OriginalTitle *string       `json:"original_title"`
	Year          *int          `json:"year"`
	Duration      *int          `json:"duration"`
	AgeRating     *string       `json:"age_rating"`
	Genres        []string      `json:"genres"`
	Plot          *string       `json:"plot"`
	Poster        *string       `json:"poster"`
	Showings      []ShowingView `json:"showings"`
}

// QueryService serves committed catalog reads through the cache. Update runs
// evict everything under CachePrefix after commit.
type QueryService struct {
	store    domain.CatalogStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.CatalogStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListMovies(ctx context.Context) ([]MovieView, error) {
	var out []MovieView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, moviesKey, &out); ok {
			return out, nil
		}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	movies, err := tx.ListMovies(ctx)
	// read only
	_ = tx.Rollback()
	if err != nil {
		return nil, err
	}

	out = make([]MovieView, 0, len(movies))
	for _, m := range movies {
		out = append(out, toMovieView(m))
	}
	if s.cache == nil {
		return out, nil
	}
	// optional size guard
	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, moviesKey, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// LastReport returns what the most recent run stored, or domain.ErrNotFound.
func (s *QueryService) LastReport(ctx context.Context) (LastReport, error) {
	var lr LastReport
	if s.cache == nil {
		return lr, domain.ErrNotFound
	}
	ok, err := s.cache.Get(ctx, LastReportKey, &lr)
	if err != nil {
		return lr, err
	}
	if !ok {
		return lr, domain.ErrNotFound
	}
	return lr, nil
}

func toMovieView(m domain.Movie) MovieView {
	v := MovieView{
		ID:            m.ID,
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Year:          m.Year,
		Duration:      m.Duration,
		AgeRating:     m.AgeRating,
		Genres:        m.Genres,
		Plot:          m.Plot,
		Poster:        m.Poster,
		Showings:      make([]ShowingView, 0, len(m.Showings)),
	}
	for _, s := range m.Showings {
		v.Showings = append(v.Showings, ShowingView{
			City:       s.City,
			DateTime:   s.DateTime,
			Venue:      s.Venue,
			Is3D:       s.Is3D,
			BookingURL: s.BookingURL,
		})
	}
	return v
}
