package domain

import "context"

// CatalogStore opens transactions against the catalog.
type CatalogStore interface {
	Begin(ctx context.Context) (CatalogTx, error)
}

// CatalogTx is one atomic unit of work. Nothing written through it is visible
// to other transactions until Commit; Rollback discards it all.
type CatalogTx interface {
	Commit() error
	Rollback() error

	// Movies & showings
	InsertMovie(ctx context.Context, m Movie, showings []Showing) (int64, error)
	// ListMovies returns every movie ordered by ID with its showings attached.
	ListMovies(ctx context.Context) ([]Movie, error)
	UpdateMovie(ctx context.Context, m Movie) error
	// DeleteMovie removes the movie and its showings.
	DeleteMovie(ctx context.Context, id int64) error
	ReassignShowings(ctx context.Context, fromMovieID, toMovieID int64) (int64, error)
	// DeleteMoviesWithoutShowings removes every movie owning zero showings and
	// returns how many went.
	DeleteMoviesWithoutShowings(ctx context.Context) (int64, error)

	// Curated mappings
	ListTitleMappings(ctx context.Context) ([]TitleMapping, error)
	UpsertTitleMapping(ctx context.Context, tm TitleMapping) error
	ListGenreMappings(ctx context.Context) ([]GenreMapping, error)
	UpsertGenreMapping(ctx context.Context, gm GenreMapping) error

	// Profiles
	GetProfile(ctx context.Context, originalTitle string) (MovieProfile, error) // ErrNotFound when absent
	ListProfiles(ctx context.Context) ([]MovieProfile, error)
	InsertProfile(ctx context.Context, p MovieProfile) error
	UpsertProfile(ctx context.Context, p MovieProfile) error

	// Featured
	ListFeatured(ctx context.Context) ([]Featured, error)
	InsertFeatured(ctx context.Context, f Featured) (int64, error)
	UpdateFeatured(ctx context.Context, f Featured) error
}

// SourceAdapter normalizes one vendor's listings.
type SourceAdapter interface {
	Name() string
	FetchMovies(ctx context.Context) ([]RawMovie, error)
}

// Notifier delivers the end-of-run message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// RunLock serializes update runs across processes.
type RunLock interface {
	Acquire(ctx context.Context, owner string) (bool, error)
	Release(ctx context.Context, owner string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// InvalidatePrefix drops every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}
