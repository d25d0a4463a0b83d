package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/storage/memory"
)

// ---- fakes ----

type fakeSource struct {
	name   string
	movies []domain.RawMovie
	err    error

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchMovies(ctx context.Context) ([]domain.RawMovie, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.movies, f.err
}

// blockingSource parks in FetchMovies until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSource) Name() string { return "slow" }

func (b *blockingSource) FetchMovies(ctx context.Context) ([]domain.RawMovie, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// fakeCache keeps the last value per key and round-trips reads through JSON
// like the Redis adapter does.
type fakeCache struct {
	values      map[string]any
	invalidated []string
	hits        int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	c.hits++
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *fakeCache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	c.invalidated = append(c.invalidated, prefix)
	n := 0
	for k := range c.values {
		if strings.HasPrefix(k, prefix) {
			delete(c.values, k)
			n++
		}
	}
	return n, nil
}

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context, owner string) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	l.acquires++
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context, owner string) error {
	l.held = false
	l.releases++
	return nil
}

// failingStore wraps the memory store so one tx method fails on demand.
type failingStore struct {
	*memory.Store
	failOn string
}

func (s *failingStore) Begin(ctx context.Context) (domain.CatalogTx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{CatalogTx: tx, failOn: s.failOn}, nil
}

type failingTx struct {
	domain.CatalogTx
	failOn string
}

var errStore = errors.New("store unavailable")

func (t *failingTx) ReassignShowings(ctx context.Context, from, to int64) (int64, error) {
	if t.failOn == "reassign" {
		return 0, errStore
	}
	return t.CatalogTx.ReassignShowings(ctx, from, to)
}

func (t *failingTx) DeleteMovie(ctx context.Context, id int64) error {
	if t.failOn == "delete" {
		return errStore
	}
	return t.CatalogTx.DeleteMovie(ctx, id)
}

// ---- builders ----

var t0 = time.Date(2024, 5, 3, 18, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// completeMovie builds a movie that passes every completeness check once it
// has a showing.
func completeMovie(orig string) domain.Movie {
	return domain.Movie{
		Title:         ptr("Title " + orig),
		OriginalTitle: ptr(orig),
		Year:          ptr(2024),
		Duration:      ptr(110),
		AgeRating:     ptr("12"),
		Genres:        []string{"Drama"},
		Plot:          ptr("Plot of " + orig),
		Poster:        ptr("https://img.example/" + orig + ".jpg"),
	}
}

func completeFeatured(movieID *int64, orig string) domain.Featured {
	start, end := t0, t0.Add(7*24*time.Hour)
	return domain.Featured{
		MovieID:       movieID,
		Label:         ptr("Premiere"),
		Title:         ptr("Title " + orig),
		OriginalTitle: ptr(orig),
		StartDate:     &start,
		EndDate:       &end,
		ImageURL:      ptr("https://img.example/featured/" + orig + ".jpg"),
	}
}

func showing(venue string, at time.Time) domain.Showing {
	return domain.Showing{
		City:       "Oslo",
		DateTime:   at,
		Venue:      venue,
		BookingURL: fmt.Sprintf("https://tix.example/%s/%d", venue, at.Unix()),
	}
}

func raw(m domain.Movie, shs ...domain.Showing) domain.RawMovie {
	return domain.RawMovie{Movie: m, Showings: shs}
}

// inTx runs fn in one transaction and commits it.
func inTx(t *testing.T, st domain.CatalogStore, fn func(ctx context.Context, tx domain.CatalogTx) error) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func mustInsert(t *testing.T, ctx context.Context, tx domain.CatalogTx, m domain.Movie, shs ...domain.Showing) int64 {
	t.Helper()
	id, err := tx.InsertMovie(ctx, m, shs)
	if err != nil {
		t.Fatalf("insert movie: %v", err)
	}
	return id
}

func moviesByTitle(st *memory.Store) map[string][]domain.Movie {
	out := map[string][]domain.Movie{}
	for _, m := range st.Snapshot().Movies {
		k := deref(m.OriginalTitle)
		out[k] = append(out[k], m)
	}
	return out
}
