// Package memory is an in-process CatalogStore. It backs dry runs and tests;
// production uses the MySQL store.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"cinema_catalog/internal/domain"
)

var errTxDone = errors.New("memory: transaction already finished")

// State is a deep copy of the committed catalog, rows ordered by key.
type State struct {
	Movies        []domain.Movie
	TitleMappings []domain.TitleMapping
	GenreMappings []domain.GenreMapping
	Profiles      []domain.MovieProfile
	Featured      []domain.Featured
}

type data struct {
	movies   map[int64]domain.Movie // showings live in the showings map
	showings map[int64]domain.Showing
	titles   map[string]string
	genres   map[string]string
	profiles map[string]domain.MovieProfile
	featured map[int64]domain.Featured
	nextID   int64
}

func newData() *data {
	return &data{
		movies:   map[int64]domain.Movie{},
		showings: map[int64]domain.Showing{},
		titles:   map[string]string{},
		genres:   map[string]string{},
		profiles: map[string]domain.MovieProfile{},
		featured: map[int64]domain.Featured{},
	}
}

func (d *data) clone() *data {
	out := newData()
	out.nextID = d.nextID
	for k, v := range d.movies {
		out.movies[k] = cloneMovie(v)
	}
	for k, v := range d.showings {
		out.showings[k] = v
	}
	for k, v := range d.titles {
		out.titles[k] = v
	}
	for k, v := range d.genres {
		out.genres[k] = v
	}
	for k, v := range d.profiles {
		out.profiles[k] = cloneProfile(v)
	}
	for k, v := range d.featured {
		out.featured[k] = cloneFeatured(v)
	}
	return out
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

// Store serializes transactions: Begin waits until the previous one finishes
// or ctx is done.
type Store struct {
	txn  *semaphore.Weighted // held for the lifetime of a transaction
	view sync.RWMutex
	cur  *data
}

func New() *Store { return &Store{txn: semaphore.NewWeighted(1), cur: newData()} }

func (s *Store) Begin(ctx context.Context) (domain.CatalogTx, error) {
	if err := s.txn.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	s.view.RLock()
	work := s.cur.clone()
	s.view.RUnlock()
	return &Tx{s: s, d: work}, nil
}

// Snapshot returns the committed state.
func (s *Store) Snapshot() State {
	s.view.RLock()
	d := s.cur.clone()
	s.view.RUnlock()

	st := State{}
	tx := &Tx{d: d}
	st.Movies, _ = tx.ListMovies(context.Background())
	st.TitleMappings, _ = tx.ListTitleMappings(context.Background())
	st.GenreMappings, _ = tx.ListGenreMappings(context.Background())
	st.Profiles, _ = tx.ListProfiles(context.Background())
	st.Featured, _ = tx.ListFeatured(context.Background())
	return st
}

type Tx struct {
	s    *Store
	d    *data
	done bool
}

func (t *Tx) finish() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.s.txn.Release(1)
	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.s.view.Lock()
	t.s.cur = t.d
	t.s.view.Unlock()
	return t.finish()
}

func (t *Tx) Rollback() error { return t.finish() }

func (t *Tx) InsertMovie(ctx context.Context, m domain.Movie, showings []domain.Showing) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	m = cloneMovie(m)
	m.ID = t.d.id()
	m.Showings = nil
	t.d.movies[m.ID] = m
	for _, sh := range showings {
		sh.ID = t.d.id()
		sh.MovieID = m.ID
		t.d.showings[sh.ID] = sh
	}
	return m.ID, nil
}

func (t *Tx) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	if t.done {
		return nil, errTxDone
	}
	byMovie := make(map[int64][]domain.Showing, len(t.d.movies))
	for _, sh := range t.d.showings {
		byMovie[sh.MovieID] = append(byMovie[sh.MovieID], sh)
	}
	out := make([]domain.Movie, 0, len(t.d.movies))
	for _, m := range t.d.movies {
		m = cloneMovie(m)
		shs := byMovie[m.ID]
		sort.Slice(shs, func(i, j int) bool { return shs[i].ID < shs[j].ID })
		m.Showings = shs
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *Tx) UpdateMovie(ctx context.Context, m domain.Movie) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.d.movies[m.ID]; !ok {
		return domain.ErrNotFound
	}
	m = cloneMovie(m)
	m.Showings = nil
	t.d.movies[m.ID] = m
	return nil
}

func (t *Tx) DeleteMovie(ctx context.Context, id int64) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.d.movies[id]; !ok {
		return domain.ErrNotFound
	}
	t.deleteMovie(id)
	return nil
}

func (t *Tx) deleteMovie(id int64) {
	delete(t.d.movies, id)
	for sid, sh := range t.d.showings {
		if sh.MovieID == id {
			delete(t.d.showings, sid)
		}
	}
	// featured rows keep pointing nowhere otherwise (ON DELETE SET NULL)
	for fid, f := range t.d.featured {
		if f.MovieID != nil && *f.MovieID == id {
			f.MovieID = nil
			t.d.featured[fid] = f
		}
	}
}

func (t *Tx) ReassignShowings(ctx context.Context, fromMovieID, toMovieID int64) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	if _, ok := t.d.movies[toMovieID]; !ok {
		return 0, domain.ErrNotFound
	}
	var n int64
	for sid, sh := range t.d.showings {
		if sh.MovieID == fromMovieID {
			sh.MovieID = toMovieID
			t.d.showings[sid] = sh
			n++
		}
	}
	return n, nil
}

func (t *Tx) DeleteMoviesWithoutShowings(ctx context.Context) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	owned := make(map[int64]bool, len(t.d.movies))
	for _, sh := range t.d.showings {
		owned[sh.MovieID] = true
	}
	var n int64
	for id := range t.d.movies {
		if !owned[id] {
			t.deleteMovie(id)
			n++
		}
	}
	return n, nil
}

func (t *Tx) ListTitleMappings(ctx context.Context) ([]domain.TitleMapping, error) {
	if t.done {
		return nil, errTxDone
	}
	out := make([]domain.TitleMapping, 0, len(t.d.titles))
	for k, v := range t.d.titles {
		out = append(out, domain.TitleMapping{OriginalTitle: k, NewOriginalTitle: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalTitle < out[j].OriginalTitle })
	return out, nil
}

func (t *Tx) UpsertTitleMapping(ctx context.Context, tm domain.TitleMapping) error {
	if t.done {
		return errTxDone
	}
	t.d.titles[tm.OriginalTitle] = tm.NewOriginalTitle
	return nil
}

func (t *Tx) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	if t.done {
		return nil, errTxDone
	}
	out := make([]domain.GenreMapping, 0, len(t.d.genres))
	for k, v := range t.d.genres {
		out = append(out, domain.GenreMapping{Genre: k, NewGenre: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Genre < out[j].Genre })
	return out, nil
}

func (t *Tx) UpsertGenreMapping(ctx context.Context, gm domain.GenreMapping) error {
	if t.done {
		return errTxDone
	}
	t.d.genres[gm.Genre] = gm.NewGenre
	return nil
}

func (t *Tx) GetProfile(ctx context.Context, originalTitle string) (domain.MovieProfile, error) {
	if t.done {
		return domain.MovieProfile{}, errTxDone
	}
	p, ok := t.d.profiles[originalTitle]
	if !ok {
		return domain.MovieProfile{}, domain.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (t *Tx) ListProfiles(ctx context.Context) ([]domain.MovieProfile, error) {
	if t.done {
		return nil, errTxDone
	}
	out := make([]domain.MovieProfile, 0, len(t.d.profiles))
	for _, p := range t.d.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalTitle < out[j].OriginalTitle })
	return out, nil
}

func (t *Tx) InsertProfile(ctx context.Context, p domain.MovieProfile) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.d.profiles[p.OriginalTitle]; ok {
		return errors.New("memory: duplicate profile " + p.OriginalTitle)
	}
	t.d.profiles[p.OriginalTitle] = cloneProfile(p)
	return nil
}

func (t *Tx) UpsertProfile(ctx context.Context, p domain.MovieProfile) error {
	if t.done {
		return errTxDone
	}
	t.d.profiles[p.OriginalTitle] = cloneProfile(p)
	return nil
}

func (t *Tx) ListFeatured(ctx context.Context) ([]domain.Featured, error) {
	if t.done {
		return nil, errTxDone
	}
	out := make([]domain.Featured, 0, len(t.d.featured))
	for _, f := range t.d.featured {
		out = append(out, cloneFeatured(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *Tx) InsertFeatured(ctx context.Context, f domain.Featured) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	f = cloneFeatured(f)
	f.ID = t.d.id()
	t.d.featured[f.ID] = f
	return f.ID, nil
}

func (t *Tx) UpdateFeatured(ctx context.Context, f domain.Featured) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.d.featured[f.ID]; !ok {
		return domain.ErrNotFound
	}
	t.d.featured[f.ID] = cloneFeatured(f)
	return nil
}

func cloneMovie(m domain.Movie) domain.Movie {
	m.Title = domain.CloneStr(m.Title)
	m.OriginalTitle = domain.CloneStr(m.OriginalTitle)
	m.Year = domain.CloneInt(m.Year)
	m.Duration = domain.CloneInt(m.Duration)
	m.AgeRating = domain.CloneStr(m.AgeRating)
	m.Plot = domain.CloneStr(m.Plot)
	m.Poster = domain.CloneStr(m.Poster)
	if m.Genres != nil {
		m.Genres = append([]string{}, m.Genres...)
	}
	if m.Showings != nil {
		m.Showings = append([]domain.Showing{}, m.Showings...)
	}
	return m
}

func cloneProfile(p domain.MovieProfile) domain.MovieProfile {
	p.Title = domain.CloneStr(p.Title)
	p.Year = domain.CloneInt(p.Year)
	p.Duration = domain.CloneInt(p.Duration)
	p.AgeRating = domain.CloneStr(p.AgeRating)
	p.Plot = domain.CloneStr(p.Plot)
	if p.Genres != nil {
		p.Genres = append([]string{}, p.Genres...)
	}
	return p
}

func cloneFeatured(f domain.Featured) domain.Featured {
	if f.MovieID != nil {
		id := *f.MovieID
		f.MovieID = &id
	}
	f.Label = domain.CloneStr(f.Label)
	f.Title = domain.CloneStr(f.Title)
	f.OriginalTitle = domain.CloneStr(f.OriginalTitle)
	if f.StartDate != nil {
		d := *f.StartDate
		f.StartDate = &d
	}
	if f.EndDate != nil {
		d := *f.EndDate
		f.EndDate = &d
	}
	f.ImageURL = domain.CloneStr(f.ImageURL)
	return f
}
