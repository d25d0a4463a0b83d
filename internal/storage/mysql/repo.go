package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinema_catalog/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valGenres(g []string) any {
	if g == nil {
		return nil
	}
	b, _ := json.Marshal(g)
	return string(b)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
func genresOf(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var g []string
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode genres %q: %w", raw, err)
	}
	return g, nil
}

// Repo is the MySQL-backed catalog store.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Begin(ctx context.Context) (domain.CatalogTx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx runs every catalog operation on one *sql.Tx. Not safe for concurrent use.
type Tx struct{ tx *sql.Tx }

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) InsertMovie(ctx context.Context, m domain.Movie, showings []domain.Showing) (int64, error) {
	res, err := t.tx.ExecContext(ctx, insertMovieSQL,
		valStr(m.Title),
		valStr(m.OriginalTitle),
		valInt(m.Year),
		valInt(m.Duration),
		valStr(m.AgeRating),
		valGenres(m.Genres),
		valStr(m.Plot),
		valStr(m.Poster),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if len(showings) == 0 {
		return id, nil
	}

	values := make([]string, 0, len(showings))
	args := make([]any, 0, len(showings)*6)
	for _, s := range showings {
		values = append(values, "(?,?,?,?,?,?)")
		args = append(args, id, s.City, s.DateTime.UTC(), s.Venue, s.Is3D, s.BookingURL)
	}
	if _, err := t.tx.ExecContext(ctx, insertShowingsPrefix+strings.Join(values, ","), args...); err != nil {
		return 0, fmt.Errorf("insert showings for movie %d: %w", id, err)
	}
	return id, nil
}

func (t *Tx) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	rows, err := t.tx.QueryContext(ctx, listMoviesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Movie
	index := map[int64]int{}
	for rows.Next() {
		var (
			m                         domain.Movie
			title, orig, rating, plot sql.NullString
			poster                    sql.NullString
			year, duration            sql.NullInt64
			genres                    []byte
		)
		if err := rows.Scan(&m.ID, &title, &orig, &year, &duration, &rating, &genres, &plot, &poster); err != nil {
			return nil, err
		}
		m.Title = strPtr(title)
		m.OriginalTitle = strPtr(orig)
		m.Year = intPtr(year)
		m.Duration = intPtr(duration)
		m.AgeRating = strPtr(rating)
		if m.Genres, err = genresOf(genres); err != nil {
			return nil, fmt.Errorf("movie %d: %w", m.ID, err)
		}
		m.Plot = strPtr(plot)
		m.Poster = strPtr(poster)
		index[m.ID] = len(out)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srows, err := t.tx.QueryContext(ctx, listShowingsSQL)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var s domain.Showing
		if err := srows.Scan(&s.ID, &s.MovieID, &s.City, &s.DateTime, &s.Venue, &s.Is3D, &s.BookingURL); err != nil {
			return nil, err
		}
		if i, ok := index[s.MovieID]; ok {
			out[i].Showings = append(out[i].Showings, s)
		}
	}
	return out, srows.Err()
}

func (t *Tx) UpdateMovie(ctx context.Context, m domain.Movie) error {
	_, err := t.tx.ExecContext(ctx, updateMovieSQL,
		valStr(m.Title),
		valStr(m.OriginalTitle),
		valInt(m.Year),
		valInt(m.Duration),
		valStr(m.AgeRating),
		valGenres(m.Genres),
		valStr(m.Plot),
		valStr(m.Poster),
		m.ID,
	)
	return err
}

func (t *Tx) DeleteMovie(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, deleteMovieSQL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *Tx) ReassignShowings(ctx context.Context, fromMovieID, toMovieID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, reassignShowingsSQL, toMovieID, fromMovieID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *Tx) DeleteMoviesWithoutShowings(ctx context.Context) (int64, error) {
	res, err := t.tx.ExecContext(ctx, deleteOrphanMoviesSQL)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *Tx) ListTitleMappings(ctx context.Context) ([]domain.TitleMapping, error) {
	rows, err := t.tx.QueryContext(ctx, listTitleMappingsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TitleMapping
	for rows.Next() {
		var tm domain.TitleMapping
		if err := rows.Scan(&tm.OriginalTitle, &tm.NewOriginalTitle); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}

func (t *Tx) UpsertTitleMapping(ctx context.Context, tm domain.TitleMapping) error {
	_, err := t.tx.ExecContext(ctx, upsertTitleMappingSQL, tm.OriginalTitle, tm.NewOriginalTitle)
	return err
}

func (t *Tx) ListGenreMappings(ctx context.Context) ([]domain.GenreMapping, error) {
	rows, err := t.tx.QueryContext(ctx, listGenreMappingsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GenreMapping
	for rows.Next() {
		var gm domain.GenreMapping
		if err := rows.Scan(&gm.Genre, &gm.NewGenre); err != nil {
			return nil, err
		}
		out = append(out, gm)
	}
	return out, rows.Err()
}

func (t *Tx) UpsertGenreMapping(ctx context.Context, gm domain.GenreMapping) error {
	_, err := t.tx.ExecContext(ctx, upsertGenreMappingSQL, gm.Genre, gm.NewGenre)
	return err
}

type scanner interface{ Scan(dest ...any) error }

func scanProfile(s scanner) (domain.MovieProfile, error) {
	var (
		p                   domain.MovieProfile
		title, rating, plot sql.NullString
		year, duration      sql.NullInt64
		genres              []byte
	)
	if err := s.Scan(&p.OriginalTitle, &title, &year, &duration, &rating, &genres, &plot); err != nil {
		return domain.MovieProfile{}, err
	}
	p.Title = strPtr(title)
	p.Year = intPtr(year)
	p.Duration = intPtr(duration)
	p.AgeRating = strPtr(rating)
	g, err := genresOf(genres)
	if err != nil {
		return domain.MovieProfile{}, fmt.Errorf("profile %q: %w", p.OriginalTitle, err)
	}
	p.Genres = g
	p.Plot = strPtr(plot)
	return p, nil
}

func (t *Tx) GetProfile(ctx context.Context, originalTitle string) (domain.MovieProfile, error) {
	p, err := scanProfile(t.tx.QueryRowContext(ctx, getProfileSQL, originalTitle))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MovieProfile{}, domain.ErrNotFound
	}
	return p, err
}

func (t *Tx) ListProfiles(ctx context.Context) ([]domain.MovieProfile, error) {
	rows, err := t.tx.QueryContext(ctx, listProfilesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.MovieProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func profileArgs(p domain.MovieProfile) []any {
	return []any{
		p.OriginalTitle,
		valStr(p.Title),
		valInt(p.Year),
		valInt(p.Duration),
		valStr(p.AgeRating),
		valGenres(p.Genres),
		valStr(p.Plot),
	}
}

func (t *Tx) InsertProfile(ctx context.Context, p domain.MovieProfile) error {
	_, err := t.tx.ExecContext(ctx, insertProfileSQL, profileArgs(p)...)
	return err
}

func (t *Tx) UpsertProfile(ctx context.Context, p domain.MovieProfile) error {
	_, err := t.tx.ExecContext(ctx, upsertProfileSQL, profileArgs(p)...)
	return err
}

func (t *Tx) ListFeatured(ctx context.Context) ([]domain.Featured, error) {
	rows, err := t.tx.QueryContext(ctx, listFeaturedSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Featured
	for rows.Next() {
		var (
			f                       domain.Featured
			movieID                 sql.NullInt64
			label, title, orig, img sql.NullString
			start, end              sql.NullTime
		)
		if err := rows.Scan(&f.ID, &movieID, &label, &title, &orig, &start, &end, &img); err != nil {
			return nil, err
		}
		if movieID.Valid {
			id := movieID.Int64
			f.MovieID = &id
		}
		f.Label = strPtr(label)
		f.Title = strPtr(title)
		f.OriginalTitle = strPtr(orig)
		f.StartDate = timePtr(start)
		f.EndDate = timePtr(end)
		f.ImageURL = strPtr(img)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (t *Tx) InsertFeatured(ctx context.Context, f domain.Featured) (int64, error) {
	res, err := t.tx.ExecContext(ctx, insertFeaturedSQL,
		valInt64(f.MovieID),
		valStr(f.Label),
		valStr(f.Title),
		valStr(f.OriginalTitle),
		valTime(f.StartDate),
		valTime(f.EndDate),
		valStr(f.ImageURL),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *Tx) UpdateFeatured(ctx context.Context, f domain.Featured) error {
	_, err := t.tx.ExecContext(ctx, updateFeaturedSQL,
		valInt64(f.MovieID),
		valStr(f.Label),
		valStr(f.Title),
		valStr(f.OriginalTitle),
		valTime(f.StartDate),
		valTime(f.EndDate),
		valStr(f.ImageURL),
		f.ID,
	)
	return err
}
