package domain

// TitleMapping rewrites a vendor originalTitle to the catalog's canonical one.
type TitleMapping struct {
	OriginalTitle    string
	NewOriginalTitle string
}

type GenreMapping struct {
	Genre    string
	NewGenre string
}

// MovieProfile is the curated snapshot of a movie's scalar fields. When one
// exists for an originalTitle it wins over freshly fetched data.
type MovieProfile struct {
	OriginalTitle string
	Title         *string
	Year          *int
	Duration      *int
	AgeRating     *string
	Genres        []string
	Plot          *string
}

// ProfileFromMovie snapshots m. The movie must have an originalTitle.
func ProfileFromMovie(m Movie) MovieProfile {
	p := MovieProfile{
		Title:     CloneStr(m.Title),
		Year:      CloneInt(m.Year),
		Duration:  CloneInt(m.Duration),
		AgeRating: CloneStr(m.AgeRating),
		Genres:    append([]string(nil), m.Genres...),
		Plot:      CloneStr(m.Plot),
	}
	if m.OriginalTitle != nil {
		p.OriginalTitle = *m.OriginalTitle
	}
	return p
}

// ApplyTo overwrites m's profile-managed fields. Poster and showings are left alone.
func (p MovieProfile) ApplyTo(m *Movie) {
	m.Title = CloneStr(p.Title)
	m.Year = CloneInt(p.Year)
	m.Duration = CloneInt(p.Duration)
	m.AgeRating = CloneStr(p.AgeRating)
	m.Genres = append([]string(nil), p.Genres...)
	m.Plot = CloneStr(p.Plot)
}

func CloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func CloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
