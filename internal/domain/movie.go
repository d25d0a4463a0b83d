package domain

import "time"

type Movie struct {
	ID            int64
	Title         *string
	OriginalTitle *string // cross-source merge key
	Year          *int
	Duration      *int // minutes
	AgeRating     *string
	Genres        []string
	Plot          *string
	Poster        *string
	Showings      []Showing
}

// Showing is owned by exactly one Movie through MovieID.
type Showing struct {
	ID         int64
	MovieID    int64
	City       string
	DateTime   time.Time
	Venue      string
	Is3D       bool
	BookingURL string
}

// EarliestShowing returns the showing with the smallest DateTime, or false when
// the movie has none.
func (m Movie) EarliestShowing() (Showing, bool) {
	if len(m.Showings) == 0 {
		return Showing{}, false
	}
	first := m.Showings[0]
	for _, s := range m.Showings[1:] {
		if s.DateTime.Before(first.DateTime) {
			first = s
		}
	}
	return first, true
}

// RawMovie is what a source adapter hands to the aggregator: a movie skeleton
// plus the showings found for it. IDs are unset.
type RawMovie struct {
	Movie    Movie
	Showings []Showing
}

// Featured is curated promotional content pointing at a Movie.
type Featured struct {
	ID            int64
	MovieID       *int64
	Label         *string
	Title         *string
	OriginalTitle *string
	StartDate     *time.Time
	EndDate       *time.Time
	ImageURL      *string
}
