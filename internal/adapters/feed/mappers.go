package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/domain"
)

/********** alias registries (single source of truth) **********/

var movieAliases = map[string][]string{
	"title":          {"title", "name", "local_title", "localTitle", "movie.title"},
	"original_title": {"original_title", "originalTitle", "title_original", "orig_title", "movie.original_title"},
	"year":           {"year", "release_year", "releaseYear", "production_year", "productionYear"},
	"duration":       {"duration", "runtime", "length", "duration_min", "durationMinutes"},
	"age_rating":     {"age_rating", "ageRating", "certificate", "rating", "pg", "age_restriction"},
	"genres":         {"genres", "genre", "categories"},
	"plot":           {"plot", "synopsis", "description", "summary", "overview"},
	"poster":         {"poster", "poster_url", "posterUrl", "image", "cover", "images.poster"},
	"showings":       {"showings", "showtimes", "screenings", "sessions", "shows"},
}

var showingAliases = map[string][]string{
	"city":     {"city", "location.city", "cinema.city", "venue.city"},
	"datetime": {"datetime", "date_time", "dateTime", "starts_at", "startsAt", "start", "time"},
	"venue":    {"venue", "cinema", "theater", "theatre", "cinema.name", "venue.name"},
	"booking":  {"booking_url", "bookingUrl", "tickets_url", "ticketsUrl", "url", "link"},
	"3d":       {"is_3d", "is3d", "3d", "three_d"},
	"format":   {"format", "projection", "version"},
}

var listKeys = []string{"movies", "films", "data", "items", "results"}

// accepted showtime layouts, tried in order
var showtimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// firstIntFlexible: int from several paths (float64/int/string like "120 min").
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
				s = s[:i]
			}
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {name/title}, or a
// comma/slash separated string.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		switch raw := lookupAny(m, k).(type) {
		case []any:
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					if n := lookupStr(t, "name"); n != "" {
						out = append(out, n)
						continue
					}
					if n := lookupStr(t, "title"); n != "" {
						out = append(out, n)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '/' || r == '|' })
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if s := strings.TrimSpace(p); s != "" {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstBool(m map[string]any, paths ...string) (bool, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v, true
		case float64:
			return v != 0, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

func firstList(m map[string]any, paths ...string) []any {
	for _, k := range paths {
		if l, ok := lookupAny(m, k).([]any); ok {
			return l
		}
	}
	return nil
}

func parseShowtime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range showtimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized showtime %q", s)
}

/********** feed mapper **********/

// mapFeed turns a decoded feed document into raw movies. The document is
// either a bare list of movies or an object holding one under a known key.
// Showings that cannot be dated are dropped; a movie without usable showings
// is still returned, the organizer removes it.
func mapFeed(payload any, loc *time.Location) ([]domain.RawMovie, error) {
	var items []any
	switch p := payload.(type) {
	case []any:
		items = p
	case map[string]any:
		items = firstList(p, listKeys...)
		if items == nil {
			return nil, fmt.Errorf("no movie list in feed (looked for %s)", strings.Join(listKeys, ", "))
		}
	default:
		return nil, fmt.Errorf("unexpected feed document %T", payload)
	}

	out := make([]domain.RawMovie, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			log.Warn().Int("index", i).Msg("skipping non-object feed entry")
			continue
		}
		out = append(out, mapMovie(m, loc))
	}
	return out, nil
}

func mapMovie(m map[string]any, loc *time.Location) domain.RawMovie {
	mv := domain.Movie{
		Title:         firstNonEmptyAlias(m, movieAliases, "title"),
		OriginalTitle: firstNonEmptyAlias(m, movieAliases, "original_title"),
		Year:          firstIntFlexible(m, movieAliases["year"]...),
		Duration:      firstIntFlexible(m, movieAliases["duration"]...),
		AgeRating:     firstNonEmptyAlias(m, movieAliases, "age_rating"),
		Genres:        firstSliceStrings(m, movieAliases["genres"]...),
		Plot:          firstNonEmptyAlias(m, movieAliases, "plot"),
		Poster:        firstNonEmptyAlias(m, movieAliases, "poster"),
	}
	// Some vendors only send one title; it doubles as the merge key.
	if mv.OriginalTitle == nil && mv.Title != nil {
		mv.OriginalTitle = domain.CloneStr(mv.Title)
	}

	var showings []domain.Showing
	for _, raw := range firstList(m, movieAliases["showings"]...) {
		sm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		s, err := mapShowing(sm, loc)
		if err != nil {
			log.Debug().Err(err).Str("movie", derefStr(mv.OriginalTitle)).Msg("dropping showing")
			continue
		}
		showings = append(showings, s)
	}
	return domain.RawMovie{Movie: mv, Showings: showings}
}

func mapShowing(m map[string]any, loc *time.Location) (domain.Showing, error) {
	when := derefStr(firstNonEmptyAlias(m, showingAliases, "datetime"))
	if when == "" {
		return domain.Showing{}, fmt.Errorf("showing without date")
	}
	t, err := parseShowtime(when, loc)
	if err != nil {
		return domain.Showing{}, err
	}
	is3D, ok := firstBool(m, showingAliases["3d"]...)
	if !ok {
		format := derefStr(firstNonEmptyAlias(m, showingAliases, "format"))
		is3D = strings.Contains(strings.ToUpper(format), "3D")
	}
	return domain.Showing{
		City:       derefStr(firstNonEmptyAlias(m, showingAliases, "city")),
		DateTime:   t,
		Venue:      derefStr(firstNonEmptyAlias(m, showingAliases, "venue")),
		Is3D:       is3D,
		BookingURL: derefStr(firstNonEmptyAlias(m, showingAliases, "booking")),
	}, nil
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
