package app

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ReportSeparator = "<p>-----</p>"

	moviesOKLine       = "<p>All movies are complete.</p>"
	moviesHeader       = "<p>Removed incomplete movies:</p>"
	featuredOKLine     = "<p>All featured entries are complete.</p>"
	featuredHeader     = "<p>Detached incomplete featured entries:</p>"
	missingOriginalTxt = "missing originalTitle"

	// yyyy-MM-d HH:mm
	showingDateLayout = "2006-01-2 15:04"
)

// Report renders the findings with showtimes in UTC.
func (f Findings) Report() string { return f.ReportIn(time.UTC) }

// ReportIn renders the findings as the HTML snippet sent to the notifier.
// Showtimes are converted to loc whatever zone the store returned them in.
func (f Findings) ReportIn(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString(f.moviesSection(loc))
	b.WriteString(ReportSeparator)
	b.WriteString(f.featuredSection())
	return b.String()
}

// sortedMovies orders by earliest showing. Movies without any showing have no
// comparable date and go last, in the order they were found.
func (f Findings) sortedMovies() []InvalidMovie {
	out := append([]InvalidMovie(nil), f.Movies...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Earliest, out[j].Earliest
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.DateTime.Before(b.DateTime)
		}
	})
	return out
}

func (f Findings) moviesSection(loc *time.Location) string {
	if len(f.Movies) == 0 {
		return moviesOKLine
	}
	var b strings.Builder
	b.WriteString(moviesHeader)
	for _, m := range f.sortedMovies() {
		if m.Earliest == nil {
			log.Warn().Int64("movie_id", m.ID).Msg("invalid movie has no showing to sort by; listed last")
		}
		if m.OriginalTitle == nil || *m.OriginalTitle == "" || m.Earliest == nil {
			b.WriteString("<p>" + missingOriginalTxt + "</p>")
			continue
		}
		fmt.Fprintf(&b, `<p><a href="%s">%s %s</a></p>`,
			html.EscapeString(m.Earliest.BookingURL),
			html.EscapeString(*m.OriginalTitle),
			m.Earliest.DateTime.In(loc).Format(showingDateLayout),
		)
	}
	return b.String()
}

func (f Findings) featuredSection() string {
	if len(f.Featured) == 0 {
		return featuredOKLine
	}
	var b strings.Builder
	b.WriteString(featuredHeader)
	for _, ft := range f.Featured {
		title := missingOriginalTxt
		if ft.OriginalTitle != nil && *ft.OriginalTitle != "" {
			title = *ft.OriginalTitle
		}
		b.WriteString("<p>" + html.EscapeString(title) + "</p>")
	}
	return b.String()
}
