package domain

import "strings"

// Violation names one field that failed a completeness check.
type Violation struct {
	Field  string
	Reason string
}

const (
	ReasonMissing = "missing"
	ReasonEmpty   = "empty"
)

type checks []Violation

func (c *checks) str(field string, v *string) {
	switch {
	case v == nil:
		*c = append(*c, Violation{Field: field, Reason: ReasonMissing})
	case strings.TrimSpace(*v) == "":
		*c = append(*c, Violation{Field: field, Reason: ReasonEmpty})
	}
}

func (c *checks) num(field string, v *int) {
	switch {
	case v == nil:
		*c = append(*c, Violation{Field: field, Reason: ReasonMissing})
	case *v <= 0:
		*c = append(*c, Violation{Field: field, Reason: ReasonEmpty})
	}
}

func (c *checks) list(field string, n int) {
	if n == 0 {
		*c = append(*c, Violation{Field: field, Reason: ReasonEmpty})
	}
}

// CheckMovie lists every completeness violation of m. An empty result means
// the movie is valid.
func CheckMovie(m Movie) []Violation {
	var c checks
	c.str("title", m.Title)
	c.str("originalTitle", m.OriginalTitle)
	c.num("year", m.Year)
	c.num("duration", m.Duration)
	c.str("ageRating", m.AgeRating)
	c.list("genres", len(m.Genres))
	c.str("plot", m.Plot)
	c.str("poster", m.Poster)
	c.list("showings", len(m.Showings))
	return c
}

func CheckFeatured(f Featured) []Violation {
	var c checks
	c.str("label", f.Label)
	c.str("title", f.Title)
	c.str("originalTitle", f.OriginalTitle)
	if f.StartDate == nil || f.StartDate.IsZero() {
		c = append(c, Violation{Field: "startDate", Reason: ReasonMissing})
	}
	if f.EndDate == nil || f.EndDate.IsZero() {
		c = append(c, Violation{Field: "endDate", Reason: ReasonMissing})
	}
	c.str("imageURL", f.ImageURL)
	return c
}

// FieldNames flattens violations for logging.
func FieldNames(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Field)
	}
	return out
}
