package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cinema_catalog/internal/app"
	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/storage/memory"
)

func validate(t *testing.T, st domain.CatalogStore) app.Findings {
	t.Helper()
	var f app.Findings
	inTx(t, st, func(ctx context.Context, tx domain.CatalogTx) error {
		var err error
		f, err = app.NewValidator().Validate(ctx, tx)
		return err
	})
	return f
}

func TestValidate_RemovesExactlyTheIncompleteMovies(t *testing.T) {
	st := memory.New()
	var noPlot, noGenres int64
	inTx(t, st, func(ctx context.Context, tx domain.CatalogTx) error {
		mustInsert(t, ctx, tx, completeMovie("Good"), showing("A", t0))

		m := completeMovie("NoPlot")
		m.Plot = ptr("  ")
		noPlot = mustInsert(t, ctx, tx, m, showing("A", t0))

		m = completeMovie("NoGenres")
		m.Genres = nil
		m.Year = ptr(0)
		noGenres = mustInsert(t, ctx, tx, m, showing("A", t0))
		return nil
	})
	before := len(st.Snapshot().Movies)

	f := validate(t, st)

	after := st.Snapshot().Movies
	if before-len(after) != 2 || len(f.Movies) != 2 {
		t.Fatalf("before=%d after=%d findings=%d", before, len(after), len(f.Movies))
	}
	if deref(after[0].OriginalTitle) != "Good" {
		t.Fatalf("wrong survivor %q", deref(after[0].OriginalTitle))
	}
	if f.Movies[0].ID != noPlot || f.Movies[1].ID != noGenres {
		t.Fatalf("findings out of encounter order: %+v", f.Movies)
	}
	fields := domain.FieldNames(f.Movies[1].Violations)
	if strings.Join(fields, ",") != "year,genres" {
		t.Fatalf("violations = %v", fields)
	}
	if f.Movies[0].Earliest == nil || f.Movies[0].OriginalTitle == nil {
		t.Fatalf("report data must be captured before deletion: %+v", f.Movies[0])
	}
}

func TestValidate_DetachesIncompleteFeaturedWithoutDeleting(t *testing.T) {
	st := memory.New()
	inTx(t, st, func(ctx context.Context, tx domain.CatalogTx) error {
		id := mustInsert(t, ctx, tx, completeMovie("X"), showing("A", t0))

		if _, err := tx.InsertFeatured(ctx, completeFeatured(&id, "X")); err != nil {
			return err
		}
		broken := completeFeatured(&id, "X")
		broken.ImageURL = nil
		if _, err := tx.InsertFeatured(ctx, broken); err != nil {
			return err
		}
		loose := completeFeatured(nil, "Z")
		loose.Label = ptr("")
		_, err := tx.InsertFeatured(ctx, loose)
		return err
	})

	f := validate(t, st)

	if len(f.Featured) != 2 {
		t.Fatalf("want 2 invalid featured, got %d", len(f.Featured))
	}
	feat := st.Snapshot().Featured
	if len(feat) != 3 {
		t.Fatalf("featured rows must survive, got %d", len(feat))
	}
	if feat[0].MovieID == nil {
		t.Fatalf("valid featured lost its movie")
	}
	if feat[1].MovieID != nil || feat[2].MovieID != nil {
		t.Fatalf("invalid featured still linked: %+v", feat[1:])
	}
	if len(st.Snapshot().Movies) != 1 {
		t.Fatalf("movie must stay")
	}
}

func TestValidate_DeletedMovieUnlinksFeatured(t *testing.T) {
	st := memory.New()
	inTx(t, st, func(ctx context.Context, tx domain.CatalogTx) error {
		m := completeMovie("X")
		m.Poster = nil
		id := mustInsert(t, ctx, tx, m, showing("A", t0))
		_, err := tx.InsertFeatured(ctx, completeFeatured(&id, "X"))
		return err
	})

	f := validate(t, st)

	if len(f.Movies) != 1 || len(f.Featured) != 0 {
		t.Fatalf("findings: %+v", f)
	}
	feat := st.Snapshot().Featured
	if len(feat) != 1 || feat[0].MovieID != nil {
		t.Fatalf("featured should survive unlinked: %+v", feat)
	}
}

func TestValidate_WrapsStoreErrors(t *testing.T) {
	mem := memory.New()
	inTx(t, mem, func(ctx context.Context, tx domain.CatalogTx) error {
		mustInsert(t, ctx, tx, domain.Movie{OriginalTitle: ptr("X")}, showing("A", t0))
		return nil
	})
	st := &failingStore{Store: mem, failOn: "delete"}

	ctx := context.Background()
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	_, err = app.NewValidator().Validate(ctx, tx)
	var ve *domain.ValidationStoreError
	if !errors.As(err, &ve) || ve.Op != "delete movie" {
		t.Fatalf("want ValidationStoreError, got %v", err)
	}
}

func TestReport_OrdersByEarliestShowing(t *testing.T) {
	f := app.Findings{Movies: []app.InvalidMovie{
		{ID: 1, OriginalTitle: ptr("Later"), Earliest: ptr(showing("A", t0.Add(10*time.Minute)))},
		{ID: 2, OriginalTitle: nil},
		{ID: 3, OriginalTitle: ptr("Sooner"), Earliest: ptr(showing("B", t0))},
	}}

	got := f.Report()

	sooner := strings.Index(got, "Sooner 2024-05-3 18:00")
	later := strings.Index(got, "Later 2024-05-3 18:10")
	missing := strings.Index(got, "<p>missing originalTitle</p>")
	if sooner < 0 || later < 0 || missing < 0 {
		t.Fatalf("report lines missing:\n%s", got)
	}
	if !(sooner < later && later < missing) {
		t.Fatalf("wrong order:\n%s", got)
	}
	if !strings.Contains(got, `<a href="https://tix.example/B/`) {
		t.Fatalf("link must point at the earliest showing:\n%s", got)
	}
}

func TestReport_EmptyFindings(t *testing.T) {
	got := app.Findings{}.Report()
	want := "<p>All movies are complete.</p>" + app.ReportSeparator + "<p>All featured entries are complete.</p>"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestReport_EscapesTitlesAndListsFeatured(t *testing.T) {
	f := app.Findings{
		Movies: []app.InvalidMovie{
			{ID: 1, OriginalTitle: ptr("Tom & Jerry <3>"), Earliest: ptr(showing("A", t0))},
			{ID: 2, OriginalTitle: ptr(""), Earliest: ptr(showing("A", t0))},
		},
		Featured: []app.InvalidFeatured{{ID: 9, OriginalTitle: ptr("Feature")}, {ID: 10}},
	}

	got := f.Report()

	if !strings.Contains(got, "Tom &amp; Jerry &lt;3&gt;") {
		t.Fatalf("title not escaped:\n%s", got)
	}
	parts := strings.Split(got, app.ReportSeparator)
	if len(parts) != 2 {
		t.Fatalf("want two sections, got %d", len(parts))
	}
	if strings.Count(parts[0], "<p>missing originalTitle</p>") != 1 {
		t.Fatalf("empty originalTitle should fall back:\n%s", parts[0])
	}
	if !strings.Contains(parts[1], "<p>Feature</p><p>missing originalTitle</p>") {
		t.Fatalf("featured section:\n%s", parts[1])
	}
}

func TestReport_RendersWallClockInReportLocation(t *testing.T) {
	oslo := time.FixedZone("CEST", 2*60*60)
	// 18:00 local, as a store normalizing to UTC hands it back
	at := time.Date(2024, 5, 3, 18, 0, 0, 0, oslo).UTC()
	f := app.Findings{Movies: []app.InvalidMovie{
		{ID: 1, OriginalTitle: ptr("Kuolleet lehdet"), Earliest: ptr(showing("A", at))},
	}}

	if got := f.ReportIn(oslo); !strings.Contains(got, "Kuolleet lehdet 2024-05-3 18:00") {
		t.Fatalf("want local wall clock:\n%s", got)
	}
	if got := f.Report(); !strings.Contains(got, "Kuolleet lehdet 2024-05-3 16:00") {
		t.Fatalf("default should be UTC:\n%s", got)
	}
	// same instant from a store that kept the source zone renders identically
	same := app.Findings{Movies: []app.InvalidMovie{
		{ID: 1, OriginalTitle: ptr("Kuolleet lehdet"), Earliest: ptr(showing("A", at.In(oslo)))},
	}}
	if f.ReportIn(oslo) != same.ReportIn(oslo) {
		t.Fatalf("report depends on the stored zone")
	}
}
