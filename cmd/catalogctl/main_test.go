package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cinema_catalog/internal/bootstrap"
	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/shared"
	"cinema_catalog/internal/storage/memory"
)

func newTestContext(st *memory.Store) *commandContext {
	ctx := newCommandContext()
	ctx.openStore = func(shared.Config) (domain.CatalogStore, func(), error) {
		return st, func() {}, nil
	}
	return ctx
}

func runCLI(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTitlesSetAndList(t *testing.T) {
	st := memory.New()
	ctx := newTestContext(st)

	if out, err := runCLI(t, ctx, "titles", "list"); err != nil || !strings.Contains(out, "No title mappings") {
		t.Fatalf("empty list: %q %v", out, err)
	}
	if _, err := runCLI(t, ctx, "titles", "set", "Dune Part 2", "Dune: Part Two"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := runCLI(t, ctx, "titles", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Dune Part 2") || !strings.Contains(out, "Dune: Part Two") {
		t.Fatalf("list output:\n%s", out)
	}

	if _, err := runCLI(t, ctx, "titles", "set", "only-one"); err == nil {
		t.Fatalf("expected arg count error")
	}
	if _, err := runCLI(t, ctx, "titles", "set", " ", "x"); err == nil {
		t.Fatalf("expected empty title error")
	}
}

func TestGenresJSON(t *testing.T) {
	st := memory.New()
	ctx := newTestContext(st)

	if _, err := runCLI(t, ctx, "genres", "set", "Sci-fi", "Science Fiction"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := runCLI(t, ctx, "--json", "genres", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []domain.GenreMapping
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 1 || got[0].NewGenre != "Science Fiction" {
		t.Fatalf("got %+v", got)
	}
}

func TestProfileSetEditsOnlyGivenFlags(t *testing.T) {
	st := memory.New()
	ctx := newTestContext(st)

	if _, err := runCLI(t, ctx, "profiles", "set", "X", "--title", "First", "--year", "2001", "--genres", "Drama, Crime"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := runCLI(t, ctx, "profiles", "set", "X", "--title", "Second"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	profiles := st.Snapshot().Profiles
	if len(profiles) != 1 {
		t.Fatalf("profiles: %+v", profiles)
	}
	p := profiles[0]
	if *p.Title != "Second" || *p.Year != 2001 || strings.Join(p.Genres, "|") != "Drama|Crime" || p.Plot != nil {
		t.Fatalf("profile: %+v", p)
	}

	out, err := runCLI(t, ctx, "profiles", "list")
	if err != nil || !strings.Contains(out, "Second") || !strings.Contains(out, "2001") {
		t.Fatalf("list: %q %v", out, err)
	}
}

func TestUpdateDryRun(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"movies":[
			{"title":"Kept","original_title":"Kept","year":2024,"duration":100,"age_rating":"7",
			 "genres":["Drama"],"plot":"p","poster":"https://img/k.jpg",
			 "showings":[{"city":"Oslo","datetime":"2024-05-03T18:00:00Z","venue":"A","booking_url":"https://t/1"}]},
			{"title":"Broken","showings":[{"city":"Oslo","datetime":"2024-05-03T19:00:00Z","venue":"A","booking_url":"https://t/2"}]}
		]}`))
	}))
	defer feed.Close()

	ctx := newTestContext(memory.New())
	ctx.configOnce.Do(func() {
		ctx.config = shared.Config{Sources: "kino=" + feed.URL, FetchWorkers: 2}
	})
	var gotOpts bootstrap.Options
	ctx.buildDeps = func(c context.Context, cfg shared.Config, opts bootstrap.Options) (*bootstrap.Deps, error) {
		gotOpts = opts
		return bootstrap.Build(c, cfg, opts)
	}

	out, err := runCLI(t, ctx, "update", "--dry-run")
	if err != nil {
		t.Fatalf("update: %v\n%s", err, out)
	}
	if !gotOpts.InMemory {
		t.Fatalf("dry run must use the in-memory store")
	}
	if !strings.Contains(out, "Invalid movies") || !strings.Contains(out, "removed movie") {
		t.Fatalf("summary:\n%s", out)
	}
}
