package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinema_catalog/internal/domain"
)

func newTitlesCommand(ctx *commandContext) *cobra.Command {
	titlesCmd := &cobra.Command{
		Use:   "titles",
		Short: "Manage originalTitle remappings",
	}

	titlesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List title mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []domain.TitleMapping
			err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				var err error
				rows, err = tx.ListTitleMappings(cmd.Context())
				return err
			})
			if err != nil {
				return fmt.Errorf("list title mappings: %w", err)
			}
			if ctx.JSONMode() {
				if rows == nil {
					rows = []domain.TitleMapping{}
				}
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No title mappings")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.OriginalTitle, r.NewOriginalTitle})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Original title", "Maps to"}, table, nil))
			return nil
		},
	})

	titlesCmd.AddCommand(&cobra.Command{
		Use:   "set <original-title> <new-original-title>",
		Short: "Create or replace a title mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tm := domain.TitleMapping{OriginalTitle: strings.TrimSpace(args[0]), NewOriginalTitle: strings.TrimSpace(args[1])}
			if tm.OriginalTitle == "" || tm.NewOriginalTitle == "" {
				return errors.New("titles must not be empty")
			}
			if err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				return tx.UpsertTitleMapping(cmd.Context(), tm)
			}); err != nil {
				return fmt.Errorf("set title mapping: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q now maps to %q\n", tm.OriginalTitle, tm.NewOriginalTitle)
			return nil
		},
	})

	return titlesCmd
}

func newGenresCommand(ctx *commandContext) *cobra.Command {
	genresCmd := &cobra.Command{
		Use:   "genres",
		Short: "Manage genre renames",
	}

	genresCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List genre mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []domain.GenreMapping
			err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				var err error
				rows, err = tx.ListGenreMappings(cmd.Context())
				return err
			})
			if err != nil {
				return fmt.Errorf("list genre mappings: %w", err)
			}
			if ctx.JSONMode() {
				if rows == nil {
					rows = []domain.GenreMapping{}
				}
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No genre mappings")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.Genre, r.NewGenre})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Genre", "Renamed to"}, table, nil))
			return nil
		},
	})

	genresCmd.AddCommand(&cobra.Command{
		Use:   "set <genre> <new-genre>",
		Short: "Create or replace a genre mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gm := domain.GenreMapping{Genre: strings.TrimSpace(args[0]), NewGenre: strings.TrimSpace(args[1])}
			if gm.Genre == "" || gm.NewGenre == "" {
				return errors.New("genres must not be empty")
			}
			if err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				return tx.UpsertGenreMapping(cmd.Context(), gm)
			}); err != nil {
				return fmt.Errorf("set genre mapping: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q now renamed to %q\n", gm.Genre, gm.NewGenre)
			return nil
		},
	})

	return genresCmd
}

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and curate movie profiles",
	}

	profilesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List movie profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []domain.MovieProfile
			err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				var err error
				rows, err = tx.ListProfiles(cmd.Context())
				return err
			})
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			if ctx.JSONMode() {
				if rows == nil {
					rows = []domain.MovieProfile{}
				}
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, p := range rows {
				table = append(table, []string{
					p.OriginalTitle,
					orDash(p.Title),
					intOrDash(p.Year),
					intOrDash(p.Duration),
					orDash(p.AgeRating),
					strings.Join(p.Genres, ", "),
				})
			}
			headers := []string{"Original title", "Title", "Year", "Minutes", "Rating", "Genres"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, table, aligns))
			return nil
		},
	})

	profilesCmd.AddCommand(newProfileSetCommand(ctx))
	return profilesCmd
}

// newProfileSetCommand edits only the flags given; a missing profile is
// created from them.
func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	var (
		title, ageRating, plot, genres string
		year, duration                 int
	)
	cmd := &cobra.Command{
		Use:   "set <original-title>",
		Short: "Create or edit a movie profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("original title must not be empty")
			}
			flags := cmd.Flags()
			var saved domain.MovieProfile
			err := ctx.withTx(cmd.Context(), func(tx domain.CatalogTx) error {
				p, err := tx.GetProfile(cmd.Context(), key)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					p = domain.MovieProfile{OriginalTitle: key}
				case err != nil:
					return err
				}
				if flags.Changed("title") {
					p.Title = &title
				}
				if flags.Changed("year") {
					p.Year = &year
				}
				if flags.Changed("duration") {
					p.Duration = &duration
				}
				if flags.Changed("age-rating") {
					p.AgeRating = &ageRating
				}
				if flags.Changed("plot") {
					p.Plot = &plot
				}
				if flags.Changed("genres") {
					p.Genres = splitList(genres)
				}
				saved = p
				return tx.UpsertProfile(cmd.Context(), p)
			})
			if err != nil {
				return fmt.Errorf("set profile: %w", err)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	cmd.Flags().IntVar(&duration, "duration", 0, "Runtime in minutes")
	cmd.Flags().StringVar(&ageRating, "age-rating", "", "Age rating")
	cmd.Flags().StringVar(&plot, "plot", "", "Plot summary")
	cmd.Flags().StringVar(&genres, "genres", "", "Comma separated genres")
	return cmd
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func intOrDash(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
