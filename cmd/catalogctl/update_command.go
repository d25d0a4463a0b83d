package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cinema_catalog/internal/bootstrap"
	"cinema_catalog/internal/domain"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run one catalog update now",
		Long: "Fetches every configured source, merges and validates the catalog in one\n" +
			"transaction, then prints the run summary. With --dry-run the run goes into an\n" +
			"empty in-memory catalog so the report can be previewed without touching MySQL,\n" +
			"Redis or the report queue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.ensureConfig()
			deps, err := ctx.buildDeps(cmd.Context(), cfg, bootstrap.Options{InMemory: dryRun})
			if err != nil {
				return err
			}
			defer deps.Close()

			res, err := deps.Updates.Run(cmd.Context())
			if errors.Is(err, domain.ErrRunInProgress) {
				return errors.New("another update is running; try again later")
			}
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"run_id":           res.RunID,
					"inserted":         res.Inserted,
					"remapped":         res.Organize.Remapped,
					"profiles_created": res.Organize.ProfilesCreated,
					"profiles_applied": res.Organize.ProfilesApplied,
					"showings_moved":   res.Organize.ShowingsMoved,
					"orphans_removed":  res.Organize.OrphansRemoved,
					"invalid_movies":   len(res.Findings.Movies),
					"invalid_featured": len(res.Findings.Featured),
					"duration_ms":      res.Duration.Milliseconds(),
					"report":           res.Report,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished in %s\n\n", res.RunID, res.Duration.Round(time.Millisecond))
			rows := [][]string{
				{"Inserted", strconv.Itoa(res.Inserted)},
				{"Titles remapped", strconv.Itoa(res.Organize.Remapped)},
				{"Profiles created", strconv.Itoa(res.Organize.ProfilesCreated)},
				{"Profiles applied", strconv.Itoa(res.Organize.ProfilesApplied)},
				{"Showings moved", strconv.FormatInt(res.Organize.ShowingsMoved, 10)},
				{"Orphans removed", strconv.FormatInt(res.Organize.OrphansRemoved, 10)},
				{"Invalid movies", strconv.Itoa(len(res.Findings.Movies))},
				{"Invalid featured", strconv.Itoa(len(res.Findings.Featured))},
			}
			fmt.Fprintln(out, renderTable([]string{"Stage", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			for _, m := range res.Findings.Movies {
				fmt.Fprintf(out, "removed movie %d: %v\n", m.ID, domain.FieldNames(m.Violations))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run against an empty in-memory catalog")
	return cmd
}
