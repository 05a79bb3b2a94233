package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/export"
	"github.com/matchbaan/match-cli/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Compute and export candidate/vacancy matches",
}

var matchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Recompute the match table",
	Long:  "Scores every completed candidate against every active vacancy by cosine similarity and replaces the match table with the global top ranking.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "matching")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var matchDistancesCmd = &cobra.Command{
	Use:   "distances",
	Short: "Backfill travel distances for new matches",
	Long:  "Visits every match without a computed distance, geocodes the vacancy place when needed, and stores the great-circle distance. Matches where either side has no location get a definitive empty distance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "matching")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Backfill.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var (
	matchExportOut   string
	matchExportLimit int
)

var matchExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matches to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		matches, err := st.ListMatches(ctx, store.MatchFilter{Limit: matchExportLimit})
		if err != nil {
			return eris.Wrap(err, "list matches")
		}

		if err := export.WriteMatches(matchExportOut, matches); err != nil {
			return err
		}
		zap.L().Info("matches exported",
			zap.String("file", matchExportOut),
			zap.Int("rows", len(matches)))
		return nil
	},
}

func init() {
	matchExportCmd.Flags().StringVar(&matchExportOut, "out", "matches.xlsx", "output file path")
	matchExportCmd.Flags().IntVar(&matchExportLimit, "limit", 0, "max rows to export (0 = all)")

	matchCmd.AddCommand(matchRunCmd)
	matchCmd.AddCommand(matchDistancesCmd)
	matchCmd.AddCommand(matchExportCmd)
	rootCmd.AddCommand(matchCmd)
}
