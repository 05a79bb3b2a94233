package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/prompts"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed default prompts",
	Long:  "Creates or updates the database schema and stores an initial version of every prompt type that has none yet, from the optional seed file or the compiled-in defaults.",
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

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		created, err := prompts.NewManager(st).Seed(ctx, cfg.Prompts.SeedPath)
		if err != nil {
			return eris.Wrap(err, "seed prompts")
		}

		zap.L().Info("migrations applied", zap.Int("prompts_seeded", created))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
