package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/store"
)

var vacanciesCmd = &cobra.Command{
	Use:   "vacancies",
	Short: "Manage vacancies from the XML feed",
}

var vacanciesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync vacancies from the feed",
	Long:  "Fetches the configured XML feed, upserts every vacancy by external id, and deactivates vacancies that are no longer present. Nothing is ever deleted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "feed")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Syncer.Sync(ctx)
		if err != nil {
			return eris.Wrap(err, "feed sync")
		}
		return printJSON(res)
	},
}

var vacanciesProcessAll bool

var vacanciesProcessCmd = &cobra.Command{
	Use:   "process [id]",
	Short: "Generate summary and embedding for vacancies",
	Long:  "Runs the vacancy pipeline: a Dutch summary of the feed description, an embedding over the summary, and activation. With --all it picks up every vacancy without an embedding.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if vacanciesProcessAll == (len(args) == 1) {
			return eris.New("provide either a vacancy id or --all")
		}

		env, err := initEnv(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		if vacanciesProcessAll {
			res, err := env.Pipeline.ProcessAllVacancies(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Wrapf(err, "invalid vacancy id %q", args[0])
		}
		return env.Pipeline.ProcessVacancy(ctx, id)
	},
}

var (
	vacanciesListActive bool
	vacanciesListLimit  int
)

var vacanciesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vacancies",
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

		vacancies, err := st.ListVacancies(ctx, store.VacancyFilter{
			ActiveOnly: vacanciesListActive,
			Limit:      vacanciesListLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list vacancies")
		}

		if len(vacancies) == 0 {
			fmt.Fprintln(os.Stderr, "Geen vacatures gevonden. Draai `match-cli vacancies sync` om de feed op te halen.")
			return nil
		}

		formatVacancies(os.Stdout, vacancies)
		return nil
	},
}

// formatVacancies writes a tabular listing of vacancies to w.
func formatVacancies(out io.Writer, vacancies []model.Vacancy) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEXTERN\tTITEL\tORGANISATIE\tPLAATS\tACTIEF\tEMBEDDING")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-----------\t------\t------\t---------")

	for i := range vacancies {
		v := &vacancies[i]
		active := "nee"
		if v.Active {
			active = "ja"
		}
		embedded := "-"
		if len(v.Embedding) > 0 {
			embedded = "ja"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			v.ExternalID,
			truncate(v.Title, 40),
			truncate(v.Organization, 30),
			v.City,
			active,
			embedded,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	vacanciesProcessCmd.Flags().BoolVar(&vacanciesProcessAll, "all", false, "process every vacancy without an embedding")
	vacanciesListCmd.Flags().BoolVar(&vacanciesListActive, "active", false, "only list active vacancies")
	vacanciesListCmd.Flags().IntVar(&vacanciesListLimit, "limit", 50, "max number of vacancies to list")

	vacanciesCmd.AddCommand(vacanciesSyncCmd)
	vacanciesCmd.AddCommand(vacanciesProcessCmd)
	vacanciesCmd.AddCommand(vacanciesListCmd)
	rootCmd.AddCommand(vacanciesCmd)
}
