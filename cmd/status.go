package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/matchbaan/match-cli/internal/model"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline and match table counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := st.StatusSummary(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if statusJSON {
			return printJSON(sum)
		}
		formatStatus(os.Stdout, sum)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(statusCmd)
}

// formatStatus writes the summary as a small table. Candidate statuses are
// printed in pipeline order rather than map order.
func formatStatus(out io.Writer, s *model.StatusSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "Kandidaten")
	order := []model.CandidateStatus{
		model.CandidateQueued,
		model.CandidateProcessing,
		model.CandidateCompleted,
		model.CandidateFailed,
	}
	total := 0
	for _, st := range order {
		n := s.Candidates[st]
		total += n
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", st, n)
	}
	_, _ = fmt.Fprintf(w, "  totaal:\t%d\n", total)

	_, _ = fmt.Fprintln(w, "Vacatures")
	_, _ = fmt.Fprintf(w, "  actief:\t%d\n", s.ActiveVacancies)
	_, _ = fmt.Fprintf(w, "  totaal:\t%d\n", s.TotalVacancies)

	_, _ = fmt.Fprintln(w, "Matches")
	_, _ = fmt.Fprintf(w, "  totaal:\t%d\n", s.Matches)
	_, _ = fmt.Fprintf(w, "  zonder afstand:\t%d\n", s.MissingDistance)

	_ = w.Flush()
}
