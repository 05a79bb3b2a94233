package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/store"
)

var (
	processAll       bool
	processReprocess bool
)

var processCmd = &cobra.Command{
	Use:   "process [id]",
	Short: "Run the pipeline for stored candidates",
	Long:  "Processes one candidate by id, or with --all every candidate that is queued or failed. --reprocess reruns from summarization onward using the stored CV text; with --all it revisits completed candidates too.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if processAll == (len(args) == 1) {
			return eris.New("provide either a candidate id or --all")
		}

		env, err := initEnv(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		if !processAll {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return eris.Wrapf(err, "invalid candidate id %q", args[0])
			}
			if processReprocess {
				return env.Pipeline.Reprocess(ctx, id)
			}
			return env.Pipeline.Process(ctx, id)
		}

		ids, err := selectCandidateIDs(ctx, env.Store, processReprocess)
		if err != nil {
			return err
		}
		zap.L().Info("processing candidates",
			zap.Int("count", len(ids)),
			zap.Bool("reprocess", processReprocess))

		res, err := env.Pipeline.ProcessAll(ctx, ids, 0)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

// selectCandidateIDs pages through the store and returns the ids a bulk run
// should visit: queued and failed candidates, or every candidate when
// reprocessing after a prompt or model change.
func selectCandidateIDs(ctx context.Context, st store.Store, includeCompleted bool) ([]int64, error) {
	var ids []int64
	const page = 200
	for offset := 0; ; offset += page {
		candidates, err := st.ListCandidates(ctx, store.CandidateFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "list candidates")
		}
		for i := range candidates {
			c := &candidates[i]
			if includeCompleted ||
				c.Status == model.CandidateQueued || c.Status == model.CandidateFailed {
				ids = append(ids, c.ID)
			}
		}
		if len(candidates) < page {
			break
		}
	}
	return ids, nil
}

func init() {
	processCmd.Flags().BoolVar(&processAll, "all", false, "process every queued or failed candidate")
	processCmd.Flags().BoolVar(&processReprocess, "reprocess", false, "rerun from summarization onward using stored CV text")
	rootCmd.AddCommand(processCmd)
}
