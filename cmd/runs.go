package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
	"github.com/sells-group/lispendens-cli/internal/resilience"
	"github.com/sells-group/lispendens-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and retry resolution runs",
	Long:  "Commands for listing runs, viewing run details, summarizing outcomes, and draining the dead letter queue.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolution runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		county, _ := cmd.Flags().GetString("county")
		document, _ := cmd.Flags().GetString("document")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status:         model.RunStatus(status),
			County:         county,
			DocumentNumber: document,
			Limit:          limit,
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		county, _ := cmd.Flags().GetString("county")

		// Runs come back newest first, so the limit is the stats window.
		runs, err := st.ListRuns(ctx, store.RunFilter{County: county, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		stats := computeRunStats(runs)
		formatRunStats(os.Stdout, stats)
		return nil
	},
}

// -- runs retry --

var retryLimit int

var runsRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reprocess parked filings from the dead letter queue",
	Long:  "Drains due transient entries: each parked filing runs through the pipeline again. Success removes the entry; another transient failure re-parks it with one less retry.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Store.DequeueDLQ(ctx, resilience.DLQFilter{
			ErrorType: resilience.ErrorTypeTransient,
			Limit:     retryLimit,
		})
		if err != nil {
			return eris.Wrap(err, "dequeue dlq")
		}
		if len(entries) == 0 {
			zap.L().Info("no retryable entries")
			return nil
		}

		// Entries drain sequentially; most parks share one upstream outage.
		zap.L().Info("draining dead letter queue", zap.Int("entries", len(entries)))

		summary := drainDLQ(ctx, env.Store, entries, env.Pipeline.Process)

		zap.L().Info("drain complete",
			zap.Int("drained", summary.drained),
			zap.Int("requeued", summary.requeued),
			zap.Int("failed", summary.failed),
		)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, resolving, complete, failed, ...)")
	runsListCmd.Flags().String("county", "", "filter by county")
	runsListCmd.Flags().String("document", "", "filter by document number")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Int("limit", 1000, "number of most recent runs to aggregate")
	runsStatsCmd.Flags().String("county", "", "restrict stats to one county")

	runsRetryCmd.Flags().IntVar(&retryLimit, "limit", 100, "max entries to drain")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsRetryCmd)
	rootCmd.AddCommand(runsCmd)
}

// retryHold spaces repeat drains of an entry whose latest failure was
// permanent; each hold also spends one retry, so the entry ages out.
const retryHold = 15 * time.Minute

type drainSummary struct {
	drained  int
	requeued int
	failed   int
}

// drainDLQ reprocesses each parked filing. Success removes the entry; a
// transient re-failure leaves the re-parked entry alone (the pipeline already
// spent the attempt); a permanent failure is recorded on the entry and the
// run log owns the filing from there. Cancellation stops the drain with the
// remaining entries untouched.
func drainDLQ(ctx context.Context, st store.Store, entries []resilience.DLQEntry, process processFunc) drainSummary {
	var s drainSummary

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		log := zap.L().With(
			zap.String("document", entry.Filing.DocumentNumber),
			zap.String("county", entry.Filing.County),
			zap.Int("retry_count", entry.RetryCount),
		)

		_, err := process(ctx, entry.Filing)
		switch {
		case err == nil:
			if rmErr := st.RemoveDLQ(ctx, entry.ID); rmErr != nil {
				log.Warn("failed to remove drained entry", zap.Error(rmErr))
			}
			s.drained++
			log.Info("parked filing processed")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Entry untouched; the next drain resumes here.
		case registry.IsUnavailable(err) || resilience.IsTransient(err):
			// The pipeline re-parked the filing onto this entry with one
			// more spent attempt.
			s.requeued++
			log.Warn("parked filing failed again", zap.Error(err))
		default:
			if incErr := st.IncrementDLQRetry(ctx, entry.ID, time.Now().Add(retryHold), err.Error()); incErr != nil {
				log.Warn("failed to record permanent failure on entry", zap.Error(incErr))
			}
			s.failed++
			log.Error("parked filing failed permanently", zap.Error(err))
		}
	}
	return s
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Complete   int
	Failed     int
	Canceled   int
	Other      int
	Matched    int
	NotFound   int
	Ineligible int
	Delivered  int
	AvgDurSecs float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusFailed:
			s.Failed++
		case model.RunStatusCanceled:
			s.Canceled++
		default:
			s.Other++
		}

		if r.Result != nil {
			switch r.Result.Outcome {
			case model.OutcomeMatched:
				s.Matched++
				if !r.Result.Eligible {
					s.Ineligible++
				}
			case model.OutcomeNotFound, model.OutcomeNoLegalMatch:
				s.NotFound++
			}
			if len(r.Result.Delivered) > 0 {
				s.Delivered++
			}
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOCUMENT\tCOUNTY\tSTATUS\tOUTCOME\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		outcome := ""
		if r.Result != nil {
			outcome = string(r.Result.Outcome)
			if r.Result.Outcome == model.OutcomeMatched && !r.Result.Eligible {
				outcome = "ineligible"
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Filing.DocumentNumber,
			r.Filing.County,
			r.Status,
			outcome,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Canceled:\t%d\n", s.Canceled)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Matched:\t%d\n", s.Matched)
	_, _ = fmt.Fprintf(w, "  Ineligible:\t%d\n", s.Ineligible)
	_, _ = fmt.Fprintf(w, "No match:\t%d\n", s.NotFound)
	_, _ = fmt.Fprintf(w, "Delivered:\t%d\n", s.Delivered)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
