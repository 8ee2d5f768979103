package main

import (
	"context"
	"errors"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/pipeline"
	"github.com/sells-group/lispendens-cli/internal/registry"
	"github.com/sells-group/lispendens-cli/internal/resilience"
	"github.com/sells-group/lispendens-cli/internal/store"
)

var (
	batchLimit  int
	batchCounty string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process pending filings from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		filings, err := env.Store.ListFilings(ctx, store.FilingFilter{
			Status: model.FilingStatusPending,
			County: batchCounty,
			Limit:  batchLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list pending filings")
		}

		summary := processFilings(ctx, filings, cfg.Batch.Concurrency, env.Pipeline.Process)

		// The summary goes out even when the batch was interrupted.
		if err := pipeline.Notify(context.WithoutCancel(ctx), cfg.Alerts.WebhookURL, summary); err != nil {
			zap.L().Warn("batch summary notification failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of filings to process")
	batchCmd.Flags().StringVar(&batchCounty, "county", "", "only process filings for this county")
	rootCmd.AddCommand(batchCmd)
}

// processFunc is the callback signature for processing one filing.
type processFunc func(ctx context.Context, filing model.Filing) (*model.Run, error)

// processFilings drains the given filings concurrently and aggregates the
// batch summary. Individual failures never abort the batch; on cancellation
// the remaining filings stay pending for the next batch.
func processFilings(ctx context.Context, filings []model.QueuedFiling, concurrency int, process processFunc) pipeline.Summary {
	summary := pipeline.Summary{StartedAt: time.Now().UTC()}

	if len(filings) == 0 {
		zap.L().Info("no pending filings")
		summary.FinishedAt = time.Now().UTC()
		return summary
	}

	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("filings", len(filings)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var processed, matched, ineligible, delivered, review, failed, parked atomic.Int64

	counties := make(map[string]struct{})
	for _, qf := range filings {
		counties[qf.Filing.County] = struct{}{}
	}

	for _, qf := range filings {
		filing := qf.Filing
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			log := zap.L().With(
				zap.String("document", filing.DocumentNumber),
				zap.String("county", filing.County),
			)

			run, err := process(gctx, filing)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					log.Warn("filing interrupted, left pending")
					return nil
				}
				if registry.IsUnavailable(err) || resilience.IsTransient(err) {
					parked.Add(1)
				} else {
					failed.Add(1)
				}
				log.Error("filing failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			processed.Add(1)
			if run != nil && run.Result != nil {
				if run.Result.Outcome == model.OutcomeMatched {
					matched.Add(1)
					if !run.Result.Eligible {
						ineligible.Add(1)
					}
				}
				for _, sink := range run.Result.Delivered {
					switch sink {
					case "salesforce":
						delivered.Add(1)
					case "notion":
						review.Add(1)
					}
				}
			}
			log.Info("filing processed")
			return nil
		})
	}

	_ = g.Wait()

	summary.FinishedAt = time.Now().UTC()
	summary.Processed = processed.Load()
	summary.Matched = matched.Load()
	summary.Ineligible = ineligible.Load()
	summary.Delivered = delivered.Load()
	summary.Review = review.Load()
	summary.Failed = failed.Load()
	summary.Parked = parked.Load()
	for c := range counties {
		summary.Counties = append(summary.Counties, c)
	}
	sort.Strings(summary.Counties)

	zap.L().Info("batch complete",
		zap.Int64("processed", summary.Processed),
		zap.Int64("matched", summary.Matched),
		zap.Int64("delivered", summary.Delivered),
		zap.Int64("review", summary.Review),
		zap.Int64("failed", summary.Failed),
		zap.Int64("parked", summary.Parked),
	)
	return summary
}
