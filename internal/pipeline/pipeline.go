// Package pipeline runs one filing through the resolve, eligibility,
// skiptrace, and deliver stages, recording per-stage results on the run.
// Transient failures park the filing in the dead letter queue; delivery
// sinks fan out concurrently and fail independently.
package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/config"
	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
	"github.com/sells-group/lispendens-cli/internal/resilience"
	"github.com/sells-group/lispendens-cli/internal/resolve"
	"github.com/sells-group/lispendens-cli/internal/store"
	"github.com/sells-group/lispendens-cli/pkg/notion"
	"github.com/sells-group/lispendens-cli/pkg/salesforce"
	"github.com/sells-group/lispendens-cli/pkg/skiptrace"
)

// DLQ retry budget for parked filings. The drain cadence is external (cron),
// so the delay only has to outlast a portal hiccup.
const (
	dlqMaxRetries = 5
	dlqRetryDelay = 15 * time.Minute
)

// Pipeline orchestrates the per-filing stages.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	resolver   *resolve.Resolver
	salesforce salesforce.Client
	notion     notion.Client
	skiptrace  skiptrace.Client
}

// New creates a Pipeline. The salesforce, notion, and skiptrace clients may
// be nil when their config sections are disabled; the stages that need them
// record a skip instead.
func New(
	cfg *config.Config,
	st store.Store,
	resolver *resolve.Resolver,
	sfClient salesforce.Client,
	notionClient notion.Client,
	skipClient skiptrace.Client,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		resolver:   resolver,
		salesforce: sfClient,
		notion:     notionClient,
		skiptrace:  skipClient,
	}
}

// Process runs the full pipeline for a single filing. The returned run
// carries the stage results even when err is non-nil; callers decide whether
// to keep draining on a per-filing failure.
func (p *Pipeline) Process(ctx context.Context, filing model.Filing) (*model.Run, error) {
	log := zap.L().With(
		zap.String("document", filing.DocumentNumber),
		zap.String("county", filing.County),
	)
	log.Info("pipeline: processing filing")

	run, err := p.store.CreateRun(ctx, filing)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	result := &model.RunResult{}
	run.Result = result

	setStatus := func(status model.RunStatus) {
		run.Status = status
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Stage tracking helper with mutex for concurrent access.
	var stagesMu sync.Mutex
	trackStage := func(name string, fn func() (*model.StageResult, error)) *model.StageResult {
		stage, stageErr := p.store.CreateStage(ctx, run.ID, name)
		if stageErr != nil {
			log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(stageErr))
		}

		start := time.Now()
		stageResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if stageResult == nil {
			stageResult = &model.StageResult{}
		}
		stageResult.Name = name
		stageResult.Duration = duration

		if fnErr != nil {
			stageResult.Status = model.StageStatusFailed
			stageResult.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if stageResult.Status == "" {
			stageResult.Status = model.StageStatusComplete
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if stage != nil {
			_ = p.store.CompleteStage(ctx, stage.ID, stageResult)
		}
		stagesMu.Lock()
		result.Stages = append(result.Stages, *stageResult)
		stagesMu.Unlock()
		return stageResult
	}

	party := resolve.NormalizeGrantees(filing.GranteeBlock)

	// ===== Stage 1: Resolution =====
	setStatus(model.RunStatusResolving)

	var resolution model.ResolutionResult
	var resolveErr error
	trackStage("resolve", func() (*model.StageResult, error) {
		resolution, resolveErr = p.resolver.Resolve(ctx, filing)
		if resolveErr != nil {
			return nil, resolveErr
		}
		return &model.StageResult{
			Metadata: map[string]any{
				"outcome":          string(resolution.Outcome.Kind),
				"method":           string(resolution.Outcome.Method),
				"exact_candidates": resolution.Diagnostics.Exact.Candidates,
				"fuzzy_candidates": resolution.Diagnostics.Fuzzy.Candidates,
			},
		}, nil
	})
	if resolveErr != nil {
		return p.failRun(ctx, run, filing, "resolve", resolveErr)
	}
	if resolution.Diagnostics.Canceled || ctx.Err() != nil {
		return p.cancelRun(ctx, run, log)
	}

	result.Outcome = resolution.Outcome.Kind
	result.Method = resolution.Outcome.Method
	result.ParcelNumber = resolution.Outcome.ParcelNumber

	// ===== Stage 2: Eligibility =====
	// The verdict is computed during resolution; the stage records it so the
	// run log shows why a filing was or was not delivered.
	eligibility := resolution.Eligibility
	result.Eligible = eligibility.Eligible
	result.Reason = eligibility.Reason

	trackStage("eligibility", func() (*model.StageResult, error) {
		md := map[string]any{"eligible": eligibility.Eligible}
		if eligibility.Reason != "" {
			md["reason"] = eligibility.Reason
		}
		if eligibility.Detail != "" {
			md["detail"] = eligibility.Detail
		}
		if len(eligibility.Warnings) > 0 {
			md["warnings"] = eligibility.Warnings
		}
		return &model.StageResult{Metadata: md}, nil
	})
	if ctx.Err() != nil {
		return p.cancelRun(ctx, run, log)
	}

	// ===== Stage 3: Skip trace =====
	var contact *model.Contact
	if eligibility.Eligible && resolution.Outcome.Matched() && p.skiptrace != nil {
		st := trackStage("skiptrace", func() (*model.StageResult, error) {
			c, fromCache, skipErr := p.lookupContact(ctx, party.PrimaryName, resolution.Outcome)
			if skipErr != nil {
				return nil, skipErr
			}
			contact = c
			return &model.StageResult{
				Metadata: map[string]any{
					"phones":     len(c.Phones),
					"emails":     len(c.Emails),
					"from_cache": fromCache,
				},
			}, nil
		})
		// A failed lookup downgrades to a warning on the lead.
		if st.Status == model.StageStatusFailed {
			eligibility.Warnings = append(eligibility.Warnings, "skip trace unavailable")
		}
	} else {
		trackStage("skiptrace", func() (*model.StageResult, error) {
			return &model.StageResult{
				Status:   model.StageStatusSkipped,
				Metadata: map[string]any{"reason": skipTraceSkipReason(eligibility, resolution.Outcome)},
			}, nil
		})
	}
	if ctx.Err() != nil {
		return p.cancelRun(ctx, run, log)
	}

	// ===== Stage 4: Delivery =====
	setStatus(model.RunStatusDelivering)

	var deliverErr error
	trackStage("deliver", func() (*model.StageResult, error) {
		var st *model.StageResult
		st, deliverErr = p.deliver(ctx, party, filing, resolution, eligibility, contact, result)
		return st, deliverErr
	})
	if deliverErr != nil {
		return p.failRun(ctx, run, filing, "deliver", deliverErr)
	}

	if statusErr := p.store.UpdateFilingStatus(ctx, filing.County, filing.DocumentNumber, model.FilingStatusProcessed, run.ID); statusErr != nil {
		log.Warn("pipeline: failed to update filing status", zap.Error(statusErr))
	}
	setStatus(model.RunStatusComplete)
	if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}

	log.Info("pipeline: filing processed",
		zap.String("run_id", run.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("eligible", result.Eligible),
		zap.Strings("delivered", result.Delivered),
	)
	return run, nil
}

// lookupContact fetches skip-trace contact data for a matched parcel, going
// through the store cache first. Cached entries are keyed by parcel number:
// the occupant does not change between filings on the same property within
// the cache TTL.
func (p *Pipeline) lookupContact(ctx context.Context, ownerName string, outcome model.MatchOutcome) (*model.Contact, bool, error) {
	cached, err := p.store.GetCachedSkipTrace(ctx, outcome.ParcelNumber)
	if err != nil {
		zap.L().Warn("pipeline: skip trace cache read failed", zap.Error(err))
	} else if cached != nil {
		var c model.Contact
		if jsonErr := json.Unmarshal(cached, &c); jsonErr == nil {
			return &c, true, nil
		}
		// Undecodable entries fall through and get rewritten below.
	}

	res, err := p.skiptrace.Lookup(ctx, skiptrace.LookupRequest{
		Name:   ownerName,
		Street: outcome.AddressLine,
		City:   outcome.City,
		State:  "FL",
		Zip:    outcome.Zip,
	})
	if err != nil {
		return nil, false, err
	}

	contact := &model.Contact{Source: "skiptrace", Emails: res.Emails}
	if best := res.BestPhone(); best != "" {
		contact.Phones = append(contact.Phones, best)
		for _, ph := range res.Phones {
			if ph.Number != best {
				contact.Phones = append(contact.Phones, ph.Number)
			}
		}
	}

	if data, marshalErr := json.Marshal(contact); marshalErr == nil {
		if cacheErr := p.store.SetCachedSkipTrace(ctx, outcome.ParcelNumber, data, p.cfg.Skiptrace.CacheTTL); cacheErr != nil {
			zap.L().Warn("pipeline: skip trace cache write failed", zap.Error(cacheErr))
		}
	}
	return contact, false, nil
}

func skipTraceSkipReason(eligibility model.EligibilityDecision, outcome model.MatchOutcome) string {
	switch {
	case !outcome.Matched():
		return "no match"
	case !eligibility.Eligible:
		return "not eligible"
	default:
		return "client not configured"
	}
}

// failRun records a failed run and routes the filing: transient failures
// (registry outage, throttling, network blips) park it in the DLQ for a
// later drain, permanent ones mark it failed.
func (p *Pipeline) failRun(ctx context.Context, run *model.Run, filing model.Filing, stage string, err error) (*model.Run, error) {
	log := zap.L().With(
		zap.String("document", filing.DocumentNumber),
		zap.String("run_id", run.ID),
	)

	run.Result.Error = err.Error()
	filingStatus := model.FilingStatusFailed
	if registry.IsUnavailable(err) || resilience.IsTransient(err) {
		entry := resilience.DLQEntry{
			ID:          resilience.EntryID(filing),
			Filing:      filing,
			Error:       err.Error(),
			ErrorType:   resilience.ErrorTypeTransient,
			FailedStage: stage,
			MaxRetries:  dlqMaxRetries,
			NextRetryAt: time.Now().Add(dlqRetryDelay),
		}
		if dlqErr := p.store.EnqueueDLQ(ctx, entry); dlqErr != nil {
			log.Warn("pipeline: failed to park filing", zap.Error(dlqErr))
		} else {
			filingStatus = model.FilingStatusParked
			log.Info("pipeline: filing parked for retry", zap.String("stage", stage))
		}
	}

	if statusErr := p.store.UpdateFilingStatus(ctx, filing.County, filing.DocumentNumber, filingStatus, run.ID); statusErr != nil {
		log.Warn("pipeline: failed to update filing status", zap.Error(statusErr))
	}
	run.Status = model.RunStatusFailed
	if statusErr := p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); statusErr != nil {
		log.Warn("pipeline: failed to update status", zap.Error(statusErr))
	}
	if saveErr := p.store.UpdateRunResult(ctx, run.ID, run.Result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}
	return run, err
}

// cancelRun marks the run canceled. The filing keeps its pending status so
// the next batch picks it up again. Bookkeeping runs on a detached context;
// the cancellation that stopped the run must not also lose the record of it.
func (p *Pipeline) cancelRun(ctx context.Context, run *model.Run, log *zap.Logger) (*model.Run, error) {
	dctx := context.WithoutCancel(ctx)
	run.Status = model.RunStatusCanceled
	// Result first: saving it rewrites the status column, so the canceled
	// status has to land after it.
	if saveErr := p.store.UpdateRunResult(dctx, run.ID, run.Result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}
	if statusErr := p.store.UpdateRunStatus(dctx, run.ID, model.RunStatusCanceled); statusErr != nil {
		log.Warn("pipeline: failed to update status", zap.Error(statusErr))
	}
	log.Info("pipeline: run canceled")
	return run, ctx.Err()
}
