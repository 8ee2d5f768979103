package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/resolve"
	"github.com/sells-group/lispendens-cli/pkg/notion"
	"github.com/sells-group/lispendens-cli/pkg/salesforce"
)

// deliver routes the filing to its sinks: eligible matches become Salesforce
// leads, everything a human needs to look at lands in the Notion review
// queue. Sinks run concurrently and fail independently; a failed sink is
// recorded in the stage metadata and surfaces as the stage error without
// stopping the other sink.
func (p *Pipeline) deliver(
	ctx context.Context,
	party resolve.NormalizedParty,
	filing model.Filing,
	resolution model.ResolutionResult,
	eligibility model.EligibilityDecision,
	contact *model.Contact,
	result *model.RunResult,
) (*model.StageResult, error) {
	toSalesforce := eligibility.Eligible && resolution.Outcome.Matched()
	toNotion := needsReview(resolution.Outcome, eligibility)

	md := make(map[string]any)
	if !toSalesforce && !toNotion {
		md["reason"] = "ineligible without warnings"
		return &model.StageResult{Status: model.StageStatusSkipped, Metadata: md}, nil
	}

	log := zap.L().With(zap.String("document", filing.DocumentNumber))

	// Sinks are independent: each goroutine records its own error and
	// returns nil so one failing never cancels the other.
	var mu sync.Mutex
	var sfErr, notionErr error
	var g errgroup.Group

	if toSalesforce {
		if p.salesforce == nil {
			md["salesforce"] = "disabled"
		} else {
			g.Go(func() error {
				lead := buildLead(party, filing, resolution, eligibility, contact)
				id, created, err := salesforce.UpsertByDocumentNumber(ctx, p.salesforce, filing.DocumentNumber, sfLeadFields(lead))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					sfErr = err
					md["salesforce_error"] = err.Error()
					log.Error("pipeline: salesforce delivery failed", zap.Error(err))
					return nil
				}
				md["salesforce_id"] = id
				md["salesforce_created"] = created
				result.Delivered = append(result.Delivered, "salesforce")
				return nil
			})
		}
	}

	if toNotion {
		if p.notion == nil {
			md["notion"] = "disabled"
		} else {
			g.Go(func() error {
				item := reviewItem(party, filing, resolution, eligibility)
				pageID, created, err := notion.UpsertReviewPage(ctx, p.notion, p.cfg.Notion.ReviewDBID, item)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					notionErr = err
					md["notion_error"] = err.Error()
					log.Error("pipeline: notion delivery failed", zap.Error(err))
					return nil
				}
				md["notion_page"] = pageID
				md["notion_created"] = created
				result.Delivered = append(result.Delivered, "notion")
				return nil
			})
		}
	}

	_ = g.Wait()

	if sfErr != nil {
		return &model.StageResult{Metadata: md}, sfErr
	}
	if notionErr != nil {
		return &model.StageResult{Metadata: md}, notionErr
	}
	return &model.StageResult{Metadata: md}, nil
}

// needsReview decides whether a filing lands in the manual review queue.
// Unresolved and ambiguous outcomes always do; ineligible filings only when
// the eligibility check raised warnings worth a second look. Clean entity
// and timeshare skips stay in the run log without a queue entry.
func needsReview(outcome model.MatchOutcome, eligibility model.EligibilityDecision) bool {
	switch outcome.Kind {
	case model.OutcomeNotFound, model.OutcomeNoLegalMatch:
		return true
	}
	return !eligibility.Eligible && len(eligibility.Warnings) > 0
}

// buildLead assembles the delivery-ready record for a matched, eligible
// filing.
func buildLead(
	party resolve.NormalizedParty,
	filing model.Filing,
	resolution model.ResolutionResult,
	eligibility model.EligibilityDecision,
	contact *model.Contact,
) model.Lead {
	return model.Lead{
		Filing:       filing,
		OwnerName:    party.PrimaryName,
		ParcelNumber: resolution.Outcome.ParcelNumber,
		AddressLine:  resolution.Outcome.AddressLine,
		City:         resolution.Outcome.City,
		Zip:          resolution.Outcome.Zip,
		Method:       resolution.Outcome.Method,
		Score:        resolution.Outcome.Score,
		Warnings:     eligibility.Warnings,
		Contact:      contact,
	}
}

// sfLeadFields maps a lead onto Salesforce Lead fields. State is always FL;
// the tool only processes Florida counties.
func sfLeadFields(lead model.Lead) map[string]any {
	fields := map[string]any{
		"LastName":           lead.OwnerName,
		"Company":            lead.OwnerName,
		"Street":             lead.AddressLine,
		"City":               lead.City,
		"State":              "FL",
		"PostalCode":         lead.Zip,
		"LeadSource":         "Lis Pendens",
		"Description":        leadDescription(lead),
		"Document_Number__c": lead.Filing.DocumentNumber,
		"County__c":          lead.Filing.County,
		"Parcel_Number__c":   lead.ParcelNumber,
	}
	if lead.Contact != nil {
		if len(lead.Contact.Phones) > 0 {
			fields["Phone"] = lead.Contact.Phones[0]
		}
		if len(lead.Contact.Emails) > 0 {
			fields["Email"] = lead.Contact.Emails[0]
		}
	}
	return fields
}

// leadDescription summarizes the filing and the match for the CRM notes
// field.
func leadDescription(lead model.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lis Pendens %s, %s county.", lead.Filing.DocumentNumber, lead.Filing.County)
	if lead.Filing.CaseNumber != "" {
		fmt.Fprintf(&b, " Case %s.", lead.Filing.CaseNumber)
	}
	if lead.Filing.Plaintiff != "" {
		fmt.Fprintf(&b, " Plaintiff %s.", lead.Filing.Plaintiff)
	}
	if !lead.Filing.RecordedDate.IsZero() {
		fmt.Fprintf(&b, " Recorded %s.", lead.Filing.RecordedDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, " Match: %s", lead.Method)
	if lead.Score != nil {
		fmt.Fprintf(&b, " (score %d)", *lead.Score)
	}
	b.WriteString(".")
	if len(lead.Warnings) > 0 {
		fmt.Fprintf(&b, " Warnings: %s.", strings.Join(lead.Warnings, "; "))
	}
	return b.String()
}

// reviewItem assembles the Notion review-queue payload with the diagnostics
// a reviewer needs to work the filing by hand.
func reviewItem(
	party resolve.NormalizedParty,
	filing model.Filing,
	resolution model.ResolutionResult,
	eligibility model.EligibilityDecision,
) notion.ReviewItem {
	item := notion.ReviewItem{
		DocumentNumber: filing.DocumentNumber,
		County:         filing.County,
		PrimaryName:    party.PrimaryName,
		Grantees:       party.AllNames,
		Outcome:        reviewOutcome(resolution.Outcome.Kind),
		Reasons:        reviewReasons(resolution, eligibility),
		RecordedDate:   filing.RecordedDate,
	}
	if resolution.Outcome.Matched() {
		item.ParcelNumber = resolution.Outcome.ParcelNumber
		if resolution.Outcome.Score != nil {
			item.Score = float64(*resolution.Outcome.Score)
		}
	}
	return item
}

func reviewOutcome(kind model.OutcomeKind) string {
	switch kind {
	case model.OutcomeNotFound:
		return "NotFound"
	case model.OutcomeNoLegalMatch:
		return "NoLegalMatch"
	default:
		return "Ineligible"
	}
}

func reviewReasons(resolution model.ResolutionResult, eligibility model.EligibilityDecision) []string {
	var reasons []string
	if eligibility.Reason != "" {
		r := eligibility.Reason
		if eligibility.Detail != "" {
			r += ": " + eligibility.Detail
		}
		reasons = append(reasons, r)
	}
	if resolution.Outcome.Kind == model.OutcomeNoLegalMatch {
		reasons = append(reasons, fmt.Sprintf("%d candidates below keyword threshold", resolution.Outcome.CandidateCount))
	}
	return append(reasons, eligibility.Warnings...)
}
