package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// ReviewItem describes a filing routed to the manual-review queue, along
// with the diagnostics a reviewer needs to work it.
type ReviewItem struct {
	DocumentNumber string
	County         string
	PrimaryName    string
	Grantees       []string
	Outcome        string // NotFound, NoLegalMatch, Ineligible
	Reasons        []string
	ParcelNumber   string // best candidate parcel, when one exists
	Score          float64
	RecordedDate   time.Time
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}

// reviewProperties builds the page properties for a review item. Empty
// optional fields are left off the page rather than written blank.
func reviewProperties(item ReviewItem) notionapi.Properties {
	title := item.PrimaryName
	if title == "" {
		title = item.DocumentNumber
	}

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}},
			},
		},
		"Document Number": richText(item.DocumentNumber),
		"Outcome": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: item.Outcome},
		},
	}

	if item.County != "" {
		props["County"] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: item.County},
		}
	}
	if len(item.Grantees) > 0 {
		props["Grantees"] = richText(strings.Join(item.Grantees, "\n"))
	}
	if len(item.Reasons) > 0 {
		props["Reasons"] = richText(strings.Join(item.Reasons, "; "))
	}
	if item.ParcelNumber != "" {
		props["Parcel"] = richText(item.ParcelNumber)
	}
	if item.Score > 0 {
		props["Score"] = notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: item.Score,
		}
	}
	if !item.RecordedDate.IsZero() {
		d := notionapi.Date(item.RecordedDate)
		props["Recorded"] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	return props
}

// FindReviewPage returns the review page whose Document Number property
// matches, or nil if the filing has never been queued.
func FindReviewPage(ctx context.Context, c Client, dbID, docNumber string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Document Number",
			RichText: &notionapi.TextFilterCondition{Equals: docNumber},
		},
		PageSize: 1,
	}

	resp, err := c.QueryDatabase(ctx, dbID, req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: find review page for %s", docNumber))
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// UpsertReviewPage creates a review page for the filing, or refreshes the
// diagnostics on the existing one. It reports the page ID and whether a new
// page was created. The triage Status is only set on create, so a page a
// reviewer has already moved stays where they put it.
func UpsertReviewPage(ctx context.Context, c Client, dbID string, item ReviewItem) (string, bool, error) {
	existing, err := FindReviewPage(ctx, c, dbID, item.DocumentNumber)
	if err != nil {
		return "", false, err
	}

	props := reviewProperties(item)

	if existing == nil {
		props["Status"] = notionapi.StatusProperty{
			Status: notionapi.Status{Name: "Needs Review"},
		}
		page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		})
		if err != nil {
			return "", false, eris.Wrap(err, "notion: create review page")
		}
		return page.ID.String(), true, nil
	}

	page, err := c.UpdatePage(ctx, existing.ID.String(), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return "", false, eris.Wrap(err, fmt.Sprintf("notion: update review page %s", existing.ID))
	}
	return page.ID.String(), false, nil
}
