package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead mirrors the Salesforce Lead fields written by the delivery pipeline.
// Custom fields carry the filing identity so reruns can find prior deliveries.
type Lead struct {
	Id             string `json:"Id,omitempty" salesforce:"Id"`
	LastName       string `json:"LastName,omitempty" salesforce:"LastName"`
	Company        string `json:"Company,omitempty" salesforce:"Company"`
	Street         string `json:"Street,omitempty" salesforce:"Street"`
	City           string `json:"City,omitempty" salesforce:"City"`
	State          string `json:"State,omitempty" salesforce:"State"`
	PostalCode     string `json:"PostalCode,omitempty" salesforce:"PostalCode"`
	Phone          string `json:"Phone,omitempty" salesforce:"Phone"`
	Email          string `json:"Email,omitempty" salesforce:"Email"`
	LeadSource     string `json:"LeadSource,omitempty" salesforce:"LeadSource"`
	Description    string `json:"Description,omitempty" salesforce:"Description"`
	DocumentNumber string `json:"Document_Number__c,omitempty" salesforce:"Document_Number__c"`
	County         string `json:"County__c,omitempty" salesforce:"County__c"`
	ParcelNumber   string `json:"Parcel_Number__c,omitempty" salesforce:"Parcel_Number__c"`
}

var leadFields = []string{
	"Id",
	"LastName",
	"Company",
	"Street",
	"City",
	"State",
	"PostalCode",
	"Phone",
	"Email",
	"LeadSource",
	"Description",
	"Document_Number__c",
	"County__c",
	"Parcel_Number__c",
}

// escapeSoql escapes single quotes in a string for safe inclusion in a SOQL query.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// FindLeadByDocumentNumber returns the Lead whose Document_Number__c matches,
// or nil if none exists.
func FindLeadByDocumentNumber(ctx context.Context, c Client, docNumber string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Document_Number__c = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(docNumber),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by document number %s", docNumber))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// CreateLead inserts a new Lead and returns its Salesforce ID.
// LastName and Company are required by the Lead object.
func CreateLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	for _, required := range []string{"LastName", "Company"} {
		if v, ok := fields[required].(string); !ok || v == "" {
			return "", eris.New(fmt.Sprintf("sf: create lead: %s is required", required))
		}
	}
	return c.InsertOne(ctx, "Lead", fields)
}

// UpdateLead applies the given fields to an existing Lead.
func UpdateLead(ctx context.Context, c Client, id string, fields map[string]any) error {
	return c.UpdateOne(ctx, "Lead", id, fields)
}

// UpsertByDocumentNumber creates a Lead for the document number, or updates the
// existing one when a prior run already delivered it. It reports the Lead ID
// and whether a new record was created.
func UpsertByDocumentNumber(ctx context.Context, c Client, docNumber string, fields map[string]any) (string, bool, error) {
	existing, err := FindLeadByDocumentNumber(ctx, c, docNumber)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		id, err := CreateLead(ctx, c, fields)
		if err != nil {
			return "", false, err
		}
		return id, true, nil
	}
	if err := UpdateLead(ctx, c, existing.Id, fields); err != nil {
		return "", false, err
	}
	return existing.Id, false, nil
}
