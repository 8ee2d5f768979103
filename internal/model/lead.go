package model

// Contact holds skip-trace results for a lead.
type Contact struct {
	Phones []string `json:"phones,omitempty"`
	Emails []string `json:"emails,omitempty"`
	Source string   `json:"source,omitempty"`
}

// Lead is a delivery-ready record: a matched, eligible filing joined with
// its parcel and any skip-trace contact data.
type Lead struct {
	Filing       Filing      `json:"filing"`
	OwnerName    string      `json:"owner_name"` // primary grantee as filed
	ParcelNumber string      `json:"parcel_number"`
	AddressLine  string      `json:"address_line"`
	City         string      `json:"city"`
	Zip          string      `json:"zip"`
	Method       MatchMethod `json:"method"`
	Score        *int        `json:"score,omitempty"`
	Warnings     []string    `json:"warnings,omitempty"`
	Contact      *Contact    `json:"contact,omitempty"`
}
