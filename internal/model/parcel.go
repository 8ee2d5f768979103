package model

import "time"

// CandidateParcel is a single hit returned by a parcel registry query.
// Field names are normalized at the provider edge; the DOR column names
// (OWN_NAME, PHY_ADDR1, ...) never leak past the registry package.
type CandidateParcel struct {
	ParcelNumber string `json:"parcel_number"`
	OwnerName    string `json:"owner_name"`
	AddressLine  string `json:"address_line"`
	City         string `json:"city"`
	Zip          string `json:"zip"`
	LegalText    string `json:"legal_text"`
}

// Parcel is one row of the local parcel mirror, populated by `parcels sync`
// from the county NAL extract and optionally decorated with a centroid from
// the boundary shapefile pass.
type Parcel struct {
	CountyCode   string    `json:"county_code"`
	ParcelNumber string    `json:"parcel_number"`
	OwnerName    string    `json:"owner_name"`
	AddressLine  string    `json:"address_line"`
	City         string    `json:"city"`
	Zip          string    `json:"zip"`
	LegalText    string    `json:"legal_text"`
	RollYear     int       `json:"roll_year"`
	Lon          *float64  `json:"lon,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}

// Candidate converts a mirror row to the registry result shape.
func (p Parcel) Candidate() CandidateParcel {
	return CandidateParcel{
		ParcelNumber: p.ParcelNumber,
		OwnerName:    p.OwnerName,
		AddressLine:  p.AddressLine,
		City:         p.City,
		Zip:          p.Zip,
		LegalText:    p.LegalText,
	}
}
