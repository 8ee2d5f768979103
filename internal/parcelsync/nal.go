// Package parcelsync populates the local parcel mirror from county roll
// data: the DOR NAL extract for owner and situs attributes, plus an
// optional boundary shapefile pass for centroids.
package parcelsync

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lispendens-cli/internal/fetcher"
	"github.com/sells-group/lispendens-cli/internal/model"
)

// NAL extract column names. The DOR layout is positional per roll year, so
// rows are mapped through the header rather than by index.
const (
	colParcelID = "PARCEL_ID"
	colOwnName  = "OWN_NAME"
	colPhyAddr  = "PHY_ADDR1"
	colPhyCity  = "PHY_CITY"
	colPhyZip   = "PHY_ZIPCD"
	colLegal    = "S_LEGAL"
)

type nalColumns struct {
	parcelID int
	ownName  int
	addr     int
	city     int
	zip      int
	legal    int
}

func mapNALHeader(header []string) (nalColumns, error) {
	idx, err := fetcher.HeaderIndex(header, colParcelID, colOwnName, colPhyAddr, colPhyCity, colPhyZip, colLegal)
	if err != nil {
		return nalColumns{}, eris.Wrap(err, "parcelsync: NAL header")
	}
	return nalColumns{
		parcelID: idx[colParcelID],
		ownName:  idx[colOwnName],
		addr:     idx[colPhyAddr],
		city:     idx[colPhyCity],
		zip:      idx[colPhyZip],
		legal:    idx[colLegal],
	}, nil
}

// parcelFromRow maps one NAL row to a mirror parcel. Returns false for rows
// that cannot participate in matching: missing parcel number or owner name.
func parcelFromRow(row []string, cols nalColumns, countyCode string, rollYear int, syncedAt time.Time) (model.Parcel, bool) {
	get := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	p := model.Parcel{
		CountyCode:   countyCode,
		ParcelNumber: get(cols.parcelID),
		OwnerName:    get(cols.ownName),
		AddressLine:  get(cols.addr),
		City:         get(cols.city),
		Zip:          normalizeZip(get(cols.zip)),
		LegalText:    get(cols.legal),
		RollYear:     rollYear,
		SyncedAt:     syncedAt,
	}
	if p.ParcelNumber == "" || p.OwnerName == "" {
		return model.Parcel{}, false
	}
	return p, true
}

// normalizeZip reduces the NAL nine-digit PHY_ZIPCD to the five-digit form
// the portal returns, so situs strings compare cleanly across providers.
func normalizeZip(zip string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, zip)
	if len(digits) > 5 {
		return digits[:5]
	}
	return digits
}

// FindRollArchive picks the county's NAL archive out of an FTP directory
// listing. DOR names follow NAL<county>F<year><submission>.zip; when a
// county resubmits, the highest submission number wins.
func FindRollArchive(names []string, countyCode string, year int) (string, error) {
	prefix := strings.ToUpper(fmt.Sprintf("NAL%sF%d", countyCode, year))

	var matches []string
	for _, name := range names {
		upper := strings.ToUpper(name)
		if strings.HasPrefix(upper, prefix) && strings.HasSuffix(upper, ".ZIP") {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return "", eris.Errorf("parcelsync: no NAL archive for county %s year %d", countyCode, year)
	}

	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
