package parcelsync

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// shapeIDFields are the attribute names counties use for the parcel number,
// tried in order when no override is configured.
var shapeIDFields = []string{"parcelno", "parcel_id", "parcelid", "pin"}

// ParcelShape carries one parcel's geometry out of the county GIS
// shapefile. Boundary is EWKB with SRID 4326, ready for a geometry column;
// Lon and Lat are the bounding-box center.
type ParcelShape struct {
	ParcelNumber string
	Lon          float64
	Lat          float64
	Boundary     []byte
}

// ReadParcelShapes reads a county parcel shapefile and returns one entry per
// polygon record. idField overrides the parcel-number attribute; empty tries
// the common candidates. Records without a parcel number or with malformed
// geometry are skipped.
func ReadParcelShapes(shpPath, idField string) ([]ParcelShape, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "parcelsync: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx := -1
	if idField != "" {
		i, ok := fieldIdx[strings.ToLower(idField)]
		if !ok {
			return nil, eris.Errorf("parcelsync: shapefile has no %q attribute", idField)
		}
		idIdx = i
	} else {
		for _, cand := range shapeIDFields {
			if i, ok := fieldIdx[cand]; ok {
				idIdx = i
				break
			}
		}
		if idIdx < 0 {
			return nil, eris.Errorf("parcelsync: no parcel number attribute among %s", strings.Join(shapeIDFields, ", "))
		}
	}

	var shapes []ParcelShape
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		boundary, encErr := ewkb.Marshal(g, ewkb.NDR)
		if encErr != nil {
			skipped++
			continue
		}

		box := shape.BBox()
		shapes = append(shapes, ParcelShape{
			ParcelNumber: id,
			Lon:          (box.MinX + box.MaxX) / 2,
			Lat:          (box.MinY + box.MaxY) / 2,
			Boundary:     boundary,
		})
	}

	if skipped > 0 {
		zap.L().Debug("parcelsync: skipped shapefile records", zap.Int("skipped", skipped))
	}

	return shapes, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each part becomes a single-ring polygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("parcelsync: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		if err := mp.Push(poly); err != nil {
			zap.L().Debug("parcelsync: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
