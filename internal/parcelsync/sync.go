package parcelsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/db"
	"github.com/sells-group/lispendens-cli/internal/fetcher"
	"github.com/sells-group/lispendens-cli/internal/model"
)

// Config holds `parcels sync` settings.
type Config struct {
	FTPHost      string            `mapstructure:"ftp_host"`
	FTPPath      string            `mapstructure:"ftp_path"`
	Charset      string            `mapstructure:"charset"`
	TempDir      string            `mapstructure:"temp_dir"`
	RollYear     int               `mapstructure:"roll_year"`  // 0 means current year
	BatchSize    int               `mapstructure:"batch_size"` // 0 means 5000
	ShapeURLs    map[string]string `mapstructure:"shape_urls"` // county code -> boundary archive URL
	ShapeIDField string            `mapstructure:"shape_id_field"`
}

// rollSource lists and downloads roll archives. *fetcher.FTPFetcher
// satisfies it.
type rollSource interface {
	List(ctx context.Context, dirURL string) ([]string, error)
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Result summarizes one county's sync.
type Result struct {
	CountyCode    string        `json:"county_code"`
	RollYear      int           `json:"roll_year"`
	Archive       string        `json:"archive"`
	Loaded        int64         `json:"loaded"`
	Skipped       int           `json:"skipped"`
	ShapesMatched int64         `json:"shapes_matched,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Syncer mirrors county NAL rolls into dor.parcels.
type Syncer struct {
	pool db.Pool
	src  rollSource
	cfg  Config
	now  func() time.Time
}

// NewSyncer creates a Syncer that pulls archives from the DOR FTP site.
func NewSyncer(pool db.Pool, cfg Config) *Syncer {
	return &Syncer{
		pool: pool,
		src:  fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Sync downloads one county's NAL extract, loads it into the mirror, and
// runs the boundary pass when a shapefile source is configured for the
// county.
func (s *Syncer) Sync(ctx context.Context, countyCode string) (*Result, error) {
	start := s.now()
	log := zap.L().With(zap.String("county", countyCode))

	cfg := s.cfg
	if cfg.RollYear == 0 {
		cfg.RollYear = start.Year()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5000
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		var err error
		tempDir, err = os.MkdirTemp("", "parcelsync")
		if err != nil {
			return nil, eris.Wrap(err, "parcelsync: create temp dir")
		}
		defer os.RemoveAll(tempDir) //nolint:errcheck
	} else if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "parcelsync: create temp dir %s", tempDir)
	}

	if err := Migrate(ctx, s.pool); err != nil {
		return nil, err
	}

	dirURL := "ftp://" + cfg.FTPHost + cfg.FTPPath
	names, err := s.src.List(ctx, dirURL)
	if err != nil {
		return nil, eris.Wrap(err, "parcelsync: list roll directory")
	}

	archive, err := FindRollArchive(names, countyCode, cfg.RollYear)
	if err != nil {
		return nil, err
	}
	log.Info("parcelsync: downloading roll archive",
		zap.String("archive", archive), zap.Int("roll_year", cfg.RollYear))

	zipPath := filepath.Join(tempDir, archive)
	if _, err := s.src.DownloadToFile(ctx, dirURL+"/"+archive, zipPath); err != nil {
		return nil, eris.Wrap(err, "parcelsync: download roll archive")
	}

	csvPath, err := fetcher.ExtractZIPSingle(zipPath, tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "parcelsync: extract roll archive")
	}

	loaded, skipped, err := s.loadRoll(ctx, csvPath, countyCode, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		CountyCode: countyCode,
		RollYear:   cfg.RollYear,
		Archive:    archive,
		Loaded:     loaded,
		Skipped:    skipped,
	}

	if shapeURL := cfg.ShapeURLs[countyCode]; shapeURL != "" {
		matched, err := s.shapePass(ctx, countyCode, shapeURL, cfg.ShapeIDField, tempDir)
		if err != nil {
			return nil, err
		}
		res.ShapesMatched = matched
	}

	res.Duration = s.now().Sub(start)
	log.Info("parcelsync: county sync complete",
		zap.Int64("loaded", res.Loaded),
		zap.Int("skipped", res.Skipped),
		zap.Int64("shapes_matched", res.ShapesMatched),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// loadRoll streams the extracted NAL CSV into dor.parcels in batches.
func (s *Syncer) loadRoll(ctx context.Context, csvPath, countyCode string, cfg Config) (int64, int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, 0, eris.Wrap(err, "parcelsync: open roll extract")
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		Charset:    cfg.Charset,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	syncedAt := s.now().UTC()
	seen := make(map[string]struct{})
	batch := make([]model.Parcel, 0, cfg.BatchSize)

	var (
		cols     nalColumns
		haveCols bool
		loaded   int64
		skipped  int
	)

	flush := func() error {
		n, err := LoadParcels(ctx, s.pool, batch)
		if err != nil {
			return err
		}
		loaded += n
		batch = batch[:0]
		return nil
	}

	for row := range rowCh {
		if !haveCols {
			// The header lands in headerCh before the first row arrives.
			cols, err = mapNALHeader(<-headerCh)
			if err != nil {
				return 0, 0, err
			}
			haveCols = true
		}

		p, ok := parcelFromRow(row, cols, countyCode, cfg.RollYear, syncedAt)
		if !ok {
			skipped++
			continue
		}
		// One upsert statement cannot touch the same parcel twice; the
		// first roll row for a parcel wins.
		if _, dup := seen[p.ParcelNumber]; dup {
			skipped++
			continue
		}
		seen[p.ParcelNumber] = struct{}{}

		batch = append(batch, p)
		if len(batch) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return 0, 0, err
			}
		}
	}

	if err := <-errCh; err != nil {
		return 0, 0, eris.Wrap(err, "parcelsync: stream roll extract")
	}
	if err := flush(); err != nil {
		return 0, 0, err
	}
	if loaded == 0 {
		return 0, 0, eris.Errorf("parcelsync: no parcel rows for county %s", countyCode)
	}
	return loaded, skipped, nil
}

// shapePass downloads the county boundary shapefile and attaches centroids
// and geometry to matching mirror rows.
func (s *Syncer) shapePass(ctx context.Context, countyCode, shapeURL, idField, tempDir string) (int64, error) {
	log := zap.L().With(zap.String("county", countyCode))

	if err := EnableGeometry(ctx, s.pool); err != nil {
		return 0, err
	}

	f, err := fetcher.ForURL(shapeURL)
	if err != nil {
		return 0, err
	}

	shapeDir := filepath.Join(tempDir, "shapes")
	if err := os.MkdirAll(shapeDir, 0o755); err != nil {
		return 0, eris.Wrap(err, "parcelsync: create shape dir")
	}

	zipPath := filepath.Join(shapeDir, "boundaries.zip")
	if _, err := f.DownloadToFile(ctx, shapeURL, zipPath); err != nil {
		return 0, eris.Wrap(err, "parcelsync: download boundary archive")
	}

	if _, err := fetcher.ExtractZIP(zipPath, shapeDir); err != nil {
		return 0, eris.Wrap(err, "parcelsync: extract boundary archive")
	}

	shpPath, err := findFileByExt(shapeDir, ".shp")
	if err != nil {
		return 0, err
	}

	shapes, err := ReadParcelShapes(shpPath, idField)
	if err != nil {
		return 0, err
	}
	log.Info("parcelsync: boundary shapefile read",
		zap.String("path", filepath.Base(shpPath)), zap.Int("shapes", len(shapes)))

	return ApplyShapes(ctx, s.pool, countyCode, shapes)
}

// findFileByExt returns the first file in dir with the given extension.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "parcelsync: read shape dir")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("parcelsync: no %s file in %s", ext, dir)
}
