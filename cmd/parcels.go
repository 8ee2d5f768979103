package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/parcelsync"
)

var parcelsCmd = &cobra.Command{
	Use:   "parcels",
	Short: "Manage the local parcel mirror",
	Long:  "Commands for mirroring county tax roll data into the database used by the local registry provider.",
}

var parcelsSyncCounty string

var parcelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync county rolls into the parcel mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		codes, err := syncTargets(cfg.Counties, parcelsSyncCounty)
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return eris.Wrap(err, "dial parcel mirror")
		}
		defer pool.Close()

		if err := parcelsync.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate parcel mirror")
		}

		syncer := parcelsync.NewSyncer(pool, cfg.Sync)
		for _, code := range codes {
			result, err := syncer.Sync(ctx, code)
			if err != nil {
				return eris.Wrapf(err, "sync county %s", code)
			}
			zap.L().Info("county synced",
				zap.String("county_code", result.CountyCode),
				zap.Int("roll_year", result.RollYear),
				zap.String("archive", result.Archive),
				zap.Int64("loaded", result.Loaded),
				zap.Int("skipped", result.Skipped),
				zap.Int64("shapes_matched", result.ShapesMatched),
				zap.Duration("duration", result.Duration),
			)
		}
		return nil
	},
}

var parcelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show parcel mirror coverage per county",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return eris.Wrap(err, "dial parcel mirror")
		}
		defer pool.Close()

		statuses, err := parcelsync.Status(ctx, pool)
		if err != nil {
			return eris.Wrap(err, "parcel status")
		}

		if len(statuses) == 0 {
			fmt.Fprintln(os.Stderr, "No counties synced.")
			return nil
		}

		formatParcelStatus(os.Stdout, statuses)
		return nil
	},
}

func init() {
	parcelsSyncCmd.Flags().StringVar(&parcelsSyncCounty, "county", "", "sync a single county (default all configured)")

	parcelsCmd.AddCommand(parcelsSyncCmd)
	parcelsCmd.AddCommand(parcelsStatusCmd)
	rootCmd.AddCommand(parcelsCmd)
}

// syncTargets resolves the --county flag to DOR county codes. An empty flag
// selects every configured county in key order.
func syncTargets(counties map[string]string, county string) ([]string, error) {
	if county != "" {
		code, ok := counties[strings.ToLower(county)]
		if !ok {
			return nil, eris.Errorf("unknown county: %s", county)
		}
		return []string{code}, nil
	}

	keys := make([]string, 0, len(counties))
	for k := range counties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	codes := make([]string, 0, len(keys))
	for _, k := range keys {
		codes = append(codes, counties[k])
	}
	return codes, nil
}

// formatParcelStatus writes the per-county mirror coverage table to w.
func formatParcelStatus(out io.Writer, statuses []parcelsync.CountyStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTY\tPARCELS\tWITH_GEO\tROLL_YEAR\tSYNCED")
	for _, cs := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			cs.CountyCode,
			cs.Parcels,
			cs.WithGeo,
			cs.RollYear,
			cs.SyncedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
