package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/fetcher"
	"github.com/sells-group/lispendens-cli/internal/model"
)

var (
	importCounty    string
	importSheet     string
	importDelimiter string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a clerk export into the filing queue",
	Long:  "Reads a clerk office export (XLSX or CSV) and queues new Lis Pendens filings. Filings already in the queue keep their status.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		header, rows, err := readClerkExport(ctx, args[0])
		if err != nil {
			return err
		}

		cols, err := mapClerkHeader(header)
		if err != nil {
			return err
		}

		county := strings.ToLower(importCounty)
		var queued, skipped, malformed int
		for _, row := range rows {
			filing, ok := filingFromRow(row, cols, county)
			if !ok {
				malformed++
				continue
			}
			created, err := st.UpsertFiling(ctx, filing)
			if err != nil {
				return eris.Wrapf(err, "queue filing %s", filing.DocumentNumber)
			}
			if created {
				queued++
			} else {
				skipped++
			}
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.String("county", county),
			zap.Int("queued", queued),
			zap.Int("already_queued", skipped),
			zap.Int("malformed", malformed),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCounty, "county", "", "county key for the imported filings (required)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "CSV field delimiter (default comma)")
	_ = importCmd.MarkFlagRequired("county")
	rootCmd.AddCommand(importCmd)
}

// Clerk export column aliases. Flagler's Landmark export and Volusia's
// official records export name the same fields differently; the first alias
// present in the header wins.
var (
	docAliases       = []string{"DOCUMENT NUMBER", "INSTRUMENT NUMBER", "DOCUMENT #", "INSTRUMENT #", "CFN"}
	granteeAliases   = []string{"INDIRECT NAME", "GRANTEE", "DEFENDANT", "PARTY 2"}
	legalAliases     = []string{"LEGAL DESCRIPTION", "LEGAL", "DESCRIPTION"}
	plaintiffAliases = []string{"DIRECT NAME", "GRANTOR", "PLAINTIFF", "PARTY 1"}
	caseAliases      = []string{"CASE NUMBER", "CASE #"}
	recordedAliases  = []string{"RECORD DATE", "RECORDED DATE", "RECORDING DATE"}
)

type clerkColumns struct {
	document  int
	grantee   int
	legal     int // -1 when absent
	plaintiff int // -1 when absent
	caseNum   int // -1 when absent
	recorded  int // -1 when absent
}

func mapClerkHeader(header []string) (clerkColumns, error) {
	cols := clerkColumns{
		document:  findColumn(header, docAliases),
		grantee:   findColumn(header, granteeAliases),
		legal:     findColumn(header, legalAliases),
		plaintiff: findColumn(header, plaintiffAliases),
		caseNum:   findColumn(header, caseAliases),
		recorded:  findColumn(header, recordedAliases),
	}
	if cols.document < 0 || cols.grantee < 0 {
		return clerkColumns{}, eris.New("clerk export header is missing the document number or grantee column")
	}
	return cols, nil
}

// findColumn returns the position of the first alias present in the header,
// or -1 when none is.
func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		if idx, err := fetcher.HeaderIndex(header, alias); err == nil {
			return idx[alias]
		}
	}
	return -1
}

// filingFromRow maps one export row to a filing. Returns false for rows that
// cannot be queued: missing document number or grantee block.
func filingFromRow(row []string, cols clerkColumns, county string) (model.Filing, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	f := model.Filing{
		DocumentNumber:   get(cols.document),
		County:           county,
		GranteeBlock:     get(cols.grantee),
		LegalDescription: get(cols.legal),
		Plaintiff:        get(cols.plaintiff),
		CaseNumber:       get(cols.caseNum),
		RecordedDate:     parseClerkDate(get(cols.recorded)),
	}
	if f.DocumentNumber == "" || f.GranteeBlock == "" {
		return model.Filing{}, false
	}
	return f, true
}

// parseClerkDate tries the date layouts seen in clerk exports. Unparseable
// values leave the recorded date unset rather than failing the row.
func parseClerkDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"1/2/2006", "01/02/2006", "2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func readClerkExport(ctx context.Context, path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: importSheet})
		if err != nil {
			return nil, nil, eris.Wrap(err, "read clerk export")
		}
		return header, rows, nil
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open clerk export")
		}
		defer f.Close() //nolint:errcheck

		var delim rune
		if importDelimiter != "" {
			delim = rune(importDelimiter[0])
		}

		headerCh := make(chan []string, 1)
		rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
			Delimiter:  delim,
			HasHeader:  true,
			HeaderCh:   headerCh,
			LazyQuotes: true,
			TrimSpace:  true,
		})

		var rows [][]string
		for row := range rowCh {
			rows = append(rows, row)
		}
		if err := <-errCh; err != nil {
			return nil, nil, eris.Wrap(err, "read clerk export")
		}

		var header []string
		select {
		case header = <-headerCh:
		default:
		}
		if header == nil {
			return nil, nil, eris.New("clerk export is empty")
		}
		return header, rows, nil
	default:
		return nil, nil, eris.Errorf("unsupported clerk export format: %s", filepath.Ext(path))
	}
}
