package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/model"
)

var (
	resolveFile     string
	resolveCounty   string
	resolveGrantees []string
	resolveLegal    string
	resolveDoc      string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single filing against the parcel registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		filing, err := resolveInput()
		if err != nil {
			return err
		}

		searcher, closeSearcher, err := initSearcher(ctx, nil)
		if err != nil {
			return err
		}
		defer closeSearcher()

		resolver, err := newResolver(searcher)
		if err != nil {
			return err
		}

		result, err := resolver.Resolve(ctx, filing)
		if err != nil {
			return eris.Wrap(err, "resolve filing")
		}

		zap.L().Info("resolution complete",
			zap.String("document", filing.DocumentNumber),
			zap.String("outcome", string(result.Outcome.Kind)),
			zap.Bool("eligible", result.Eligibility.Eligible),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// resolveInput builds the filing from --file or from the individual flags.
func resolveInput() (model.Filing, error) {
	if resolveFile != "" {
		data, err := os.ReadFile(resolveFile)
		if err != nil {
			return model.Filing{}, eris.Wrap(err, "read filing file")
		}
		var f model.Filing
		if err := json.Unmarshal(data, &f); err != nil {
			return model.Filing{}, eris.Wrap(err, "parse filing file")
		}
		return f, nil
	}

	if resolveCounty == "" || len(resolveGrantees) == 0 {
		return model.Filing{}, eris.New("either --file or both --county and --grantee are required")
	}

	return model.Filing{
		DocumentNumber:   resolveDoc,
		County:           strings.ToLower(resolveCounty),
		GranteeBlock:     strings.Join(resolveGrantees, "\n"),
		LegalDescription: resolveLegal,
	}, nil
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "JSON file with the filing (overrides the other flags)")
	resolveCmd.Flags().StringVar(&resolveCounty, "county", "", "county key, e.g. flagler")
	resolveCmd.Flags().StringArrayVar(&resolveGrantees, "grantee", nil, "grantee name (repeatable, one per defendant)")
	resolveCmd.Flags().StringVar(&resolveLegal, "legal", "", "legal description text")
	resolveCmd.Flags().StringVar(&resolveDoc, "document", "", "document number for logging")
	rootCmd.AddCommand(resolveCmd)
}
