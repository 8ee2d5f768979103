package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/registry"
	"github.com/sells-group/lispendens-cli/internal/resolve"
	"github.com/sells-group/lispendens-cli/internal/store"
	"github.com/sells-group/lispendens-cli/pkg/notion"
	sfpkg "github.com/sells-group/lispendens-cli/pkg/salesforce"
	"github.com/sells-group/lispendens-cli/pkg/skiptrace"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "lispendens.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSearcher builds the parcel registry provider. The local provider reuses
// the filing store's postgres pool when there is one; otherwise it dials the
// parcel mirror itself and the returned closer releases that connection.
func initSearcher(ctx context.Context, st store.Store) (registry.Searcher, func(), error) {
	noop := func() {}

	switch cfg.Registry.Provider {
	case registry.ProviderPortal:
		return registry.NewPortal(cfg.Registry.Portal), noop, nil
	case registry.ProviderLocal:
		if ps, ok := st.(*store.PostgresStore); ok {
			zap.L().Info("local registry using shared database pool")
			return registry.NewLocal(ps.Pool()), noop, nil
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, eris.Wrap(err, "dial parcel mirror")
		}
		return registry.NewLocal(pool), pool.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported registry provider: %s", cfg.Registry.Provider)
	}
}

func newResolver(searcher registry.Searcher) (*resolve.Resolver, error) {
	stop := cfg.Matching.StopWords
	corporate := cfg.Matching.CorporateKeywords
	if cfg.Matching.RulesPath != "" {
		rules, err := resolve.LoadRules(cfg.Matching.RulesPath)
		if err != nil {
			return nil, err
		}
		stop = append(stop, rules.StopWords...)
		corporate = append(corporate, rules.CorporateKeywords...)
	}

	return resolve.New(searcher,
		registry.NewBuilder(cfg.Counties, cfg.Registry.FuzzyLimit),
		resolve.WithStopWords(stop),
		resolve.WithCorporateKeywords(corporate),
	), nil
}

// initSalesforce returns (nil, nil) when the sink is disabled; the pipeline
// records a delivery skip for a nil client.
func initSalesforce() (sfpkg.Client, error) {
	if !cfg.Salesforce.Enabled {
		return nil, nil
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.Domain,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ConsumerKey,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

func initNotion() notion.Client {
	if !cfg.Notion.Enabled {
		return nil
	}
	return notion.NewClient(cfg.Notion.APIKey)
}

func initSkiptrace() skiptrace.Client {
	if cfg.Skiptrace.BaseURL == "" {
		return nil
	}
	return skiptrace.NewClient(cfg.Skiptrace.BaseURL, cfg.Skiptrace.APIKey,
		skiptrace.WithRateLimit(cfg.Skiptrace.RateRPS))
}
