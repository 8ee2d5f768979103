package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lispendens-cli/internal/pipeline"
	"github.com/sells-group/lispendens-cli/internal/store"
)

// pipelineEnv holds the initialized store, registry provider, and delivery
// clients needed by the batch, serve, and retry commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline

	closeSearcher func()
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.closeSearcher != nil {
		pe.closeSearcher()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for the given mode, sets up the store and
// all clients, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	searcher, closeSearcher, err := initSearcher(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	resolver, err := newResolver(searcher)
	if err != nil {
		closeSearcher()
		_ = st.Close()
		return nil, err
	}

	sfClient, err := initSalesforce()
	if err != nil {
		closeSearcher()
		_ = st.Close()
		return nil, err
	}

	p := pipeline.New(cfg, st, resolver, sfClient, initNotion(), initSkiptrace())

	return &pipelineEnv{
		Store:         st,
		Pipeline:      p,
		closeSearcher: closeSearcher,
	}, nil
}
