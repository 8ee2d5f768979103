// Package registry queries county parcel registries: the appraiser's web
// portal, or the local Postgres mirror populated by `parcels sync`.
package registry

import (
	"context"

	"github.com/sells-group/lispendens-cli/internal/model"
)

// Searcher is the query surface the resolver consumes. Implementations
// return the candidate set in the registry's own order; callers rely on that
// order being stable for tie-breaking.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]model.CandidateParcel, error)
}

// Providers.
const (
	ProviderPortal = "portal"
	ProviderLocal  = "local"
)
