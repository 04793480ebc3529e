// Package catalog binds the external product-catalog service that turns
// engineering product ids and purpose roles into billable product tags.
package catalog

import (
	"context"
	"errors"
)

// ErrCatalogUnavailable wraps transport failures against the catalog
// service. Normalization cannot proceed without product resolution, so
// callers treat this as fatal for the current event.
var ErrCatalogUnavailable = errors.New("catalog_unavailable")

// ResolveRequest names the inputs of one tag resolution call.
type ResolveRequest struct {
	EngineeringIDs     []string
	Role               string
	MetricIDs          []string
	Is3rdPartyMigrated bool
}

// ProductCatalog is the external collaborator contract. Implementations
// must be safe for concurrent use.
type ProductCatalog interface {
	// ResolveTags returns the product tags applicable to the given
	// engineering ids and/or role for the applicable metrics.
	ResolveTags(ctx context.Context, req ResolveRequest) ([]string, error)

	// PruneIncludedTags removes tags the catalog defines as subsumed by a
	// broader tag already present in the set.
	PruneIncludedTags(ctx context.Context, tags []string) ([]string, error)
}
