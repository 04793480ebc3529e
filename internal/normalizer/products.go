package normalizer

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/catalog"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
)

const (
	tagRHEL          = "RHEL"
	tagRHELUngrouped = "RHEL Ungrouped"
	rhelTagPrefix    = "RHEL "
	rhelForPrefix    = "RHEL for "
)

var archRHELTags = map[string]string{
	"x86_64":  "RHEL for x86",
	"i686":    "RHEL for x86",
	"i386":    "RHEL for x86",
	"aarch64": "RHEL for ARM",
	"ppc64le": "RHEL for IBM Power",
}

// ProductResolver unions billable product tags from every fact source that
// carries product signals.
type ProductResolver struct {
	catalog catalog.ProductCatalog
	log     *zap.Logger
}

func NewProductResolver(cat catalog.ProductCatalog, log *zap.Logger) *ProductResolver {
	return &ProductResolver{
		catalog: cat,
		log:     log.Named("normalizer.products"),
	}
}

// ProductInput carries the fact views product resolution reads. Nil bundle
// pointers mean the namespace was absent from the payload.
type ProductInput struct {
	SystemProfile       inventory.SystemProfile
	SubscriptionManager *inventory.SubscriptionManagerFacts
	SystemManagement    *inventory.SystemManagementFacts
	PackageCompliance   *inventory.PackageComplianceFacts

	// SkipSubscriptionManager excludes stale subscription-manager facts.
	SkipSubscriptionManager bool

	MetricIDs []string
}

// ProductResolution is the unioned outcome, sorted for determinism.
type ProductResolution struct {
	Tags []string
	IDs  []string
}

// Resolve derives the full tag/id sets. Catalog failures abort resolution:
// no normalized facts can be produced without product tags.
func (r *ProductResolver) Resolve(ctx context.Context, in ProductInput) (ProductResolution, error) {
	tags := map[string]struct{}{}
	ids := map[string]struct{}{}
	migrated := in.SystemProfile.Is3rdPartyMigrated

	if len(in.SystemProfile.ProductIDs) > 0 {
		resolved, err := r.catalog.ResolveTags(ctx, catalog.ResolveRequest{
			EngineeringIDs:     in.SystemProfile.ProductIDs,
			MetricIDs:          in.MetricIDs,
			Is3rdPartyMigrated: migrated,
		})
		if err != nil {
			return ProductResolution{}, err
		}
		addAll(tags, resolved)
		addAll(ids, in.SystemProfile.ProductIDs)
	}

	if in.SystemManagement != nil && in.SystemManagement.Role != "" {
		resolved, err := r.catalog.ResolveTags(ctx, catalog.ResolveRequest{
			Role:               in.SystemManagement.Role,
			MetricIDs:          in.MetricIDs,
			Is3rdPartyMigrated: migrated,
		})
		if err != nil {
			return ProductResolution{}, err
		}
		addAll(tags, resolved)
	}

	if !in.SkipSubscriptionManager && in.SubscriptionManager != nil {
		subman := in.SubscriptionManager
		if subman.SystemPurposeRole != "" || len(subman.ProductIDs) > 0 {
			resolved, err := r.catalog.ResolveTags(ctx, catalog.ResolveRequest{
				EngineeringIDs:     subman.ProductIDs,
				Role:               subman.SystemPurposeRole,
				MetricIDs:          in.MetricIDs,
				Is3rdPartyMigrated: migrated,
			})
			if err != nil {
				return ProductResolution{}, err
			}
			addAll(tags, resolved)
			addAll(ids, subman.ProductIDs)
		}
	}

	if in.PackageCompliance != nil && contains(in.PackageCompliance.DetectedProducts, tagRHEL) {
		tags[tagRHEL] = struct{}{}
		if len(in.SystemProfile.ProductIDs) == 0 {
			if archTag, ok := archRHELTags[in.SystemProfile.Arch]; ok {
				tags[archTag] = struct{}{}
			}
		}
	}

	normalizeRHELVariants(tags)

	pruned, err := r.catalog.PruneIncludedTags(ctx, sorted(tags))
	if err != nil {
		return ProductResolution{}, err
	}

	return ProductResolution{
		Tags: pruned,
		IDs:  sorted(ids),
	}, nil
}

// normalizeRHELVariants adds the catch-all "RHEL Ungrouped" tag when the
// tag set names RHEL without exactly one variant, or several variants at
// once. Arch-specific "RHEL for ..." tags do not count as variants.
func normalizeRHELVariants(tags map[string]struct{}) {
	variants := 0
	for tag := range tags {
		if strings.HasPrefix(tag, rhelTagPrefix) && !strings.HasPrefix(tag, rhelForPrefix) && tag != tagRHELUngrouped {
			variants++
		}
	}
	_, hasRHEL := tags[tagRHEL]
	if (variants == 0 && hasRHEL) || variants >= 2 {
		tags[tagRHELUngrouped] = struct{}{}
	}
}

func addAll(set map[string]struct{}, values []string) {
	for _, value := range values {
		if value != "" {
			set[value] = struct{}{}
		}
	}
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
