package normalizer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/clock"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
	reldomain "github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
)

// FactNormalizer folds the per-namespace fact views into one canonical
// record, applying staleness gating and source precedence.
type FactNormalizer struct {
	products *ProductResolver
	clock    clock.Clock
	cfg      config.HostsConfig
	log      *zap.Logger
}

func NewFactNormalizer(
	products *ProductResolver,
	clk clock.Clock,
	cfg config.Config,
	log *zap.Logger,
) *FactNormalizer {
	return &FactNormalizer{
		products: products,
		clock:    clk,
		cfg:      cfg.Hosts,
		log:      log.Named("normalizer.facts"),
	}
}

// Normalize derives NormalizedFacts for one host. The resolver answers
// hypervisor/guest questions against the relationship store; catalog
// failures propagate since product resolution is mandatory.
func (n *FactNormalizer) Normalize(
	ctx context.Context,
	host inventory.RawHost,
	resolver reldomain.Resolver,
) (NormalizedFacts, error) {
	profile := host.SystemProfile

	var submanPtr *inventory.SubscriptionManagerFacts
	if subman, ok := host.SubscriptionManagerFacts(); ok {
		submanPtr = &subman
	}
	var sysmgmtPtr *inventory.SystemManagementFacts
	if sysmgmt, ok := host.SystemManagementFacts(); ok {
		sysmgmtPtr = &sysmgmt
	}
	var pkgcompPtr *inventory.PackageComplianceFacts
	if pkgcomp, ok := host.PackageComplianceFacts(); ok {
		pkgcompPtr = &pkgcomp
	}

	syncTimestamp, stale := n.resolveSyncTimestamp(submanPtr)

	isVirtual := profile.InfrastructureType == infrastructureVirtual
	if submanPtr != nil && submanPtr.IsVirtual {
		isVirtual = true
	}
	hypervisorUUID := profile.HypervisorUUID
	if sysmgmtPtr != nil && sysmgmtPtr.HypervisorUUID != "" {
		hypervisorUUID = sysmgmtPtr.HypervisorUUID
		isVirtual = true
	}

	cloudProvider := ParseCloudProvider(profile.CloudProvider)
	hardwareType := HardwarePhysical
	switch {
	case cloudProvider != CloudProviderNone:
		hardwareType = HardwareCloud
	case isVirtual:
		hardwareType = HardwareVirtual
	}

	isHypervisor := false
	if host.SubscriptionManagerID != "" {
		count, err := resolver.GuestCount(ctx, host.OrgID, host.SubscriptionManagerID)
		if err != nil {
			return NormalizedFacts{}, err
		}
		isHypervisor = count > 0
	}

	isUnmappedGuest := false
	if isVirtual && hypervisorUUID != "" {
		known, err := resolver.HypervisorKnown(ctx, host.OrgID, hypervisorUUID)
		if err != nil {
			return NormalizedFacts{}, err
		}
		isUnmappedGuest = !known
	}

	products, err := n.products.Resolve(ctx, ProductInput{
		SystemProfile:           profile,
		SubscriptionManager:     submanPtr,
		SystemManagement:        sysmgmtPtr,
		PackageCompliance:       pkgcompPtr,
		SkipSubscriptionManager: stale,
		MetricIDs:               ApplicableMetricIDs,
	})
	if err != nil {
		return NormalizedFacts{}, err
	}

	instanceID := host.InventoryID
	if host.ProviderID != "" {
		instanceID = host.ProviderID
	}

	return NormalizedFacts{
		OrgID:                 host.OrgID,
		InventoryID:           host.InventoryID,
		InstanceID:            instanceID,
		InsightsID:            host.InsightsID,
		SubscriptionManagerID: host.SubscriptionManagerID,
		DisplayName:           host.DisplayName,
		Usage:                 n.resolveUsage(stale, submanPtr, sysmgmtPtr),
		ServiceLevel:          n.resolveServiceLevel(stale, submanPtr, sysmgmtPtr),
		CloudProvider:         cloudProvider,
		HardwareType:          hardwareType,
		SyncTimestamp:         syncTimestamp,
		LastSeen:              n.parseLastSeen(host),
		IsVirtual:             isVirtual,
		HypervisorUUID:        hypervisorUUID,
		IsHypervisor:          isHypervisor,
		IsUnmappedGuest:       isUnmappedGuest,
		ProductTags:           products.Tags,
		ProductIDs:            products.IDs,
		Is3rdPartyMigrated:    profile.Is3rdPartyMigrated,
	}, nil
}

// resolveSyncTimestamp parses the subscription-manager sync timestamp and
// decides whether its facts are too old to trust for this event.
func (n *FactNormalizer) resolveSyncTimestamp(subman *inventory.SubscriptionManagerFacts) (*time.Time, bool) {
	if subman == nil || subman.SyncTimestamp == "" {
		return nil, false
	}
	parsed, err := time.Parse(time.RFC3339, subman.SyncTimestamp)
	if err != nil {
		n.log.Warn("unparseable sync timestamp",
			zap.String("sync_timestamp", subman.SyncTimestamp),
			zap.Error(err),
		)
		return nil, false
	}
	startOfToday := n.clock.Now().UTC().Truncate(24 * time.Hour)
	cutoff := startOfToday.Add(-n.cfg.HostLastSyncThreshold)
	return &parsed, parsed.Before(cutoff)
}

func (n *FactNormalizer) resolveUsage(
	stale bool,
	subman *inventory.SubscriptionManagerFacts,
	sysmgmt *inventory.SystemManagementFacts,
) Usage {
	if !stale && subman != nil {
		if usage, ok := ParseUsage(subman.Usage); ok && usage != UsageUnspecified {
			return usage
		} else if !ok {
			n.log.Debug("unsupported usage value", zap.String("usage", subman.Usage))
		}
	}
	if sysmgmt != nil {
		if usage, ok := ParseUsage(sysmgmt.Usage); ok {
			return usage
		}
		n.log.Debug("unsupported usage value", zap.String("usage", sysmgmt.Usage))
	}
	return UsageUnspecified
}

func (n *FactNormalizer) resolveServiceLevel(
	stale bool,
	subman *inventory.SubscriptionManagerFacts,
	sysmgmt *inventory.SystemManagementFacts,
) ServiceLevel {
	if !stale && subman != nil {
		if sla, ok := ParseServiceLevel(subman.SLA); ok && sla != ServiceLevelUnspecified {
			return sla
		} else if !ok {
			n.log.Debug("unsupported sla value", zap.String("sla", subman.SLA))
		}
	}
	if sysmgmt != nil {
		if sla, ok := ParseServiceLevel(sysmgmt.SLA); ok {
			return sla
		}
		n.log.Debug("unsupported sla value", zap.String("sla", sysmgmt.SLA))
	}
	return ServiceLevelUnspecified
}

func (n *FactNormalizer) parseLastSeen(host inventory.RawHost) *time.Time {
	if host.StaleTimestamp == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, host.StaleTimestamp)
	if err != nil {
		n.log.Warn("unparseable stale timestamp",
			zap.String("stale_timestamp", host.StaleTimestamp),
			zap.Error(err),
		)
		return nil
	}
	return &parsed
}
