package normalizer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/catalog"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/clock"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
)

var factsInstant = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

type fakeResolver struct {
	guestCounts map[string]int64
	known       map[string]bool
}

func (f *fakeResolver) GuestCount(_ context.Context, orgID, subscriptionManagerID string) (int64, error) {
	return f.guestCounts[orgID+"|"+subscriptionManagerID], nil
}

func (f *fakeResolver) HypervisorKnown(_ context.Context, orgID, hypervisorUUID string) (bool, error) {
	return f.known[orgID+"|"+hypervisorUUID], nil
}

func newFactNormalizer() *FactNormalizer {
	log := zap.NewNop()
	cfg := config.Config{Hosts: config.HostsConfig{HostLastSyncThreshold: 24 * time.Hour}}
	products := NewProductResolver(catalog.NewDefaultStaticCatalog(), log)
	return NewFactNormalizer(products, clock.FixedClock{Instant: factsInstant}, cfg, log)
}

func baseHost() inventory.RawHost {
	return inventory.RawHost{
		OrgID:                 "org1",
		InventoryID:           "inv-1",
		SubscriptionManagerID: "subman-1",
		DisplayName:           "host.example.com",
		Facts: map[string]map[string]any{
			inventory.NamespaceSubscriptionManager: {
				"sync_timestamp": "2024-05-15T08:00:00Z",
			},
		},
		SystemProfile: inventory.SystemProfile{
			Arch:               "x86_64",
			InfrastructureType: "physical",
			ProductIDs:         []string{"69"},
		},
		Timestamp: factsInstant,
	}
}

func TestNormalizePhysicalHost(t *testing.T) {
	n := newFactNormalizer()

	facts, err := n.Normalize(context.Background(), baseHost(), &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.HardwareType != HardwarePhysical {
		t.Fatalf("expected physical hardware, got %s", facts.HardwareType)
	}
	if facts.IsVirtual || facts.IsHypervisor || facts.IsUnmappedGuest {
		t.Fatalf("unexpected virtualization flags: %+v", facts)
	}
	if facts.InstanceID != "inv-1" {
		t.Fatalf("expected inventory id as instance id, got %s", facts.InstanceID)
	}
	if len(facts.ProductTags) != 1 || facts.ProductTags[0] != "RHEL for x86" {
		t.Fatalf("unexpected product tags: %v", facts.ProductTags)
	}
}

func TestProviderIDWinsAsInstanceID(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.ProviderID = "i-0123456789"

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.InstanceID != "i-0123456789" {
		t.Fatalf("expected provider id, got %s", facts.InstanceID)
	}
}

func TestStaleSubscriptionManagerFactsAreGated(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.Facts[inventory.NamespaceSubscriptionManager] = map[string]any{
		"sync_timestamp": "2024-05-01T00:00:00Z",
		"usage":          "Production",
		"sla":            "Premium",
	}
	host.Facts[inventory.NamespaceSystemManagement] = map[string]any{
		"usage": "Development/Test",
		"sla":   "Standard",
	}

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.Usage != UsageDevelopmentTest {
		t.Fatalf("expected system-management usage, got %q", facts.Usage)
	}
	if facts.ServiceLevel != ServiceLevelStandard {
		t.Fatalf("expected system-management sla, got %q", facts.ServiceLevel)
	}
	if facts.SyncTimestamp == nil {
		t.Fatalf("sync timestamp should still be recorded")
	}
}

func TestFreshSubscriptionManagerFactsWin(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.Facts[inventory.NamespaceSubscriptionManager]["usage"] = "Production"
	host.Facts[inventory.NamespaceSubscriptionManager]["sla"] = "Premium"
	host.Facts[inventory.NamespaceSystemManagement] = map[string]any{
		"usage": "Development/Test",
		"sla":   "Standard",
	}

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.Usage != UsageProduction || facts.ServiceLevel != ServiceLevelPremium {
		t.Fatalf("expected subscription-manager values, got %q/%q", facts.Usage, facts.ServiceLevel)
	}
}

func TestUnknownUsageFallsThrough(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.Facts[inventory.NamespaceSubscriptionManager]["usage"] = "Quality Engineering"
	host.Facts[inventory.NamespaceSystemManagement] = map[string]any{
		"usage": "Production",
	}

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.Usage != UsageProduction {
		t.Fatalf("expected fallthrough to system management, got %q", facts.Usage)
	}
}

func TestVirtualGuestDerivation(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.Facts[inventory.NamespaceSubscriptionManager]["is_virtual"] = true
	host.SystemProfile.HypervisorUUID = "hyp-1"

	resolver := &fakeResolver{known: map[string]bool{"org1|hyp-1": true}}
	facts, err := n.Normalize(context.Background(), host, resolver)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !facts.IsVirtual || facts.HardwareType != HardwareVirtual {
		t.Fatalf("expected virtual host, got %+v", facts)
	}
	if !facts.IsGuest() || facts.IsUnmappedGuest {
		t.Fatalf("expected mapped guest, got %+v", facts)
	}
}

func TestSystemManagementHypervisorUUIDImpliesVirtual(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.Facts[inventory.NamespaceSystemManagement] = map[string]any{
		"hypervisor_uuid": "hyp-2",
	}

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !facts.IsVirtual || facts.HypervisorUUID != "hyp-2" {
		t.Fatalf("expected virtual guest of hyp-2, got %+v", facts)
	}
	if !facts.IsUnmappedGuest {
		t.Fatalf("unknown hypervisor should leave the guest unmapped")
	}
}

func TestGuestCountMakesHypervisor(t *testing.T) {
	n := newFactNormalizer()

	resolver := &fakeResolver{guestCounts: map[string]int64{"org1|subman-1": 3}}
	facts, err := n.Normalize(context.Background(), baseHost(), resolver)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !facts.IsHypervisor {
		t.Fatalf("expected hypervisor flag")
	}
}

func TestCloudProviderSetsHardwareType(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.SystemProfile.CloudProvider = "aws"

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.HardwareType != HardwareCloud || facts.CloudProvider != CloudProviderAWS {
		t.Fatalf("expected AWS cloud host, got %+v", facts)
	}
}

func TestMalformedStaleTimestampIsIgnored(t *testing.T) {
	n := newFactNormalizer()

	host := baseHost()
	host.StaleTimestamp = "not-a-timestamp"

	facts, err := n.Normalize(context.Background(), host, &fakeResolver{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if facts.LastSeen != nil {
		t.Fatalf("expected nil last seen, got %v", facts.LastSeen)
	}
}
