package normalizer

import (
	"testing"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
)

func newMeasurementNormalizer(hosts config.HostsConfig) *MeasurementNormalizer {
	return NewMeasurementNormalizer(config.Config{Hosts: hosts}, zap.NewNop())
}

func intValue(t *testing.T, value *int, want int, name string) {
	t.Helper()
	if value == nil {
		t.Fatalf("expected %s=%d, got nil", name, want)
	}
	if *value != want {
		t.Fatalf("expected %s=%d, got %d", name, want, *value)
	}
}

func TestVirtualX86CoresUseThreadDivision(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{IsVirtual: true}
	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "virtual",
		CoresPerSocket:     2,
		Sockets:            2,
	}

	got := n.Normalize(facts, profile, nil)
	// 4 vCPUs over the default 2 threads per core.
	intValue(t, got.Cores, 2, "cores")
}

func TestVirtualX86CoresRoundUp(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{IsVirtual: true}
	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "virtual",
		CoresPerSocket:     3,
		Sockets:            1,
	}

	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Cores, 2, "cores")
}

func TestOpenShiftUsesSystemThreadsPerCore(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{
		IsVirtual:   true,
		ProductTags: []string{"OpenShift Container Platform"},
	}
	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "virtual",
		CoresPerSocket:     4,
		Sockets:            1,
		ThreadsPerCore:     1,
	}

	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Cores, 4, "cores")
}

func TestThreadsPerCoreFallsBackToCPUCount(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{UseCPUSystemFactsForAllProducts: true})

	facts := NormalizedFacts{IsVirtual: true}
	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "virtual",
		CoresPerSocket:     4,
		Sockets:            1,
		CPUs:               16,
	}

	// threads per core inferred as 16/4 = 4.
	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Cores, 1, "cores")
}

func TestPhysicalCoresMultiplyWithoutThreadDivision(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "physical",
		CoresPerSocket:     2,
		Sockets:            3,
	}

	got := n.Normalize(NormalizedFacts{}, profile, nil)
	intValue(t, got.Cores, 6, "cores")
	// Odd physical socket counts round up to the next pair.
	intValue(t, got.Sockets, 4, "sockets")
}

func TestHypervisorSocketsRoundToPairs(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{IsVirtual: true, IsHypervisor: true}
	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "virtual",
		CoresPerSocket:     1,
		Sockets:            1,
	}

	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Sockets, 2, "sockets")
}

func TestCloudGuestBillsSingleSocket(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{IsVirtual: true, CloudProvider: CloudProviderAWS}
	profile := inventory.SystemProfile{Sockets: 8}

	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Sockets, 1, "sockets")
}

func TestUnmappedRHELGuestBillsSingleSocket(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	facts := NormalizedFacts{
		IsVirtual:       true,
		IsUnmappedGuest: true,
		ProductTags:     []string{"RHEL for x86"},
	}
	profile := inventory.SystemProfile{Sockets: 4}

	got := n.Normalize(facts, profile, nil)
	intValue(t, got.Sockets, 1, "sockets")
}

func TestMarketplaceZeroesMeasurements(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "physical",
		CoresPerSocket:     2,
		Sockets:            2,
		IsMarketplace:      true,
	}

	got := n.Normalize(NormalizedFacts{}, profile, nil)
	intValue(t, got.Cores, 0, "cores")
	intValue(t, got.Sockets, 0, "sockets")
}

func TestSocketsUnitOverrideDropsCores(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "physical",
		CoresPerSocket:     2,
		Sockets:            2,
	}
	subman := &inventory.SubscriptionManagerFacts{SystemPurposeUnits: "Sockets"}

	got := n.Normalize(NormalizedFacts{}, profile, subman)
	if got.Cores != nil {
		t.Fatalf("expected cores dropped, got %d", *got.Cores)
	}
	intValue(t, got.Sockets, 2, "sockets")
}

func TestCoresUnitOverrideDropsSockets(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	profile := inventory.SystemProfile{
		Arch:               "x86_64",
		InfrastructureType: "physical",
		CoresPerSocket:     2,
		Sockets:            2,
	}
	subman := &inventory.SubscriptionManagerFacts{SystemPurposeUnits: "Cores/vCPU"}

	got := n.Normalize(NormalizedFacts{}, profile, subman)
	if got.Sockets != nil {
		t.Fatalf("expected sockets dropped, got %d", *got.Sockets)
	}
	intValue(t, got.Cores, 4, "cores")
}

func TestMissingProfileFieldsYieldNilMetrics(t *testing.T) {
	n := newMeasurementNormalizer(config.HostsConfig{})

	got := n.Normalize(NormalizedFacts{}, inventory.SystemProfile{}, nil)
	if got.Cores != nil || got.Sockets != nil {
		t.Fatalf("expected nil metrics, got %+v", got)
	}
}
