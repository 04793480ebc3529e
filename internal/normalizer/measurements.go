package normalizer

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
)

const (
	archX86               = "x86_64"
	infrastructureVirtual = "virtual"
	tagOpenShiftPlatform  = "OpenShift Container Platform"
	unitsSockets          = "Sockets"
	unitsCores            = "Cores/vCPU"
	defaultThreadsPerCore = 2.0
)

// MeasurementNormalizer computes billable core and socket counts from
// system-profile data and normalized facts.
type MeasurementNormalizer struct {
	cfg config.HostsConfig
	log *zap.Logger
}

func NewMeasurementNormalizer(cfg config.Config, log *zap.Logger) *MeasurementNormalizer {
	return &MeasurementNormalizer{
		cfg: cfg.Hosts,
		log: log.Named("normalizer.measurements"),
	}
}

// Normalize derives measurements for one host. Missing profile fields
// degrade to nil metrics rather than failing.
func (n *MeasurementNormalizer) Normalize(
	facts NormalizedFacts,
	profile inventory.SystemProfile,
	subman *inventory.SubscriptionManagerFacts,
) NormalizedMeasurements {
	measurements := NormalizedMeasurements{
		Cores:   n.normalizeCores(facts, profile),
		Sockets: n.normalizeSockets(facts, profile),
	}

	n.applyUnitOverride(&measurements, profile, subman)

	if profile.IsMarketplace {
		measurements.Cores = intPtr(0)
		measurements.Sockets = intPtr(0)
	}
	return measurements
}

func (n *MeasurementNormalizer) normalizeCores(facts NormalizedFacts, profile inventory.SystemProfile) *int {
	virtualX86 := profile.Arch == archX86 && profile.InfrastructureType == infrastructureVirtual
	if !virtualX86 {
		if profile.CoresPerSocket > 0 && profile.Sockets > 0 {
			return intPtr(profile.CoresPerSocket * profile.Sockets)
		}
		return nil
	}

	if profile.CoresPerSocket <= 0 || profile.Sockets <= 0 {
		return nil
	}
	cpu := float64(profile.CoresPerSocket * profile.Sockets)

	threadsPerCore := defaultThreadsPerCore
	if n.cfg.UseCPUSystemFactsForAllProducts || hasTag(facts.ProductTags, tagOpenShiftPlatform) {
		switch {
		case profile.ThreadsPerCore > 0:
			threadsPerCore = profile.ThreadsPerCore
		case profile.CPUs > 0:
			threadsPerCore = float64(profile.CPUs) / cpu
		}
	}

	return intPtr(int(math.Ceil(cpu / threadsPerCore)))
}

func (n *MeasurementNormalizer) normalizeSockets(facts NormalizedFacts, profile inventory.SystemProfile) *int {
	var sockets *int
	if profile.Sockets > 0 {
		sockets = intPtr(profile.Sockets)
	}

	if !facts.IsVirtual || facts.IsHypervisor {
		// Physical hosts and hypervisors are billed in socket pairs.
		if sockets != nil && *sockets%2 == 1 {
			sockets = intPtr(*sockets + 1)
		}
		return sockets
	}

	switch {
	case facts.CloudProvider != CloudProviderNone:
		if profile.IsMarketplace {
			return intPtr(0)
		}
		return intPtr(1)
	case facts.IsUnmappedGuest && hasTagPrefix(facts.ProductTags, tagRHEL):
		return intPtr(1)
	default:
		return sockets
	}
}

func (n *MeasurementNormalizer) applyUnitOverride(
	measurements *NormalizedMeasurements,
	profile inventory.SystemProfile,
	subman *inventory.SubscriptionManagerFacts,
) {
	if subman == nil || subman.SystemPurposeUnits == "" {
		return
	}
	switch subman.SystemPurposeUnits {
	case unitsSockets:
		measurements.Cores = nil
		if measurements.Sockets == nil && profile.Sockets > 0 {
			measurements.Sockets = intPtr(profile.Sockets)
		}
	case unitsCores:
		measurements.Sockets = nil
		if measurements.Cores == nil && profile.CoresPerSocket > 0 {
			measurements.Cores = intPtr(profile.CoresPerSocket)
		}
	default:
		n.log.Debug("unsupported system purpose units",
			zap.String("units", subman.SystemPurposeUnits),
		)
	}
}

func hasTag(tags []string, needle string) bool {
	for _, tag := range tags {
		if tag == needle {
			return true
		}
	}
	return false
}

func hasTagPrefix(tags []string, prefix string) bool {
	for _, tag := range tags {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}

func intPtr(value int) *int { return &value }
