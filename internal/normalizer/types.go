// Package normalizer derives canonical host facts and billable measurements
// from raw inventory payloads.
package normalizer

import (
	"strings"
	"time"
)

// Metric ids attached to normalized measurements.
const (
	MetricIDCores   = "Cores"
	MetricIDSockets = "Sockets"
)

// ApplicableMetricIDs is the fixed metric set product resolution applies to.
var ApplicableMetricIDs = []string{MetricIDCores, MetricIDSockets}

// HardwareType classifies where a host runs.
type HardwareType string

const (
	HardwarePhysical HardwareType = "PHYSICAL"
	HardwareVirtual  HardwareType = "VIRTUAL"
	HardwareCloud    HardwareType = "CLOUD"
)

// CloudProvider is the recognized public cloud the host reports, empty when
// the host is not on a supported provider.
type CloudProvider string

const (
	CloudProviderNone    CloudProvider = ""
	CloudProviderAWS     CloudProvider = "AWS"
	CloudProviderAzure   CloudProvider = "Azure"
	CloudProviderGoogle  CloudProvider = "Google"
	CloudProviderAlibaba CloudProvider = "Alibaba"
)

// ParseCloudProvider maps the free-form system-profile provider string onto
// a supported provider. Unknown values map to none.
func ParseCloudProvider(value string) CloudProvider {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "aws", "amazon":
		return CloudProviderAWS
	case "azure":
		return CloudProviderAzure
	case "gcp", "google":
		return CloudProviderGoogle
	case "alibaba":
		return CloudProviderAlibaba
	default:
		return CloudProviderNone
	}
}

// Usage is the declared workload purpose of a host.
type Usage string

const (
	UsageUnspecified      Usage = ""
	UsageProduction       Usage = "Production"
	UsageDevelopmentTest  Usage = "Development/Test"
	UsageDisasterRecovery Usage = "Disaster Recovery"
)

// ParseUsage reports whether the raw value names a known usage.
func ParseUsage(value string) (Usage, bool) {
	switch Usage(strings.TrimSpace(value)) {
	case UsageUnspecified:
		return UsageUnspecified, true
	case UsageProduction:
		return UsageProduction, true
	case UsageDevelopmentTest:
		return UsageDevelopmentTest, true
	case UsageDisasterRecovery:
		return UsageDisasterRecovery, true
	default:
		return UsageUnspecified, false
	}
}

// ServiceLevel is the declared support level of a host.
type ServiceLevel string

const (
	ServiceLevelUnspecified ServiceLevel = ""
	ServiceLevelPremium     ServiceLevel = "Premium"
	ServiceLevelStandard    ServiceLevel = "Standard"
	ServiceLevelSelfSupport ServiceLevel = "Self-Support"
)

// ParseServiceLevel reports whether the raw value names a known level.
func ParseServiceLevel(value string) (ServiceLevel, bool) {
	switch ServiceLevel(strings.TrimSpace(value)) {
	case ServiceLevelUnspecified:
		return ServiceLevelUnspecified, true
	case ServiceLevelPremium:
		return ServiceLevelPremium, true
	case ServiceLevelStandard:
		return ServiceLevelStandard, true
	case ServiceLevelSelfSupport:
		return ServiceLevelSelfSupport, true
	default:
		return ServiceLevelUnspecified, false
	}
}

// NormalizedFacts is the per-event canonical snapshot of one host.
type NormalizedFacts struct {
	OrgID                 string
	InventoryID           string
	InstanceID            string
	InsightsID            string
	SubscriptionManagerID string
	DisplayName           string

	Usage         Usage
	ServiceLevel  ServiceLevel
	CloudProvider CloudProvider
	HardwareType  HardwareType

	SyncTimestamp *time.Time
	LastSeen      *time.Time

	IsVirtual       bool
	HypervisorUUID  string
	IsHypervisor    bool
	IsUnmappedGuest bool

	ProductTags []string
	ProductIDs  []string

	Is3rdPartyMigrated bool
}

// IsGuest reports whether the host is virtual with a known parent reference.
func (f NormalizedFacts) IsGuest() bool {
	return f.IsVirtual && f.HypervisorUUID != ""
}

// NormalizedMeasurements is the billable core/socket pair. Nil means the
// metric could not be derived from the available facts.
type NormalizedMeasurements struct {
	Cores   *int
	Sockets *int
}
