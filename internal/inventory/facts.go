package inventory

import "strings"

// SubscriptionManagerFacts is the typed view of the subscription-manager
// fact namespace.
type SubscriptionManagerFacts struct {
	BillingModel       string
	SyncTimestamp      string
	IsVirtual          bool
	Usage              string
	SLA                string
	SystemPurposeRole  string
	SystemPurposeUnits string
	ProductIDs         []string
}

// SystemManagementFacts is the typed view of the system-management fact
// namespace.
type SystemManagementFacts struct {
	Role           string
	HypervisorUUID string
	Usage          string
	SLA            string
}

// PackageComplianceFacts is the typed view of the package-compliance fact
// namespace.
type PackageComplianceFacts struct {
	DetectedProducts []string
}

// SubscriptionManagerFacts extracts the subscription-manager bundle. The
// second return is false when the namespace is absent or malformed.
func (h RawHost) SubscriptionManagerFacts() (SubscriptionManagerFacts, bool) {
	bundle, ok := h.Facts[NamespaceSubscriptionManager]
	if !ok || bundle == nil {
		return SubscriptionManagerFacts{}, false
	}
	return SubscriptionManagerFacts{
		BillingModel:       stringFact(bundle, "billing_model"),
		SyncTimestamp:      stringFact(bundle, "sync_timestamp"),
		IsVirtual:          boolFact(bundle, "is_virtual"),
		Usage:              stringFact(bundle, "usage"),
		SLA:                stringFact(bundle, "sla"),
		SystemPurposeRole:  stringFact(bundle, "system_purpose_role"),
		SystemPurposeUnits: stringFact(bundle, "system_purpose_units"),
		ProductIDs:         stringSliceFact(bundle, "product_ids"),
	}, true
}

// SystemManagementFacts extracts the system-management bundle.
func (h RawHost) SystemManagementFacts() (SystemManagementFacts, bool) {
	bundle, ok := h.Facts[NamespaceSystemManagement]
	if !ok || bundle == nil {
		return SystemManagementFacts{}, false
	}
	return SystemManagementFacts{
		Role:           stringFact(bundle, "role"),
		HypervisorUUID: stringFact(bundle, "hypervisor_uuid"),
		Usage:          stringFact(bundle, "usage"),
		SLA:            stringFact(bundle, "sla"),
	}, true
}

// PackageComplianceFacts extracts the package-compliance bundle.
func (h RawHost) PackageComplianceFacts() (PackageComplianceFacts, bool) {
	bundle, ok := h.Facts[NamespacePackageCompliance]
	if !ok || bundle == nil {
		return PackageComplianceFacts{}, false
	}
	return PackageComplianceFacts{
		DetectedProducts: stringSliceFact(bundle, "detected_products"),
	}, true
}

func stringFact(bundle map[string]any, key string) string {
	value, _ := bundle[key].(string)
	return strings.TrimSpace(value)
}

func boolFact(bundle map[string]any, key string) bool {
	switch value := bundle[key].(type) {
	case bool:
		return value
	case string:
		return strings.EqualFold(strings.TrimSpace(value), "true")
	default:
		return false
	}
}

func stringSliceFact(bundle map[string]any, key string) []string {
	switch value := bundle[key].(type) {
	case []string:
		out := make([]string, 0, len(value))
		for _, entry := range value {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(value))
		for _, entry := range value {
			if text, ok := entry.(string); ok {
				if trimmed := strings.TrimSpace(text); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		return out
	default:
		return nil
	}
}
