// Package inventory defines the inbound host payloads reported by the
// external inventory source and the typed fact views derived from them.
package inventory

import "time"

// Fact namespaces recognized on inbound host payloads. Unknown namespaces
// are carried along but never interpreted.
const (
	NamespaceSubscriptionManager = "subscription_manager"
	NamespaceSystemManagement    = "system_management"
	NamespacePackageCompliance   = "package_compliance"
)

// RawHost is one host record as reported by the inventory source. It is
// constructed fresh per event and never mutated.
type RawHost struct {
	OrgID                 string `json:"org_id" validate:"required"`
	InventoryID           string `json:"inventory_id" validate:"required"`
	ProviderID            string `json:"provider_id,omitempty"`
	SubscriptionManagerID string `json:"subscription_manager_id,omitempty"`
	InsightsID            string `json:"insights_id,omitempty"`
	DisplayName           string `json:"display_name,omitempty"`

	// StaleTimestamp is the instant after which the inventory source
	// considers this record stale, as an RFC3339 string.
	StaleTimestamp string `json:"stale_timestamp,omitempty"`

	// Facts holds the loosely-typed fact bundles keyed by namespace as
	// they arrive on the wire. Typed access goes through the extractor
	// methods in facts.go.
	Facts map[string]map[string]any `json:"facts,omitempty"`

	SystemProfile SystemProfile `json:"system_profile"`

	Timestamp time.Time `json:"timestamp"`
}

// SystemProfile carries the always-present profile bundle. Zero values mean
// the inventory source did not report the field.
type SystemProfile struct {
	Arch               string   `json:"arch,omitempty"`
	Sockets            int      `json:"sockets,omitempty"`
	CoresPerSocket     int      `json:"cores_per_socket,omitempty"`
	ThreadsPerCore     float64  `json:"threads_per_core,omitempty"`
	CPUs               int      `json:"cpus,omitempty"`
	InfrastructureType string   `json:"infrastructure_type,omitempty"`
	CloudProvider      string   `json:"cloud_provider,omitempty"`
	HypervisorUUID     string   `json:"hypervisor_uuid,omitempty"`
	ProductIDs         []string `json:"product_ids,omitempty"`
	IsMarketplace      bool     `json:"is_marketplace,omitempty"`
	Is3rdPartyMigrated bool     `json:"is_3rd_party_migrated,omitempty"`
	HostType           string   `json:"host_type,omitempty"`
	BillingModel       string   `json:"billing_model,omitempty"`
}

// DeleteEvent is the inbound host removal notification.
type DeleteEvent struct {
	OrgID       string    `json:"org_id" validate:"required"`
	InventoryID string    `json:"inventory_id" validate:"required"`
	Timestamp   time.Time `json:"timestamp"`
}
