package inventory

import "testing"

func TestSubscriptionManagerFactsAbsent(t *testing.T) {
	host := RawHost{}
	if _, ok := host.SubscriptionManagerFacts(); ok {
		t.Fatalf("expected absent namespace")
	}
}

func TestSubscriptionManagerFactsExtraction(t *testing.T) {
	host := RawHost{
		Facts: map[string]map[string]any{
			NamespaceSubscriptionManager: {
				"billing_model":        "standard",
				"sync_timestamp":       "2026-08-30T10:00:00Z",
				"is_virtual":           true,
				"usage":                "Production",
				"sla":                  "Premium",
				"system_purpose_units": "Sockets",
				"product_ids":          []any{"69", " 290 ", ""},
			},
		},
	}

	facts, ok := host.SubscriptionManagerFacts()
	if !ok {
		t.Fatalf("expected namespace present")
	}
	if !facts.IsVirtual {
		t.Fatalf("expected virtual flag")
	}
	if facts.Usage != "Production" || facts.SLA != "Premium" {
		t.Fatalf("unexpected usage/sla: %q %q", facts.Usage, facts.SLA)
	}
	if len(facts.ProductIDs) != 2 || facts.ProductIDs[0] != "69" || facts.ProductIDs[1] != "290" {
		t.Fatalf("unexpected product ids: %v", facts.ProductIDs)
	}
}

func TestIsVirtualStringCoercion(t *testing.T) {
	host := RawHost{
		Facts: map[string]map[string]any{
			NamespaceSubscriptionManager: {"is_virtual": "True"},
		},
	}
	facts, _ := host.SubscriptionManagerFacts()
	if !facts.IsVirtual {
		t.Fatalf("expected string true to coerce")
	}
}

func TestMalformedFieldsDegradeToZeroValues(t *testing.T) {
	host := RawHost{
		Facts: map[string]map[string]any{
			NamespaceSystemManagement: {
				"role":            42,
				"hypervisor_uuid": "hyp-1",
			},
		},
	}
	facts, ok := host.SystemManagementFacts()
	if !ok {
		t.Fatalf("expected namespace present")
	}
	if facts.Role != "" {
		t.Fatalf("expected malformed role dropped, got %q", facts.Role)
	}
	if facts.HypervisorUUID != "hyp-1" {
		t.Fatalf("expected hypervisor uuid, got %q", facts.HypervisorUUID)
	}
}

func TestPackageComplianceFacts(t *testing.T) {
	host := RawHost{
		Facts: map[string]map[string]any{
			NamespacePackageCompliance: {
				"detected_products": []string{"RHEL", "RHEL Server"},
			},
		},
	}
	facts, ok := host.PackageComplianceFacts()
	if !ok {
		t.Fatalf("expected namespace present")
	}
	if len(facts.DetectedProducts) != 2 {
		t.Fatalf("unexpected products: %v", facts.DetectedProducts)
	}
}
