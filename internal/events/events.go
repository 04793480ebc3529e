// Package events defines the outbound normalized usage events and the
// outbox they are committed through.
package events

import (
	"fmt"
	"time"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/normalizer"
)

// Outbound event types.
const (
	EventInstanceCreated = "INSTANCE_CREATED"
	EventInstanceUpdated = "INSTANCE_UPDATED"
	EventInstanceDeleted = "INSTANCE_DELETED"
)

// NormalizedEvent is one outbound usage event for the downstream tally
// engine.
type NormalizedEvent struct {
	OrgID      string    `json:"org_id"`
	InstanceID string    `json:"instance_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`

	HardwareType    string `json:"hardware_type,omitempty"`
	CloudProvider   string `json:"cloud_provider,omitempty"`
	ServiceLevel    string `json:"sla,omitempty"`
	Usage           string `json:"usage,omitempty"`
	IsHypervisor    bool   `json:"is_hypervisor"`
	IsUnmappedGuest bool   `json:"is_unmapped_guest"`
	HypervisorUUID  string `json:"hypervisor_uuid,omitempty"`

	ProductIDs  []string `json:"product_ids,omitempty"`
	ProductTags []string `json:"product_tags,omitempty"`

	// Measurements maps metric id to value.
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// NewEvent builds an outbound event from normalized facts and measurements.
func NewEvent(
	eventType string,
	facts normalizer.NormalizedFacts,
	measurements normalizer.NormalizedMeasurements,
	timestamp time.Time,
) NormalizedEvent {
	event := NormalizedEvent{
		OrgID:           facts.OrgID,
		InstanceID:      facts.InstanceID,
		EventType:       eventType,
		Timestamp:       timestamp,
		HardwareType:    string(facts.HardwareType),
		CloudProvider:   string(facts.CloudProvider),
		ServiceLevel:    string(facts.ServiceLevel),
		Usage:           string(facts.Usage),
		IsHypervisor:    facts.IsHypervisor,
		IsUnmappedGuest: facts.IsUnmappedGuest,
		HypervisorUUID:  facts.HypervisorUUID,
		ProductIDs:      facts.ProductIDs,
		ProductTags:     facts.ProductTags,
	}
	measurementMap := map[string]float64{}
	if measurements.Cores != nil {
		measurementMap[normalizer.MetricIDCores] = float64(*measurements.Cores)
	}
	if measurements.Sockets != nil {
		measurementMap[normalizer.MetricIDSockets] = float64(*measurements.Sockets)
	}
	if len(measurementMap) > 0 {
		event.Measurements = measurementMap
	}
	return event
}

// NewMinimalDeleteEvent covers delete events for hosts with no known
// relationship, where no enrichment is possible.
func NewMinimalDeleteEvent(orgID, instanceID string, timestamp time.Time) NormalizedEvent {
	return NormalizedEvent{
		OrgID:      orgID,
		InstanceID: instanceID,
		EventType:  EventInstanceDeleted,
		Timestamp:  timestamp,
	}
}

// DedupeKey identifies one emission of one instance within one inbound
// event, so outbox replays cannot double-write.
func (e NormalizedEvent) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%s", e.EventType, e.InstanceID, e.Timestamp.UTC().Format(time.RFC3339Nano))
}
