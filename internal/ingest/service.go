// Package ingest drives the host event state machine: skip filtering,
// normalization, relationship maintenance, and cascading recomputation of
// related hosts.
package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/clock"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/events"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/inventory"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/normalizer"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/metrics"
	reldomain "github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
)

// Skip predicate reasons.
const (
	SkipReasonCulled      = "culled"
	SkipReasonEdge        = "edge"
	SkipReasonMarketplace = "marketplace"
)

const (
	hostTypeEdge            = "edge"
	billingModelMarketplace = "marketplace"
)

type Param struct {
	fx.In

	DB            *gorm.DB
	Config        config.Config
	Clock         clock.Clock
	Log           *zap.Logger
	Relationships reldomain.Repository
	Facts         *normalizer.FactNormalizer
	Measurements  *normalizer.MeasurementNormalizer
	Source        inventory.Source
	Outbox        *events.Outbox
	Metrics       *metrics.IngestMetrics `optional:"true"`
}

// Service handles inbound host lifecycle events. Every handler buffers its
// relationship mutations and outbound events, then applies them in one
// database transaction.
type Service struct {
	db            *gorm.DB
	cfg           config.HostsConfig
	clock         clock.Clock
	log           *zap.Logger
	relationships reldomain.Repository
	facts         *normalizer.FactNormalizer
	measurements  *normalizer.MeasurementNormalizer
	source        inventory.Source
	outbox        *events.Outbox
	metrics       *metrics.IngestMetrics
}

func NewService(p Param) *Service {
	return &Service{
		db:            p.DB,
		cfg:           p.Config.Hosts,
		clock:         p.Clock,
		log:           p.Log.Named("ingest"),
		relationships: p.Relationships,
		facts:         p.Facts,
		measurements:  p.Measurements,
		source:        p.Source,
		outbox:        p.Outbox,
		metrics:       p.Metrics,
	}
}

// Result reports what one inbound event produced.
type Result struct {
	Skipped    bool
	SkipReason string
	Events     []events.NormalizedEvent
}

// changeSet buffers the work of one inbound event until commit.
type changeSet struct {
	upserts []reldomain.HostRelationship
	deletes []reldomain.HostRelationship
	events  []events.NormalizedEvent
}

// HandleHostEvent processes one created/updated host report from the
// inventory source.
func (s *Service) HandleHostEvent(ctx context.Context, host inventory.RawHost) (*Result, error) {
	start := s.clock.Now()

	if reason := s.skipReason(host); reason != "" {
		s.metrics.IncSkipped(reason)
		s.log.Debug("host event skipped",
			zap.String("org_id", host.OrgID),
			zap.String("inventory_id", host.InventoryID),
			zap.String("reason", reason),
		)
		return &Result{Skipped: true, SkipReason: reason}, nil
	}

	result, eventType, err := s.handleHostEvent(ctx, host)
	s.metrics.ObserveHandleDuration(s.clock.Now().Sub(start))
	if err != nil {
		s.metrics.IncProcessed(eventType, "failed")
		return nil, err
	}
	s.metrics.IncProcessed(eventType, "success")
	return result, nil
}

func (s *Service) handleHostEvent(ctx context.Context, host inventory.RawHost) (*Result, string, error) {
	overlay := newOverlayResolver(s.relationships)
	changes := &changeSet{}

	var existing *reldomain.HostRelationship
	if host.SubscriptionManagerID != "" {
		var err error
		existing, err = s.relationships.FindByOrgAndSubscriptionManagerID(ctx, host.OrgID, host.SubscriptionManagerID)
		if err != nil {
			return nil, "updated", err
		}
	}
	eventType := events.EventInstanceUpdated
	metricType := "updated"
	if existing == nil {
		eventType = events.EventInstanceCreated
		metricType = "created"
	}

	facts, err := s.facts.Normalize(ctx, host, overlay)
	if err != nil {
		return nil, metricType, err
	}
	measurements := s.normalizeMeasurements(facts, host)
	changes.events = append(changes.events, events.NewEvent(eventType, facts, measurements, host.Timestamp))

	if host.SubscriptionManagerID != "" {
		hypervisorUUID := ""
		if facts.IsGuest() {
			hypervisorUUID = facts.HypervisorUUID
		}
		rel := reldomain.HostRelationship{
			OrgID:                 host.OrgID,
			SubscriptionManagerID: host.SubscriptionManagerID,
			InventoryID:           host.InventoryID,
			HypervisorUUID:        hypervisorUUID,
			UnmappedGuest:         facts.IsUnmappedGuest,
		}
		changes.upserts = append(changes.upserts, rel)
		overlay.markUpserted(existing, rel)

		if err := s.remapUnmappedGuests(ctx, host, overlay, changes); err != nil {
			return nil, metricType, err
		}
		if facts.IsGuest() {
			if err := s.recomputeHypervisor(ctx, host.OrgID, facts.HypervisorUUID, host.SubscriptionManagerID, host.Timestamp, overlay, changes); err != nil {
				return nil, metricType, err
			}
		}
	}

	if err := s.apply(ctx, changes); err != nil {
		return nil, metricType, err
	}
	return &Result{Events: changes.events}, metricType, nil
}

// remapUnmappedGuests flips guests waiting on this host's hypervisor uuid
// from unmapped to mapped and re-emits their usage.
func (s *Service) remapUnmappedGuests(
	ctx context.Context,
	host inventory.RawHost,
	overlay *overlayResolver,
	changes *changeSet,
) error {
	unmapped, err := s.relationships.FindUnmappedGuests(ctx, host.OrgID, host.SubscriptionManagerID)
	if err != nil {
		return err
	}
	for _, guest := range unmapped {
		if guest.SubscriptionManagerID == host.SubscriptionManagerID {
			continue
		}
		raw, err := s.source.FindHostBySubscriptionManagerID(ctx, guest.OrgID, guest.SubscriptionManagerID)
		if errors.Is(err, inventory.ErrHostNotFound) {
			s.log.Warn("guest missing from inventory during remap",
				zap.String("org_id", guest.OrgID),
				zap.String("subscription_manager_id", guest.SubscriptionManagerID),
			)
			continue
		}
		if err != nil {
			return err
		}

		remapped := guest
		remapped.UnmappedGuest = false
		changes.upserts = append(changes.upserts, remapped)
		overlay.markUpserted(&guest, remapped)

		guestFacts, err := s.facts.Normalize(ctx, *raw, overlay)
		if err != nil {
			return err
		}
		guestMeasurements := s.normalizeMeasurements(guestFacts, *raw)
		changes.events = append(changes.events, events.NewEvent(events.EventInstanceUpdated, guestFacts, guestMeasurements, host.Timestamp))
		s.metrics.IncCascade("guest")
	}
	return nil
}

// recomputeHypervisor re-emits the hypervisor's usage after its guest set
// changed. selfID guards against hosts reporting themselves as their own
// hypervisor.
func (s *Service) recomputeHypervisor(
	ctx context.Context,
	orgID, hypervisorUUID, selfID string,
	timestamp time.Time,
	overlay *overlayResolver,
	changes *changeSet,
) error {
	if hypervisorUUID == "" || hypervisorUUID == selfID {
		return nil
	}
	hypervisor, err := s.relationships.FindByOrgAndSubscriptionManagerID(ctx, orgID, hypervisorUUID)
	if err != nil {
		return err
	}
	if hypervisor == nil {
		return nil
	}
	raw, err := s.source.FindHostBySubscriptionManagerID(ctx, orgID, hypervisor.SubscriptionManagerID)
	if errors.Is(err, inventory.ErrHostNotFound) {
		s.log.Warn("hypervisor missing from inventory during recompute",
			zap.String("org_id", orgID),
			zap.String("subscription_manager_id", hypervisor.SubscriptionManagerID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	hypervisorFacts, err := s.facts.Normalize(ctx, *raw, overlay)
	if err != nil {
		return err
	}
	hypervisorMeasurements := s.normalizeMeasurements(hypervisorFacts, *raw)
	changes.events = append(changes.events, events.NewEvent(events.EventInstanceUpdated, hypervisorFacts, hypervisorMeasurements, timestamp))
	s.metrics.IncCascade("hypervisor")
	return nil
}

// HandleDeleteEvent processes one host removal notification.
func (s *Service) HandleDeleteEvent(ctx context.Context, event inventory.DeleteEvent) (*Result, error) {
	start := s.clock.Now()
	result, err := s.handleDeleteEvent(ctx, event)
	s.metrics.ObserveHandleDuration(s.clock.Now().Sub(start))
	if err != nil {
		s.metrics.IncProcessed("deleted", "failed")
		return nil, err
	}
	s.metrics.IncProcessed("deleted", "success")
	return result, nil
}

func (s *Service) handleDeleteEvent(ctx context.Context, event inventory.DeleteEvent) (*Result, error) {
	rel, err := s.relationships.FindByOrgAndInventoryID(ctx, event.OrgID, event.InventoryID)
	if err != nil {
		return nil, err
	}

	changes := &changeSet{}
	if rel == nil {
		// Nothing known about this host beyond its identity.
		changes.events = append(changes.events, events.NewMinimalDeleteEvent(event.OrgID, event.InventoryID, event.Timestamp))
		if err := s.apply(ctx, changes); err != nil {
			return nil, err
		}
		return &Result{Events: changes.events}, nil
	}

	raw, err := s.source.FindHostByInventoryID(ctx, event.OrgID, event.InventoryID)
	switch {
	case errors.Is(err, inventory.ErrHostNotFound):
		s.log.Warn("deleted host missing from inventory",
			zap.String("org_id", event.OrgID),
			zap.String("inventory_id", event.InventoryID),
		)
		changes.events = append(changes.events, events.NewMinimalDeleteEvent(event.OrgID, event.InventoryID, event.Timestamp))
	case err != nil:
		return nil, err
	default:
		// Enrich the delete event from the host's state as it stands,
		// before the relationship row disappears.
		facts, err := s.facts.Normalize(ctx, *raw, s.relationships)
		if err != nil {
			return nil, err
		}
		measurements := s.normalizeMeasurements(facts, *raw)
		changes.events = append(changes.events, events.NewEvent(events.EventInstanceDeleted, facts, measurements, event.Timestamp))
	}

	overlay := newOverlayResolver(s.relationships)
	overlay.markDeleted(*rel)

	if err := s.demoteMappedGuests(ctx, *rel, event.Timestamp, overlay, changes); err != nil {
		return nil, err
	}
	if rel.IsGuest() {
		if err := s.recomputeHypervisor(ctx, rel.OrgID, rel.HypervisorUUID, rel.SubscriptionManagerID, event.Timestamp, overlay, changes); err != nil {
			return nil, err
		}
	}
	changes.deletes = append(changes.deletes, *rel)

	if err := s.apply(ctx, changes); err != nil {
		return nil, err
	}
	return &Result{Events: changes.events}, nil
}

// demoteMappedGuests marks guests of a departing hypervisor unmapped and
// re-emits their usage.
func (s *Service) demoteMappedGuests(
	ctx context.Context,
	rel reldomain.HostRelationship,
	timestamp time.Time,
	overlay *overlayResolver,
	changes *changeSet,
) error {
	mapped, err := s.relationships.FindMappedGuests(ctx, rel.OrgID, rel.SubscriptionManagerID)
	if err != nil {
		return err
	}
	for _, guest := range mapped {
		if guest.SubscriptionManagerID == rel.SubscriptionManagerID {
			continue
		}
		raw, err := s.source.FindHostBySubscriptionManagerID(ctx, guest.OrgID, guest.SubscriptionManagerID)
		if errors.Is(err, inventory.ErrHostNotFound) {
			s.log.Warn("guest missing from inventory during demotion",
				zap.String("org_id", guest.OrgID),
				zap.String("subscription_manager_id", guest.SubscriptionManagerID),
			)
			continue
		}
		if err != nil {
			return err
		}

		demoted := guest
		demoted.UnmappedGuest = true
		changes.upserts = append(changes.upserts, demoted)
		overlay.markUpserted(&guest, demoted)

		guestFacts, err := s.facts.Normalize(ctx, *raw, overlay)
		if err != nil {
			return err
		}
		guestMeasurements := s.normalizeMeasurements(guestFacts, *raw)
		changes.events = append(changes.events, events.NewEvent(events.EventInstanceUpdated, guestFacts, guestMeasurements, timestamp))
		s.metrics.IncCascade("guest")
	}
	return nil
}

func (s *Service) normalizeMeasurements(facts normalizer.NormalizedFacts, host inventory.RawHost) normalizer.NormalizedMeasurements {
	var subman *inventory.SubscriptionManagerFacts
	if submanFacts, ok := host.SubscriptionManagerFacts(); ok {
		subman = &submanFacts
	}
	return s.measurements.Normalize(facts, host.SystemProfile, subman)
}

// skipReason returns the first matching skip predicate, or empty when the
// event should be processed.
func (s *Service) skipReason(host inventory.RawHost) string {
	if host.StaleTimestamp != "" {
		if stale, err := time.Parse(time.RFC3339, host.StaleTimestamp); err == nil {
			if s.clock.Now().After(stale.Add(s.cfg.CullingOffset)) {
				return SkipReasonCulled
			}
		}
	}
	if host.SystemProfile.HostType == hostTypeEdge {
		return SkipReasonEdge
	}
	if host.SystemProfile.BillingModel == billingModelMarketplace {
		return SkipReasonMarketplace
	}
	if subman, ok := host.SubscriptionManagerFacts(); ok && subman.BillingModel == billingModelMarketplace {
		return SkipReasonMarketplace
	}
	return ""
}

// apply commits buffered mutations and events atomically.
func (s *Service) apply(ctx context.Context, changes *changeSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rel := range changes.upserts {
			if err := s.relationships.UpsertTx(ctx, tx, rel); err != nil {
				return err
			}
		}
		for _, rel := range changes.deletes {
			if err := s.relationships.DeleteTx(ctx, tx, rel); err != nil {
				return err
			}
		}
		for _, event := range changes.events {
			if err := s.outbox.PublishTx(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}
