package ingest

import (
	"context"

	reldomain "github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
)

// overlayResolver layers buffered relationship mutations over the persisted
// store, so cascading recomputation observes the state the transaction will
// commit without mutating the store mid-event.
type overlayResolver struct {
	base reldomain.Resolver

	// known overrides HypervisorKnown per (org, subscription-manager id).
	known map[string]bool

	// guestDelta adjusts GuestCount per (org, hypervisor uuid).
	guestDelta map[string]int64
}

func newOverlayResolver(base reldomain.Resolver) *overlayResolver {
	return &overlayResolver{
		base:       base,
		known:      map[string]bool{},
		guestDelta: map[string]int64{},
	}
}

func overlayKey(orgID, id string) string { return orgID + "|" + id }

// markUpserted records a buffered upsert. prev is the persisted row being
// replaced, nil when the upsert creates the relationship.
func (o *overlayResolver) markUpserted(prev *reldomain.HostRelationship, next reldomain.HostRelationship) {
	o.known[overlayKey(next.OrgID, next.SubscriptionManagerID)] = true

	prevHypervisor := ""
	if prev != nil {
		prevHypervisor = prev.HypervisorUUID
	}
	if prevHypervisor == next.HypervisorUUID {
		return
	}
	if prevHypervisor != "" {
		o.guestDelta[overlayKey(next.OrgID, prevHypervisor)]--
	}
	if next.HypervisorUUID != "" {
		o.guestDelta[overlayKey(next.OrgID, next.HypervisorUUID)]++
	}
}

// markDeleted records a buffered delete.
func (o *overlayResolver) markDeleted(rel reldomain.HostRelationship) {
	o.known[overlayKey(rel.OrgID, rel.SubscriptionManagerID)] = false
	if rel.HypervisorUUID != "" {
		o.guestDelta[overlayKey(rel.OrgID, rel.HypervisorUUID)]--
	}
}

func (o *overlayResolver) GuestCount(ctx context.Context, orgID, subscriptionManagerID string) (int64, error) {
	count, err := o.base.GuestCount(ctx, orgID, subscriptionManagerID)
	if err != nil {
		return 0, err
	}
	count += o.guestDelta[overlayKey(orgID, subscriptionManagerID)]
	if count < 0 {
		count = 0
	}
	return count, nil
}

func (o *overlayResolver) HypervisorKnown(ctx context.Context, orgID, hypervisorUUID string) (bool, error) {
	if known, ok := o.known[overlayKey(orgID, hypervisorUUID)]; ok {
		return known, nil
	}
	return o.base.HypervisorKnown(ctx, orgID, hypervisorUUID)
}
