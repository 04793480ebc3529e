package repository

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS host_relationships (
			org_id TEXT NOT NULL,
			subscription_manager_id TEXT NOT NULL,
			inventory_id TEXT NOT NULL,
			hypervisor_uuid TEXT NOT NULL DEFAULT '',
			unmapped_guest BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (org_id, subscription_manager_id)
		)`,
	).Error; err != nil {
		t.Fatalf("create host_relationships: %v", err)
	}
	return db
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo := New(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	rel := domain.HostRelationship{
		OrgID:                 "org1",
		SubscriptionManagerID: "subman-1",
		InventoryID:           "inv-1",
		HypervisorUUID:        "hyp-1",
		UnmappedGuest:         true,
	}
	if err := repo.Upsert(ctx, rel); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	rel.UnmappedGuest = false
	if err := repo.Upsert(ctx, rel); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stored, err := repo.FindByOrgAndSubscriptionManagerID(ctx, "org1", "subman-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected relationship")
	}
	if stored.UnmappedGuest {
		t.Fatalf("expected unmapped flag updated to false")
	}

	var count int64
	if err := repo.db.Model(&domain.HostRelationship{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single row, got %d", count)
	}
}

func TestLookupMissReturnsNil(t *testing.T) {
	repo := New(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	rel, err := repo.FindByOrgAndSubscriptionManagerID(ctx, "org1", "missing")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rel != nil {
		t.Fatalf("expected nil on miss")
	}

	rel, err = repo.FindByOrgAndInventoryID(ctx, "org1", "missing")
	if err != nil {
		t.Fatalf("find by inventory: %v", err)
	}
	if rel != nil {
		t.Fatalf("expected nil on inventory miss")
	}
}

func TestGuestCountAndGuestQueries(t *testing.T) {
	repo := New(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	rows := []domain.HostRelationship{
		{OrgID: "org1", SubscriptionManagerID: "guest-1", InventoryID: "inv-g1", HypervisorUUID: "hyp-1", UnmappedGuest: true},
		{OrgID: "org1", SubscriptionManagerID: "guest-2", InventoryID: "inv-g2", HypervisorUUID: "hyp-1", UnmappedGuest: false},
		{OrgID: "org1", SubscriptionManagerID: "other", InventoryID: "inv-o", HypervisorUUID: "hyp-2"},
		{OrgID: "org2", SubscriptionManagerID: "guest-3", InventoryID: "inv-g3", HypervisorUUID: "hyp-1"},
	}
	for _, row := range rows {
		if err := repo.Upsert(ctx, row); err != nil {
			t.Fatalf("upsert %s: %v", row.SubscriptionManagerID, err)
		}
	}

	count, err := repo.GuestCount(ctx, "org1", "hyp-1")
	if err != nil {
		t.Fatalf("guest count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 guests, got %d", count)
	}

	unmapped, err := repo.FindUnmappedGuests(ctx, "org1", "hyp-1")
	if err != nil {
		t.Fatalf("unmapped guests: %v", err)
	}
	if len(unmapped) != 1 || unmapped[0].SubscriptionManagerID != "guest-1" {
		t.Fatalf("unexpected unmapped guests: %v", unmapped)
	}

	mapped, err := repo.FindMappedGuests(ctx, "org1", "hyp-1")
	if err != nil {
		t.Fatalf("mapped guests: %v", err)
	}
	if len(mapped) != 1 || mapped[0].SubscriptionManagerID != "guest-2" {
		t.Fatalf("unexpected mapped guests: %v", mapped)
	}
}

func TestHypervisorKnown(t *testing.T) {
	repo := New(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	known, err := repo.HypervisorKnown(ctx, "org1", "hyp-1")
	if err != nil {
		t.Fatalf("hypervisor known: %v", err)
	}
	if known {
		t.Fatalf("expected unknown hypervisor")
	}

	if err := repo.Upsert(ctx, domain.HostRelationship{
		OrgID:                 "org1",
		SubscriptionManagerID: "hyp-1",
		InventoryID:           "inv-h1",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	known, err = repo.HypervisorKnown(ctx, "org1", "hyp-1")
	if err != nil {
		t.Fatalf("hypervisor known: %v", err)
	}
	if !known {
		t.Fatalf("expected known hypervisor")
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	repo := New(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	rel := domain.HostRelationship{OrgID: "org1", SubscriptionManagerID: "subman-1", InventoryID: "inv-1"}
	if err := repo.Upsert(ctx, rel); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(ctx, rel); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored, err := repo.FindByOrgAndSubscriptionManagerID(ctx, "org1", "subman-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected row removed")
	}
}
