// Package domain defines the persisted hypervisor/guest relationship graph
// and its store contract.
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// HostRelationship is one edge of the hypervisor/guest graph, keyed by
// (org id, subscription-manager id). A row with an empty hypervisor uuid is
// not a guest but may itself be referenced as a hypervisor by other rows.
type HostRelationship struct {
	OrgID                 string    `gorm:"primaryKey;column:org_id"`
	SubscriptionManagerID string    `gorm:"primaryKey;column:subscription_manager_id"`
	InventoryID           string    `gorm:"not null"`
	HypervisorUUID        string    `gorm:"not null;default:''"`
	UnmappedGuest         bool      `gorm:"not null;default:false"`
	CreatedAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HostRelationship) TableName() string { return "host_relationships" }

// IsGuest reports whether the host reports a virtualization parent.
func (r HostRelationship) IsGuest() bool { return r.HypervisorUUID != "" }

// IsMappedGuest reports whether the host's hypervisor has been observed.
func (r HostRelationship) IsMappedGuest() bool { return r.IsGuest() && !r.UnmappedGuest }

// Repository is the relationship store contract. Lookups return (nil, nil)
// on a miss; writes are idempotent upserts keyed by
// (org id, subscription-manager id).
type Repository interface {
	Resolver

	FindByOrgAndSubscriptionManagerID(ctx context.Context, orgID, subscriptionManagerID string) (*HostRelationship, error)
	FindByOrgAndInventoryID(ctx context.Context, orgID, inventoryID string) (*HostRelationship, error)
	FindMappedGuests(ctx context.Context, orgID, hypervisorUUID string) ([]HostRelationship, error)
	FindUnmappedGuests(ctx context.Context, orgID, hypervisorUUID string) ([]HostRelationship, error)

	Upsert(ctx context.Context, rel HostRelationship) error
	UpsertTx(ctx context.Context, tx *gorm.DB, rel HostRelationship) error
	Delete(ctx context.Context, rel HostRelationship) error
	DeleteTx(ctx context.Context, tx *gorm.DB, rel HostRelationship) error
}

// Resolver is the read-only slice of the store consumed by fact
// normalization.
type Resolver interface {
	// GuestCount returns how many relationship rows name the given
	// subscription-manager id as their hypervisor, mapped or not.
	GuestCount(ctx context.Context, orgID, subscriptionManagerID string) (int64, error)

	// HypervisorKnown reports whether a relationship row exists for the
	// given hypervisor uuid, i.e. the hypervisor itself has been observed.
	HypervisorKnown(ctx context.Context, orgID, hypervisorUUID string) (bool, error)
}
