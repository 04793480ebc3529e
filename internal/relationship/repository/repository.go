// Package repository implements the relationship store on gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/relationship/domain"
)

type Repository struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.Named("relationship.repository"),
	}
}

func (r *Repository) FindByOrgAndSubscriptionManagerID(ctx context.Context, orgID, subscriptionManagerID string) (*domain.HostRelationship, error) {
	if subscriptionManagerID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "org_id = ? AND subscription_manager_id = ?", orgID, subscriptionManagerID)
}

func (r *Repository) FindByOrgAndInventoryID(ctx context.Context, orgID, inventoryID string) (*domain.HostRelationship, error) {
	if inventoryID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "org_id = ? AND inventory_id = ?", orgID, inventoryID)
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.HostRelationship, error) {
	var rel domain.HostRelationship
	err := r.db.WithContext(ctx).Where(query, args...).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *Repository) GuestCount(ctx context.Context, orgID, subscriptionManagerID string) (int64, error) {
	if subscriptionManagerID == "" {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.HostRelationship{}).
		Where("org_id = ? AND hypervisor_uuid = ?", orgID, subscriptionManagerID).
		Count(&count).Error
	return count, err
}

func (r *Repository) HypervisorKnown(ctx context.Context, orgID, hypervisorUUID string) (bool, error) {
	rel, err := r.FindByOrgAndSubscriptionManagerID(ctx, orgID, hypervisorUUID)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}

func (r *Repository) FindMappedGuests(ctx context.Context, orgID, hypervisorUUID string) ([]domain.HostRelationship, error) {
	return r.findGuests(ctx, orgID, hypervisorUUID, false)
}

func (r *Repository) FindUnmappedGuests(ctx context.Context, orgID, hypervisorUUID string) ([]domain.HostRelationship, error) {
	return r.findGuests(ctx, orgID, hypervisorUUID, true)
}

func (r *Repository) findGuests(ctx context.Context, orgID, hypervisorUUID string, unmapped bool) ([]domain.HostRelationship, error) {
	if hypervisorUUID == "" {
		return nil, nil
	}
	var guests []domain.HostRelationship
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND hypervisor_uuid = ? AND unmapped_guest = ?", orgID, hypervisorUUID, unmapped).
		Order("subscription_manager_id").
		Find(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *Repository) Upsert(ctx context.Context, rel domain.HostRelationship) error {
	return r.UpsertTx(ctx, r.db, rel)
}

func (r *Repository) UpsertTx(ctx context.Context, tx *gorm.DB, rel domain.HostRelationship) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	if rel.OrgID == "" || rel.SubscriptionManagerID == "" {
		return errors.New("invalid_relationship_key")
	}
	now := time.Now().UTC()
	rel.UpdatedAt = now
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = now
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "subscription_manager_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"inventory_id",
			"hypervisor_uuid",
			"unmapped_guest",
			"updated_at",
		}),
	}).Create(&rel).Error
}

func (r *Repository) Delete(ctx context.Context, rel domain.HostRelationship) error {
	return r.DeleteTx(ctx, r.db, rel)
}

func (r *Repository) DeleteTx(ctx context.Context, tx *gorm.DB, rel domain.HostRelationship) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return tx.WithContext(ctx).
		Where("org_id = ? AND subscription_manager_id = ?", rel.OrgID, rel.SubscriptionManagerID).
		Delete(&domain.HostRelationship{}).Error
}
