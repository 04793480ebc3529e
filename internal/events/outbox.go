package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HostEventRow is the persisted outbox form of a normalized event.
type HostEventRow struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	OrgID      string            `gorm:"not null"`
	InstanceID string            `gorm:"not null"`
	EventType  string            `gorm:"not null"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey  string            `gorm:"type:text;not null"`
	Published  bool              `gorm:"not null;default:false"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HostEventRow) TableName() string { return "host_events" }

// Outbox stores normalized events in the host_events table so they commit
// atomically with relationship mutations.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event NormalizedEvent) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event NormalizedEvent) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event NormalizedEvent) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.OrgID == "" {
		return errors.New("invalid_org_id")
	}
	if event.EventType == "" {
		return errors.New("missing_event_type")
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}
	payload := datatypes.JSONMap{}
	if err := json.Unmarshal(encoded, (*map[string]any)(&payload)); err != nil {
		return err
	}

	row := HostEventRow{
		ID:         o.genID.Generate(),
		OrgID:      event.OrgID,
		InstanceID: event.InstanceID,
		EventType:  event.EventType,
		Payload:    payload,
		DedupeKey:  event.DedupeKey(),
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(&row).Error
}
