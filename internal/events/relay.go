package events

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/config"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/metrics"
)

// Sink receives published events. The production sink is the outbound
// transport adapter; tests and local development use the logging sink.
type Sink interface {
	Deliver(ctx context.Context, row HostEventRow) error
}

// LoggingSink writes delivered events to the service log.
type LoggingSink struct {
	log *zap.Logger
}

func NewLoggingSink(log *zap.Logger) *LoggingSink {
	return &LoggingSink{log: log.Named("events.sink")}
}

func (s *LoggingSink) Deliver(_ context.Context, row HostEventRow) error {
	s.log.Info("delivering host event",
		zap.String("org_id", row.OrgID),
		zap.String("instance_id", row.InstanceID),
		zap.String("event_type", row.EventType),
	)
	return nil
}

// Relay drains the outbox into the sink.
type Relay struct {
	db      *gorm.DB
	sink    Sink
	log     *zap.Logger
	metrics *metrics.IngestMetrics
	cfg     config.RelayConfig
}

func NewRelay(db *gorm.DB, sink Sink, log *zap.Logger, m *metrics.IngestMetrics, cfg config.Config) *Relay {
	return &Relay{
		db:      db,
		sink:    sink,
		log:     log.Named("events.relay"),
		metrics: m,
		cfg:     cfg.Relay,
	}
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("relay run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch of unpublished events in commit order.
func (r *Relay) RunOnce(ctx context.Context) error {
	var rows []HostEventRow
	err := r.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at").
		Limit(r.cfg.BatchSize).
		Find(&rows).Error
	if err != nil {
		return err
	}

	published := 0
	for _, row := range rows {
		if err := r.sink.Deliver(ctx, row); err != nil {
			r.log.Warn("event delivery failed",
				zap.String("instance_id", row.InstanceID),
				zap.Error(err),
			)
			break
		}
		if err := r.db.WithContext(ctx).
			Model(&HostEventRow{}).
			Where("id = ?", row.ID).
			Update("published", true).Error; err != nil {
			return err
		}
		published++
	}
	r.metrics.AddRelayed(published)

	var backlog int64
	if err := r.db.WithContext(ctx).
		Model(&HostEventRow{}).
		Where("published = ?", false).
		Count(&backlog).Error; err == nil {
		r.metrics.SetRelayBacklog(backlog)
	}
	return nil
}
