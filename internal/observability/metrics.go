package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "folio_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of active engagement WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "folio_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EngagementEvents counts published engagement events by type.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_engagement_events_total",
		Help: "Engagement events published for realtime fan-out",
	}, []string{"event_type"})

	// ModerationTransitions counts applied moderation actions.
	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_moderation_transitions_total",
		Help: "Moderation actions applied, by content kind, action and resulting status",
	}, []string{"kind", "action", "status"})

	// LikeToggleRetries counts like toggles that raced and were retried.
	LikeToggleRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_like_toggle_retries_total",
		Help: "Like toggles retried after a concurrent insert",
	}, []string{"kind"})

	// SelectionLockFallbacks counts selection toggles that ran without the Redis lock.
	SelectionLockFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_selection_lock_fallbacks_total",
		Help: "Selection toggles serialized by row lock instead of Redis",
	}, []string{"reason"})
)

const startTimeKey = "observability:start"

// InstrumentGORM registers callbacks recording the latency of every GORM
// statement into DatabaseQueryLatency.
func InstrumentGORM(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startTimeKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("observability:before_create", before),
		cb.Create().After("gorm:create").Register("observability:after_create", after("create")),
		cb.Query().Before("gorm:query").Register("observability:before_query", before),
		cb.Query().After("gorm:query").Register("observability:after_query", after("query")),
		cb.Update().Before("gorm:update").Register("observability:before_update", before),
		cb.Update().After("gorm:update").Register("observability:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("observability:before_delete", before),
		cb.Delete().After("gorm:delete").Register("observability:after_delete", after("delete")),
		cb.Raw().Before("gorm:raw").Register("observability:before_raw", before),
		cb.Raw().After("gorm:raw").Register("observability:after_raw", after("raw")),
		cb.Row().Before("gorm:row").Register("observability:before_row", before),
		cb.Row().After("gorm:row").Register("observability:after_row", after("row")),
	)
}
