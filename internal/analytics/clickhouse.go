package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/bannerrotator/internal/observability"
)

// Event types written to the banner_events table.
const (
	EventView  = "view"
	EventClick = "click"
)

// EventRecorder is implemented by anything that can persist banner events.
// Implementations return ErrUnavailable when no storage is configured.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev Event) error
}

// Event is a single view or click, enriched with the visitor's device and
// location for offline analysis.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"event_type"`
	BannerID   int       `json:"banner_id"`
	CampaignID *int      `json:"campaign_id,omitempty"`
	PlaceID    *int      `json:"place_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Country    string    `json:"country,omitempty"`
	IsBot      bool      `json:"is_bot"`
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB      *sql.DB
	Metrics observability.MetricsRegistry
}

var _ EventRecorder = (*Analytics)(nil)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

const createEventsTable = `CREATE TABLE IF NOT EXISTS banner_events (
    event_id    String,
    timestamp   DateTime,
    event_type  String,
    banner_id   Int32,
    campaign_id Nullable(Int32),
    place_id    Nullable(Int32),
    session_id  String,
    device_type Nullable(String),
    country     Nullable(String),
    is_bot      UInt8
) ENGINE=MergeTree() ORDER BY (event_type, banner_id, timestamp)`

const insertEvent = `INSERT INTO banner_events (event_id, timestamp, event_type, banner_id, campaign_id, place_id, session_id, device_type, country, is_bot) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InitClickHouse connects to ClickHouse and ensures the banner_events table exists.
func InitClickHouse(dsn string, metrics observability.MetricsRegistry) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	a := &Analytics{DB: db, Metrics: metrics}
	if err := a.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}

	zap.L().Info("Connected to ClickHouse")
	return a, nil
}

// EnsureSchema creates the events table when it does not exist.
func (a *Analytics) EnsureSchema(ctx context.Context) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if _, err := a.DB.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("clickhouse create table: %w", err)
	}
	return nil
}

// RecordEvent inserts a single event row.
func (a *Analytics) RecordEvent(ctx context.Context, ev Event) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	var cmp, place sql.NullInt32
	if ev.CampaignID != nil {
		cmp = sql.NullInt32{Int32: int32(*ev.CampaignID), Valid: true}
	}
	if ev.PlaceID != nil {
		place = sql.NullInt32{Int32: int32(*ev.PlaceID), Valid: true}
	}
	dt := sql.NullString{String: ev.DeviceType, Valid: ev.DeviceType != ""}
	co := sql.NullString{String: ev.Country, Valid: ev.Country != ""}
	var bot uint8
	if ev.IsBot {
		bot = 1
	}

	if _, err := a.DB.ExecContext(ctx, insertEvent, ev.ID, ev.Timestamp, ev.Type, int32(ev.BannerID), cmp, place, ev.SessionID, dt, co, bot); err != nil {
		zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("event_type", ev.Type))
		if a.Metrics != nil {
			a.Metrics.IncrementEventPersistErrors()
		}
		return fmt.Errorf("insert %s event: %w", ev.Type, err)
	}
	return nil
}

const selectEventsByBanner = `SELECT event_id, timestamp, event_type, banner_id, campaign_id, place_id, session_id, device_type, country, is_bot
FROM banner_events WHERE banner_id = ? ORDER BY timestamp DESC LIMIT ?`

// EventsByBanner returns the most recent events for a banner, newest first.
func (a *Analytics) EventsByBanner(ctx context.Context, bannerID, limit int) ([]Event, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	rows, err := a.DB.QueryContext(ctx, selectEventsByBanner, int32(bannerID), limit)
	if err != nil {
		return nil, fmt.Errorf("query events for banner %d: %w", bannerID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			ev          Event
			banner      int32
			cmp, place  sql.NullInt32
			device, cty sql.NullString
			bot         uint8
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Type, &banner, &cmp, &place, &ev.SessionID, &device, &cty, &bot); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.BannerID = int(banner)
		if cmp.Valid {
			v := int(cmp.Int32)
			ev.CampaignID = &v
		}
		if place.Valid {
			v := int(place.Int32)
			ev.PlaceID = &v
		}
		ev.DeviceType = device.String
		ev.Country = cty.String
		ev.IsBot = bot == 1
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close releases the underlying connection pool.
func (a *Analytics) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
