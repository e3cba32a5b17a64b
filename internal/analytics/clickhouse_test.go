package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/bannerrotator/internal/observability"
)

func TestRecordEvent_Unavailable(t *testing.T) {
	var a *Analytics
	assert.ErrorIs(t, a.RecordEvent(context.Background(), Event{Type: EventView}), ErrUnavailable)
	assert.ErrorIs(t, (&Analytics{}).RecordEvent(context.Background(), Event{}), ErrUnavailable)
}

func TestRecordEvent_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	place := 3
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO banner_events").
		WithArgs("evt-1", ts, EventClick, int32(7), nil, int32(3), "sess", "mobile", nil, uint8(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &Analytics{DB: db, Metrics: observability.NewNoOpRegistry()}
	err = a.RecordEvent(context.Background(), Event{
		ID: "evt-1", Timestamp: ts, Type: EventClick, BannerID: 7,
		PlaceID: &place, SessionID: "sess", DeviceType: "mobile", IsBot: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvent_InsertErrorCountsMetric(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO banner_events").WillReturnError(errors.New("boom"))

	metrics := observability.NewMockMetricsRegistry()
	a := &Analytics{DB: db, Metrics: metrics}
	err = a.RecordEvent(context.Background(), Event{Type: EventView, BannerID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert view event")
	assert.Equal(t, 1, metrics.EventPersistErrors)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS banner_events").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, (&Analytics{DB: db}).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockAnalytics(t *testing.T) {
	m := NewMockAnalytics()
	require.NoError(t, m.RecordEvent(context.Background(), Event{Type: EventView, BannerID: 2}))
	m.Err = errors.New("down")
	assert.Error(t, m.RecordEvent(context.Background(), Event{Type: EventView}))
	assert.Len(t, m.Events(), 1)
}

func TestEventsByBanner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"event_id", "timestamp", "event_type", "banner_id", "campaign_id", "place_id", "session_id", "device_type", "country", "is_bot"}).
		AddRow("evt-2", ts, EventClick, int32(7), int32(2), nil, "sess", "desktop", "DE", uint8(0)).
		AddRow("evt-1", ts.Add(-time.Minute), EventView, int32(7), nil, int32(3), "", nil, nil, uint8(1))
	mock.ExpectQuery("SELECT (.+) FROM banner_events WHERE banner_id").
		WithArgs(int32(7), 20).
		WillReturnRows(rows)

	a := &Analytics{DB: db}
	events, err := a.EventsByBanner(context.Background(), 7, 20)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-2", events[0].ID)
	require.NotNil(t, events[0].CampaignID)
	assert.Equal(t, 2, *events[0].CampaignID)
	assert.Nil(t, events[0].PlaceID)
	assert.Equal(t, "DE", events[0].Country)
	assert.False(t, events[0].IsBot)

	require.NotNil(t, events[1].PlaceID)
	assert.Equal(t, 3, *events[1].PlaceID)
	assert.Empty(t, events[1].DeviceType)
	assert.True(t, events[1].IsBot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventsByBanner_Unavailable(t *testing.T) {
	var a *Analytics
	_, err := a.EventsByBanner(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}
