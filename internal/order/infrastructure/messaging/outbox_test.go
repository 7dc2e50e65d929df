package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate(&OutboxMessage{}))
	return database.DB
}

func load(t *testing.T, gdb *gorm.DB) []OutboxMessage {
	t.Helper()
	var msgs []OutboxMessage
	require.NoError(t, gdb.Order("created_at ASC").Find(&msgs).Error)
	return msgs
}

func TestRelayDeliversPendingMessages(t *testing.T) {
	gdb := newDB(t)
	require.NoError(t, Append(gdb, "OrderCreated", "ORD-1", map[string]string{"order_number": "ORD-1"}))
	require.NoError(t, Append(gdb, "OrderCreated", "ORD-2", map[string]string{"order_number": "ORD-2"}))

	var got []string
	local := NewLocalDispatcher()
	local.Handle("OrderCreated", func(_ context.Context, payload []byte) error {
		got = append(got, string(payload))
		return nil
	})

	relay := NewOutboxRelay(gdb, local, RelayConfig{MaxAttempts: 3}, nil)
	sent, err := relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, got, 2)
	assert.Contains(t, got, `{"order_number":"ORD-1"}`)

	for _, m := range load(t, gdb) {
		assert.Equal(t, StatusSent, m.Status)
	}

	// 已投递的消息不会重复投递
	sent, err = relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, got, 2)
}

func TestRelayRetriesThenFails(t *testing.T) {
	gdb := newDB(t)
	require.NoError(t, Append(gdb, "OrderCreated", "ORD-1", map[string]string{}))

	calls := 0
	relay := NewOutboxRelay(gdb, DispatcherFunc(func(context.Context, *OutboxMessage) error {
		calls++
		return errors.New("broker down")
	}), RelayConfig{MaxAttempts: 2}, nil)

	_, err := relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	msgs := load(t, gdb)
	assert.Equal(t, StatusPending, msgs[0].Status)
	assert.Equal(t, 1, msgs[0].Attempts)
	assert.Equal(t, "broker down", msgs[0].LastError)

	_, err = relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	msgs = load(t, gdb)
	assert.Equal(t, StatusFailed, msgs[0].Status)
	assert.Equal(t, 2, msgs[0].Attempts)

	_, err = relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRelayBacksOffBeforeRetrying(t *testing.T) {
	gdb := newDB(t)
	require.NoError(t, Append(gdb, "OrderCreated", "ORD-1", map[string]string{}))

	calls := 0
	healthy := false
	relay := NewOutboxRelay(gdb, DispatcherFunc(func(context.Context, *OutboxMessage) error {
		calls++
		if !healthy {
			return errors.New("broker down")
		}
		return nil
	}), RelayConfig{MaxAttempts: 5, RetryBackoff: time.Hour, MaxBackoff: 2 * time.Hour}, nil)

	_, err := relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	msgs := load(t, gdb)
	require.NotNil(t, msgs[0].NextAttemptAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *msgs[0].NextAttemptAt, time.Minute)

	// 退避期内不再投递
	sent, err := relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, calls)

	require.NoError(t, gdb.Model(&OutboxMessage{}).Where("id = ?", msgs[0].ID).
		UpdateColumn("next_attempt_at", time.Now().Add(-time.Second)).Error)
	healthy = true

	sent, err = relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, calls)
	assert.Equal(t, StatusSent, load(t, gdb)[0].Status)
}

func TestLocalDispatcherUnknownEvent(t *testing.T) {
	err := NewLocalDispatcher().Dispatch(context.Background(), &OutboxMessage{EventType: "Nope"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

type recordingPublisher struct {
	topic, key string
	payload    []byte
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.topic, p.key, p.payload = topic, key, payload
	return nil
}

func TestKafkaDispatcherRoutesByEventType(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewKafkaDispatcher(pub, map[string]string{"OrderCreated": "exchange.order.created"})

	require.NoError(t, d.Dispatch(context.Background(), &OutboxMessage{EventType: "OrderCreated", Key: "ORD-9", Payload: `{}`}))
	assert.Equal(t, "exchange.order.created", pub.topic)
	assert.Equal(t, "ORD-9", pub.key)
	assert.Equal(t, []byte(`{}`), pub.payload)

	assert.ErrorIs(t, d.Dispatch(context.Background(), &OutboxMessage{EventType: "Other"}), ErrUnknownEvent)
}

func TestCleanupRemovesOldSentMessages(t *testing.T) {
	gdb := newDB(t)
	require.NoError(t, Append(gdb, "OrderCreated", "old", map[string]string{}))
	require.NoError(t, Append(gdb, "OrderCreated", "pending", map[string]string{}))

	old := time.Now().Add(-96 * time.Hour)
	require.NoError(t, gdb.Model(&OutboxMessage{}).Where("message_key = ?", "old").
		UpdateColumns(map[string]any{"status": StatusSent, "updated_at": old}).Error)

	relay := NewOutboxRelay(gdb, NewLocalDispatcher(), RelayConfig{}, nil)
	require.NoError(t, relay.Cleanup(context.Background(), time.Now().Add(-72*time.Hour)))

	msgs := load(t, gdb)
	require.Len(t, msgs, 1)
	assert.Equal(t, "pending", msgs[0].Key)
}

func TestRunStopsOnCancel(t *testing.T) {
	gdb := newDB(t)
	relay := NewOutboxRelay(gdb, NewLocalDispatcher(), RelayConfig{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
