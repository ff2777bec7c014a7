package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"fracshare-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testAddr(n int) string {
	return fmt.Sprintf("%064x", n)
}

func setupEventsTest(t *testing.T) (*Service, *gorm.DB, *redis.Client) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.MarketEvent{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{DB: db, Rdb: rdb}, db, rdb
}

func TestEmitTx_WritesRow(t *testing.T) {
	svc, db, _ := setupEventsTest(t)
	assetID := uuid.New()
	refID := uuid.New()

	var ev *domain.MarketEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		ev, err = svc.EmitTx(tx, assetID, domain.EventListingCreated, testAddr(1), &refID, map[string]interface{}{
			"listing_id": refID,
			"units":      int64(500),
		})
		return err
	}))

	got, err := svc.AssetEvents(context.Background(), assetID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.EventID, got[0].EventID)
	assert.Equal(t, domain.EventListingCreated, got[0].EventType)
	assert.Equal(t, testAddr(1), got[0].ActorAddress)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(got[0].EventData, &payload))
	assert.Equal(t, float64(500), payload["units"])
}

func TestPublish_DeliversToChannel(t *testing.T) {
	svc, db, rdb := setupEventsTest(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, Channel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	assetID := uuid.New()
	var ev *domain.MarketEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		ev, err = svc.EmitTx(tx, assetID, domain.EventBidPlaced, testAddr(2), nil, map[string]interface{}{"escrow": int64(100)})
		return err
	}))
	svc.Publish(ctx, ev)

	select {
	case msg := <-sub.Channel():
		var got domain.MarketEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev.EventID, got.EventID)
		assert.Equal(t, domain.EventBidPlaced, got.EventType)
	case <-time.After(2 * time.Second):
		t.Fatal("no event on channel")
	}
}

func TestPublish_NilClientAndNilEvent(t *testing.T) {
	svc := &Service{}
	svc.Publish(context.Background(), nil) // must not panic

	svc2, db, _ := setupEventsTest(t)
	var ev *domain.MarketEvent
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		ev, err = svc2.EmitTx(tx, uuid.New(), domain.EventBidRefunded, testAddr(3), nil, nil)
		return err
	}))
	svc2.Publish(context.Background(), nil, ev)
}

func TestActorEvents_FiltersByActor(t *testing.T) {
	svc, db, _ := setupEventsTest(t)
	assetID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.EmitTx(tx, assetID, domain.EventListingCreated, testAddr(1), nil, nil); err != nil {
			return err
		}
		_, err := svc.EmitTx(tx, assetID, domain.EventBidPlaced, testAddr(2), nil, nil)
		return err
	}))

	got, err := svc.ActorEvents(context.Background(), testAddr(2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventBidPlaced, got[0].EventType)

	_, err = svc.ActorEvents(context.Background(), "")
	assert.Error(t, err)

	_, err = svc.AssetEvents(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
