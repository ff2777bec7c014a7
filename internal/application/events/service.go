package events

import (
	"context"
	"encoding/json"
	"errors"

	"fracshare-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Channel carries committed market events to the off-chain indexer.
const Channel = "events:market"

// Service records market events inside the caller's transaction and replays
// them to Redis once the transaction has committed. The DB row is the source
// of truth; a failed publish is logged and never fails the operation.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// EmitTx writes one event row on the caller's transaction and returns it so
// the caller can publish after commit.
func (s *Service) EmitTx(tx *gorm.DB, assetID uuid.UUID, eventType, actor string, refID *uuid.UUID, data map[string]interface{}) (*domain.MarketEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	ev := domain.MarketEvent{
		AssetID:      assetID,
		EventType:    eventType,
		ActorAddress: actor,
		RefID:        refID,
		EventData:    datatypes.JSON(payload),
	}
	if err := tx.Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// Publish pushes committed events to the Redis channel, best effort.
func (s *Service) Publish(ctx context.Context, evs ...*domain.MarketEvent) {
	if s.Rdb == nil {
		return
	}
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		b, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := s.Rdb.Publish(ctx, Channel, b).Err(); err != nil {
			log.Warn().Err(err).Str("event_type", ev.EventType).Str("event_id", ev.EventID.String()).Msg("event publish failed")
		}
	}
}

// AssetEvents lists all events for one asset in commit order.
func (s *Service) AssetEvents(ctx context.Context, assetID uuid.UUID) ([]domain.MarketEvent, error) {
	if assetID == uuid.Nil {
		return nil, errors.New("Asset ID is required")
	}
	var out []domain.MarketEvent
	err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).Order(`"createdAt" ASC`).Find(&out).Error
	return out, err
}

// ActorEvents lists all events an address triggered, in commit order.
func (s *Service) ActorEvents(ctx context.Context, actor string) ([]domain.MarketEvent, error) {
	if actor == "" {
		return nil, errors.New("Actor address is required")
	}
	var out []domain.MarketEvent
	err := s.DB.WithContext(ctx).Where("actor_address = ?", actor).Order(`"createdAt" ASC`).Find(&out).Error
	return out, err
}
