package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "devices:"

// Record is the last-known-state document kept per device. It mirrors the
// most recently accepted event; LastTimestamp is the transport receipt time,
// never a device-supplied value.
type Record struct {
	Humidity      float64   `json:"humidity"`
	PumpActive    bool      `json:"pumpActive"`
	LightActive   bool      `json:"lightActive"`
	LastTimestamp time.Time `json:"lastTimestamp"`
}

// NewClient creates a new Redis client for the current-state store
func NewClient(lc fx.Lifecycle, logger *zap.Logger, addr, password string) (*redis.Client, error) {
	logger.Info("initializing current-state store client")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("attempting to connect to redis...")
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Error("redis ping failed", zap.Error(err), zap.String("addr", addr))
				return fmt.Errorf("[REDIS CONNECTION FAILED] cannot reach current-state store. Please check: 1) Redis is running, 2) REDIS_ADDR is correct. Error: %w", err)
			}
			logger.Info("redis connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", zap.Error(err))
				return err
			}
			logger.Info("redis connection closed")
			return nil
		},
	})

	return client, nil
}

// Store maintains one document per device, keyed by device id
type Store struct {
	client *redis.Client
}

// NewStore creates a new current-state store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Key returns the store key for a device id
func Key(deviceID string) string {
	return keyPrefix + deviceID
}

// Upsert replaces the whole document for the device. The write is a full
// overwrite, never a merge, so last writer wins under concurrent or
// redelivered events. Records have no TTL and are never deleted here.
func (s *Store) Upsert(ctx context.Context, deviceID string, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal state record: %w", err)
	}

	if err := s.client.Set(ctx, Key(deviceID), doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to upsert state for device %s: %w", deviceID, err)
	}

	return nil
}

// Get returns the current record for a device, or nil when the device has
// never produced an accepted event.
func (s *Store) Get(ctx context.Context, deviceID string) (*Record, error) {
	doc, err := s.client.Get(ctx, Key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state for device %s: %w", deviceID, err)
	}

	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state record: %w", err)
	}

	return &rec, nil
}
