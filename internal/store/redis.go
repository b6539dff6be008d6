package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetfuel/sentinel/internal/model"
)

// alertCooldown suppresses repeat notifications for the same
// vehicle/detector pair between evaluation passes
const alertCooldown = 30 * time.Minute

// RedisStore handles cross-process alert deduplication and pub/sub fan-out
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a Redis client and verifies it with a ping
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// CheckAlertCooldown reports whether the vehicle/type pair is still inside
// its notification cooldown window
func (r *RedisStore) CheckAlertCooldown(ctx context.Context, vehicleID string, alertType model.AlertType) (bool, error) {
	key := fmt.Sprintf("alert:%s:%s", vehicleID, string(alertType))
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown check failed: %w", err)
	}
	return count > 0, nil
}

// SetAlertCooldown marks the vehicle/type pair as recently notified
func (r *RedisStore) SetAlertCooldown(ctx context.Context, vehicleID string, alertType model.AlertType) error {
	key := fmt.Sprintf("alert:%s:%s", vehicleID, string(alertType))
	return r.client.Set(ctx, key, "1", alertCooldown).Err()
}

// PublishAlert fans an alert out to the site's subscribers (dashboards,
// notification workers)
func (r *RedisStore) PublishAlert(ctx context.Context, siteID string, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	channel := fmt.Sprintf("site:%s:alerts", siteID)
	return r.client.Publish(ctx, channel, payload).Err()
}
