package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"assistance_alerts/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

// AcknowledgementRepository stores the acknowledgement set as one JSON value
// under a fixed key, with no expiry.
type AcknowledgementRepository struct {
	client redis.Cmdable
	key    string
}

func NewAcknowledgementRepository(client redis.Cmdable, key string) *AcknowledgementRepository {
	if key == "" {
		key = notification.DefaultAcknowledgementKey
	}
	return &AcknowledgementRepository{client: client, key: key}
}

// Load returns an empty set when the key does not exist.
func (r *AcknowledgementRepository) Load(ctx context.Context) (*notification.AcknowledgementSet, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notification.NewAcknowledgementSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	var rec notification.AcknowledgementRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return rec.Set(), nil
}

func (r *AcknowledgementRepository) Save(ctx context.Context, set *notification.AcknowledgementSet) error {
	raw, err := json.Marshal(set.Record())
	if err != nil {
		return fmt.Errorf("encode acknowledgements: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}
