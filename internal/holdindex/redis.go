package holdindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultExpiryKey = "bustravel:holds:expiry"
	defaultTripKey   = "bustravel:holds:trip"
)

// Redis stores the index in a sorted set scored by expiry (unix millis), with
// a hash mapping hold id to trip id. It survives restarts and is shared by
// every instance pointing at the same Redis.
type Redis struct {
	client    redis.UniversalClient
	expiryKey string
	tripKey   string
}

var _ ExpiryIndex = (*Redis)(nil)

// NewRedis uses the default keys when prefix is empty.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	r := &Redis{client: client, expiryKey: defaultExpiryKey, tripKey: defaultTripKey}
	if prefix != "" {
		r.expiryKey = prefix + ":holds:expiry"
		r.tripKey = prefix + ":holds:trip"
	}
	return r
}

func (r *Redis) Add(ctx context.Context, e Entry) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, r.expiryKey, redis.Z{Score: float64(e.ExpiresAt.UnixMilli()), Member: e.HoldID})
		if e.TripID != "" {
			pipe.HSet(ctx, r.tripKey, e.HoldID, e.TripID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not index hold %s: %w", e.HoldID, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, holdID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.expiryKey, holdID)
		pipe.HDel(ctx, r.tripKey, holdID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not unindex hold %s: %w", holdID, err)
	}
	return nil
}

func (r *Redis) Due(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	by := &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(now.UnixMilli(), 10)}
	if limit > 0 {
		by.Count = int64(limit)
	}
	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.expiryKey, by).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read due holds: %w", err)
	}
	out := make([]Entry, 0, len(zs))
	if len(zs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		ids = append(ids, id)
		out = append(out, Entry{HoldID: id, ExpiresAt: time.UnixMilli(int64(z.Score))})
	}
	trips, err := r.client.HMGet(ctx, r.tripKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read hold trips: %w", err)
	}
	for i := range out {
		if i < len(trips) {
			if tripID, ok := trips[i].(string); ok {
				out[i].TripID = tripID
			}
		}
	}
	return out, nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.expiryKey).Result()
	if err != nil {
		return 0, fmt.Errorf("could not count indexed holds: %w", err)
	}
	return int(n), nil
}
