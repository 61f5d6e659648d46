package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"ragchat/internal/model"
)

// HistoryCache keeps a copy of each owner's chat turns in redis.
//
// Every write to an owner's history goes through Invalidate, which drops
// the cached list and sets a short-lived dirty marker. While the marker is
// set, Lookup misses and Fill is a no-op, so a reader that loaded the list
// before the write cannot put it back.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	dirtyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, ttl, dirtyTTL time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl, dirtyTTL: dirtyTTL}
}

// Lookup returns the cached turns. It misses when nothing is cached or the
// owner's history is being rewritten.
func (c *HistoryCache) Lookup(ctx context.Context, ownerID uint) ([]model.ChatTurn, bool, error) {
	var (
		dirty *redisv9.IntCmd
		raw   *redisv9.StringCmd
	)
	_, err := c.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		dirty = pipe.Exists(ctx, dirtyKey(ownerID))
		raw = pipe.Get(ctx, historyKey(ownerID))
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, false, fmt.Errorf("redis lookup history failed: %w", err)
	}
	if dirty.Val() > 0 || errors.Is(raw.Err(), redisv9.Nil) {
		return nil, false, nil
	}

	var turns []model.ChatTurn
	if err := json.Unmarshal([]byte(raw.Val()), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return turns, true, nil
}

// Fill caches turns unless the dirty marker is set. The marker is watched,
// so an Invalidate racing with Fill always wins.
func (c *HistoryCache) Fill(ctx context.Context, ownerID uint, turns []model.ChatTurn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}

	marker := dirtyKey(ownerID)
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		n, err := tx.Exists(ctx, marker).Result()
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, historyKey(ownerID), payload, c.ttl)
			return nil
		})
		return err
	}, marker)
	if errors.Is(err, redisv9.TxFailedErr) {
		// marker changed under us; the history is stale
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis fill history failed: %w", err)
	}
	return nil
}

// Invalidate sets the dirty marker and drops the cached turns in one
// transaction.
func (c *HistoryCache) Invalidate(ctx context.Context, ownerID uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, dirtyKey(ownerID), "1", c.dirtyTTL)
		pipe.Del(ctx, historyKey(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func historyKey(ownerID uint) string {
	return fmt.Sprintf("ragchat:history:owner:%d", ownerID)
}

func dirtyKey(ownerID uint) string {
	return fmt.Sprintf("ragchat:history:dirty:owner:%d", ownerID)
}
