package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quizhost-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// GameLoader fetches game content from a backing store (e.g., Postgres).
type GameLoader interface {
	LoadGame(ctx context.Context, gameID string) (domain.Game, error)
}

// GameCatalog caches full game JSON in Redis and falls back to a loader on
// cache miss. The engine snapshots complete question content at session
// start, so the cache stores games whole:
//
//	SET game:{gameID}:content {json} EX ttl
type GameCatalog struct {
	client *redis.Client
	loader GameLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewGameCatalog(client *redis.Client, loader GameLoader, ttl time.Duration) *GameCatalog {
	return &GameCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *GameCatalog) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	key := c.contentKey(gameID)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var game domain.Game
		if err := json.Unmarshal(data, &game); err == nil {
			return game, nil
		}
	}

	result, err, _ := c.sf.Do(gameID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var game domain.Game
			if err := json.Unmarshal(data, &game); err == nil {
				return game, nil
			}
		}

		game, err := c.loader.LoadGame(ctx, gameID)
		if err != nil {
			return domain.Game{}, err
		}

		if data, err := json.Marshal(game); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return game, nil
	})
	if err != nil {
		return domain.Game{}, err
	}
	return result.(domain.Game), nil
}

func (c *GameCatalog) contentKey(gameID string) string {
	return "game:" + gameID + ":content"
}

func (c *GameCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
