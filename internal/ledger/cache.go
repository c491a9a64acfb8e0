package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "ChainTip/internal/errors"
)

// BalanceCacheConfig describes the redis connection for the balance
// read cache.
type BalanceCacheConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// BalanceCache serves repeated balance reads (/balance, /deposit) from
// redis so chatty users do not hammer the node. The pre-transfer
// balance check never goes through here: that value must be
// point-in-time.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache connects to redis and verifies the connection.
func NewBalanceCache(cfg BalanceCacheConfig) (*BalanceCache, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "redis address cannot be empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "connect to redis")
	}
	return &BalanceCache{client: client, ttl: ttl}, nil
}

func balanceKey(address string) string {
	return "chaintip:balance:" + address
}

// Get returns the cached balance for the address, or (nil, false) on a
// miss. Cache errors degrade to a miss.
func (c *BalanceCache) Get(ctx context.Context, address string) (*big.Int, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	value, err := c.client.Get(ctx, balanceKey(address)).Result()
	if err != nil {
		return nil, false
	}
	wei, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, false
	}
	return wei, true
}

// Put stores the observed balance with the configured TTL.
func (c *BalanceCache) Put(ctx context.Context, address string, wei *big.Int) {
	if c == nil || c.client == nil || wei == nil {
		return
	}
	_ = c.client.Set(ctx, balanceKey(address), wei.String(), c.ttl).Err()
}

// Invalidate drops the cached balance, called after a transfer leaves
// the address.
func (c *BalanceCache) Invalidate(ctx context.Context, address string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, balanceKey(address)).Err()
}

// Close closes the redis connection.
func (c *BalanceCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
