package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache はRedisを使用したキャッシュ実装。
// 複数インスタンス構成で共有キャッシュが必要な場合に使用する。
// キーは "<namespace>:<key>" 形式で格納し、名前空間の破棄はSCAN＋DELで行う。
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache はredis URLからRedisCacheを生成する。
// URLの形式は "redis://[:password@]host:port[/db]"。
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Ping はRedisへの接続を確認する。
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close はRedis接続を閉じる。
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get は指定キーの値を返す。存在しない場合はok=falseを返す。
func (c *RedisCache) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, namespacedKey(namespace, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}

// Set は指定キーに値をTTL付きで格納する。
func (c *RedisCache) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, namespacedKey(namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// EvictNamespace は名前空間内の全エントリを破棄する。
// SCANでキーを列挙しながら削除するため、KEYSのような全体ブロックは発生しない。
func (c *RedisCache) EvictNamespace(ctx context.Context, namespace string) error {
	pattern := namespace + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return nil
}

// namespacedKey は名前空間付きのRedisキーを構築する。
func namespacedKey(namespace, key string) string {
	return namespace + ":" + key
}

// compile-time interface check
var _ Cache = (*RedisCache)(nil)
