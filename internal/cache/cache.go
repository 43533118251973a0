// Package cache は名前空間付きのレスポンスキャッシュを提供する。
// イベント一覧・詳細のキャッシュとログアウト済みトークンのブラックリストに使用する。
// イベントへの変更時は名前空間全体を破棄する。フィルタとページネーションの
// 組み合わせが多く、選択的な破棄は実用的でないため。
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache は名前空間＋キーで値を出し入れするキャッシュのインターフェース。
type Cache interface {
	// Get は指定キーの値を返す。存在しない・期限切れの場合はok=falseを返す。
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)

	// Set は指定キーに値をTTL付きで格納する。
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error

	// EvictNamespace は名前空間内の全エントリを破棄する。
	EvictNamespace(ctx context.Context, namespace string) error
}

// memoryEntry はインプロセスキャッシュの1エントリ。
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	storedAt  time.Time
}

// MemoryCache はプロセス内メモリのキャッシュ実装。
// 単一インスタンス構成を想定しており、インスタンス間のキャッシュ整合性は扱わない。
// エントリ数が上限を超えた場合は最も古いエントリから破棄する。
type MemoryCache struct {
	mu         sync.Mutex
	namespaces map[string]map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache はMemoryCacheを生成する。
// maxEntriesは名前空間ごとのエントリ数上限。0以下の場合は1000を使用する。
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		namespaces: make(map[string]map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get は指定キーの値を返す。期限切れエントリはこの時点で削除する。
func (c *MemoryCache) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		return nil, false, nil
	}
	entry, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(ns, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set は指定キーに値をTTL付きで格納する。
func (c *MemoryCache) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		c.namespaces[namespace] = ns
	}

	now := c.now()
	if _, exists := ns[key]; !exists && len(ns) >= c.maxEntries {
		c.evictOldest(ns)
	}

	ns[key] = memoryEntry{
		value:     value,
		expiresAt: now.Add(ttl),
		storedAt:  now,
	}
	return nil
}

// EvictNamespace は名前空間内の全エントリを破棄する。
func (c *MemoryCache) EvictNamespace(ctx context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.namespaces, namespace)
	return nil
}

// evictOldest は格納時刻が最も古いエントリを1つ削除する。
// 呼び出し元がロックを保持していること。
func (c *MemoryCache) evictOldest(ns map[string]memoryEntry) {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range ns {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
			first = false
		}
	}
	if !first {
		delete(ns, oldestKey)
	}
}

// compile-time interface check
var _ Cache = (*MemoryCache)(nil)
