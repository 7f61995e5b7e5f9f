package cooldown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix 默认键前缀
const DefaultKeyPrefix = "bear:cooldown:"

// acquireScript 按调用方时间比较上次放行时间，与 MemoryStore 语义一致
// 键的 TTL（两倍窗口）只用于回收，不参与判断。
var acquireScript = redis.NewScript(`
local last = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
if last and now - tonumber(last) < tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisStore 基于 Redis 的冷却记录，多进程共享，进程重启后仍然有效
// 键值为上次放行的 Unix 毫秒时间，检查并设置在一个 Lua 脚本中原子完成。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 冷却记录
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Key 构建完整键
func (r *RedisStore) Key(key string) string {
	return r.prefix + key
}

// Acquire 实现 Store
func (r *RedisStore) Acquire(ctx context.Context, key string, window time.Duration, now time.Time) (bool, error) {
	ttl := 2 * window
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	n, err := acquireScript.Run(ctx, r.client, []string{r.Key(key)},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown %s: %w", key, err)
	}
	return n == 1, nil
}

// Reset 删除前缀下的所有冷却键
func (r *RedisStore) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cooldown keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cooldown keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
