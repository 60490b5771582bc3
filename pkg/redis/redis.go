package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Hamzak1712/supervisor-works/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、指导申请限流与匹配排名缓存
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Wrap 包装已有连接（测试用）
func Wrap(rdb *goredis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

const rateLimitPrefix = "ratelimit:"

// rateLimitScript 清理过期成员、计数与写入在同一脚本内完成，并发请求不会越过上限。
// KEYS[1]=窗口键 ARGV: 窗口起点(ns) 当前时间(ns) 上限 成员 窗口(ms)
var rateLimitScript = goredis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local limit = tonumber(ARGV[3])
if count >= limit then
	return {0, 0}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, limit - count - 1}
`)

// CheckRateLimit 滑动窗口限流：window 内至多 limit 次。
// 返回是否放行以及窗口内剩余次数。被拒绝的请求不计入窗口。
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if limit <= 0 {
		return true, 0, nil
	}

	now := time.Now()
	res, err := rateLimitScript.Run(ctx, c.rdb, []string{rateLimitPrefix + key},
		now.Add(-window).UnixNano(),
		now.UnixNano(),
		limit,
		uuid.NewString(),
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("限流脚本返回值异常: %v", res)
	}
	return res[0] == 1, int(res[1]), nil
}

// ── 匹配排名缓存 ──
// 键中带代数，能力变更时 INCR 代数即可整体失效，无需 SCAN。
// 调用方在计算排名前读取代数，读写都以该代数为准：
// 计算期间发生的失效会让旧结果写入已废弃的键，不会被后续读取命中。

const (
	matchCachePrefix = "match:rank:"
	matchCacheGenKey = "match:rank:gen"
)

// MatchGeneration 当前排名缓存代数，从未失效过时为 0
func (c *Client) MatchGeneration(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, matchCacheGenKey).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, err
	}
	return gen, nil
}

func matchKey(gen int64, studentID string) string {
	return fmt.Sprintf("%s%d:%s", matchCachePrefix, gen, studentID)
}

// GetMatches 读取学生在 gen 代的排名缓存，未命中返回 false
func (c *Client) GetMatches(ctx context.Context, gen int64, studentID string, dst interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, matchKey(gen, studentID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("解析排名缓存失败: %w", err)
	}
	return true, nil
}

// SetMatches 以计算排名前读取的 gen 写入缓存
func (c *Client) SetMatches(ctx context.Context, gen int64, studentID string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, matchKey(gen, studentID), data, ttl).Err()
}

// InvalidateMatches 使全部排名缓存失效
func (c *Client) InvalidateMatches(ctx context.Context) error {
	return c.rdb.Incr(ctx, matchCacheGenKey).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
