package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/cartrec/core"
)

// RedisInteractionLog 是 Redis 实现的行为日志，生产环境常用。
//
// 数据布局（有序集合，score 为 unix 毫秒时间戳，member 为 JSON 编码的 Interaction）：
//   - {KeyPrefix}:log              全量日志
//   - {KeyPrefix}:user:{userID}    用户维度
//   - {KeyPrefix}:product:{itemID} 商品维度
//
// 写入时用 ZREMRANGEBYSCORE 裁掉过期成员，并给 key 续期 EXPIRE，读取时只取保留窗口内的成员。
type RedisInteractionLog struct {
	client *redis.Client

	KeyPrefix string
	Retention time.Duration

	// MaxScan 是单个 key 单次读取的最大成员数，用于限制扫描量
	MaxScan int64

	now func() time.Time
}

// NewRedisInteractionLog 连接 Redis 并返回行为日志。
func NewRedisInteractionLog(addr, password string, db int, keyPrefix string) (*RedisInteractionLog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, core.Unavailable(core.ModuleInteraction, err)
	}
	return NewRedisInteractionLogWithClient(client, keyPrefix), nil
}

// NewRedisInteractionLogWithClient 使用已有的 *redis.Client 创建行为日志。
func NewRedisInteractionLogWithClient(client *redis.Client, keyPrefix string) *RedisInteractionLog {
	if keyPrefix == "" {
		keyPrefix = "cartrec"
	}
	return &RedisInteractionLog{
		client:    client,
		KeyPrefix: keyPrefix,
		Retention: core.InteractionRetention,
		MaxScan:   1000,
		now:       time.Now,
	}
}

func (r *RedisInteractionLog) Name() string { return "redis" }

func (r *RedisInteractionLog) logKey() string              { return r.KeyPrefix + ":log" }
func (r *RedisInteractionLog) userKey(id string) string    { return r.KeyPrefix + ":user:" + id }
func (r *RedisInteractionLog) productKey(id string) string { return r.KeyPrefix + ":product:" + id }

func (r *RedisInteractionLog) retention() time.Duration {
	if r.Retention <= 0 {
		return core.InteractionRetention
	}
	return r.Retention
}

// windowMin 返回保留窗口下界（不含），格式为 ZRANGEBYSCORE 的开区间。
func (r *RedisInteractionLog) windowMin() string {
	cutoff := r.now().Add(-r.retention()).UnixMilli()
	return "(" + strconv.FormatInt(cutoff, 10)
}

func (r *RedisInteractionLog) Append(ctx context.Context, in core.Interaction) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = r.now()
	}
	member, err := json.Marshal(in)
	if err != nil {
		return err
	}
	z := redis.Z{Score: float64(in.CreatedAt.UnixMilli()), Member: string(member)}
	expired := strconv.FormatInt(r.now().Add(-r.retention()).UnixMilli(), 10)
	keys := []string{r.logKey(), r.userKey(in.UserID), r.productKey(in.ProductID)}

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.ZAdd(ctx, key, z)
			pipe.ZRemRangeByScore(ctx, key, "-inf", expired)
			pipe.Expire(ctx, key, r.retention())
		}
		return nil
	})
	return core.Unavailable(core.ModuleInteraction, err)
}

func (r *RedisInteractionLog) Count(ctx context.Context) (int64, error) {
	n, err := r.client.ZCount(ctx, r.logKey(), r.windowMin(), "+inf").Result()
	if err != nil {
		return 0, core.Unavailable(core.ModuleInteraction, err)
	}
	return n, nil
}

// CountByProduct 只统计窗口内最近的 MaxScan 条行为。
func (r *RedisInteractionLog) CountByProduct(ctx context.Context, since time.Time) ([]core.ProductCount, error) {
	min := r.windowMin()
	if cutoff := r.now().Add(-r.retention()); since.After(cutoff) {
		min = strconv.FormatInt(since.UnixMilli(), 10)
	}
	by := &redis.ZRangeBy{Min: min, Max: "+inf", Offset: 0, Count: r.MaxScan}
	members, err := r.client.ZRevRangeByScore(ctx, r.logKey(), by).Result()
	if err != nil {
		return nil, core.Unavailable(core.ModuleInteraction, err)
	}
	ins := decodeInteractions(members)
	slices.Reverse(ins)
	return core.CountByProduct(ins), nil
}

func (r *RedisInteractionLog) DistinctProductIDs(ctx context.Context, userID string) ([]string, error) {
	ins, err := r.recentFrom(ctx, []string{r.userKey(userID)})
	if err != nil {
		return nil, err
	}
	return distinct(ins, func(in core.Interaction) string { return in.ProductID }, nil, 0), nil
}

func (r *RedisInteractionLog) DistinctUserIDs(ctx context.Context, productIDs []string, excludeUserID string) ([]string, error) {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, r.productKey(id))
	}
	ins, err := r.recentFrom(ctx, keys)
	if err != nil {
		return nil, err
	}
	exclude := map[string]struct{}{excludeUserID: {}}
	return distinct(ins, func(in core.Interaction) string { return in.UserID }, exclude, 0), nil
}

func (r *RedisInteractionLog) ProductIDsByUsers(ctx context.Context, userIDs []string, excludeProductIDs []string, limit int) ([]string, error) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, r.userKey(id))
	}
	ins, err := r.recentFrom(ctx, keys)
	if err != nil {
		return nil, err
	}
	return distinct(ins, func(in core.Interaction) string { return in.ProductID }, toSet(excludeProductIDs), limit), nil
}

func (r *RedisInteractionLog) Recent(ctx context.Context, userID string, typ core.InteractionType, limit int) ([]core.Interaction, error) {
	ins, err := r.recentFrom(ctx, []string{r.userKey(userID)})
	if err != nil {
		return nil, err
	}
	out := make([]core.Interaction, 0, len(ins))
	for _, in := range ins {
		if typ != "" && in.Type != typ {
			continue
		}
		out = append(out, in)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *RedisInteractionLog) Close() error {
	return r.client.Close()
}

// GetClient 返回底层 Redis 客户端（高级用法）。
func (r *RedisInteractionLog) GetClient() *redis.Client {
	return r.client
}

// recentFrom 批量读取多个有序集合中保留窗口内的成员，合并后按时间倒序返回。
func (r *RedisInteractionLog) recentFrom(ctx context.Context, keys []string) ([]core.Interaction, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	by := &redis.ZRangeBy{Min: r.windowMin(), Max: "+inf", Offset: 0, Count: r.MaxScan}
	cmds := make([]*redis.StringSliceCmd, 0, len(keys))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			cmds = append(cmds, pipe.ZRevRangeByScore(ctx, key, by))
		}
		return nil
	})
	if err != nil {
		return nil, core.Unavailable(core.ModuleInteraction, err)
	}

	var all []core.Interaction
	for _, cmd := range cmds {
		all = append(all, decodeInteractions(cmd.Val())...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func decodeInteractions(members []string) []core.Interaction {
	out := make([]core.Interaction, 0, len(members))
	for _, m := range members {
		var in core.Interaction
		if err := json.Unmarshal([]byte(m), &in); err != nil {
			continue
		}
		out = append(out, in)
	}
	return out
}

func distinct(ins []core.Interaction, key func(core.Interaction) string, exclude map[string]struct{}, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, in := range ins {
		k := key(in)
		if _, ok := exclude[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

var _ core.InteractionLog = (*RedisInteractionLog)(nil)
