package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RiskScoreSnapshot 用户风险评分缓存快照
type RiskScoreSnapshot struct {
	UserID     uint  `json:"user_id"`
	Score      int   `json:"score"`
	Generation int64 `json:"generation"`
	ComputedAt int64 `json:"computed_at"`
}

// RiskScoreCache 风险评分缓存，Redis 启用时走 Redis，否则按配置走进程内缓存
// 快照带观测代数，代数落后的快照视为未命中
type RiskScoreCache struct {
	ttl           time.Duration
	localFallback bool
	local         *LocalStore

	mu   sync.Mutex
	gens map[uint]int64
}

// NewRiskScoreCache 创建风险评分缓存
// localFallback 只适合单实例部署，多实例共享数据库时进程内缓存无法跨实例失效
func NewRiskScoreCache(ttl time.Duration, localFallback bool) *RiskScoreCache {
	return &RiskScoreCache{
		ttl:           ttl,
		localFallback: localFallback,
		local:         NewLocalStore(0),
		gens:          make(map[uint]int64),
	}
}

func riskScoreKey(userID uint) string {
	return fmt.Sprintf("risk:score:%d", userID)
}

func riskScoreGenKey(userID uint) string {
	return fmt.Sprintf("risk:score:gen:%d", userID)
}

func (c *RiskScoreCache) disabled(userID uint) bool {
	if c == nil || c.ttl <= 0 || userID == 0 {
		return true
	}
	return !Enabled() && !c.localFallback
}

// Generation 当前观测代数，每次 Invalidate 递增
func (c *RiskScoreCache) Generation(ctx context.Context, userID uint) (int64, error) {
	if c.disabled(userID) {
		return 0, nil
	}
	if Enabled() {
		gen, _, err := GetInt64(ctx, riskScoreGenKey(userID))
		return gen, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

// Get 读取缓存评分，快照代数与当前代数不一致时未命中
func (c *RiskScoreCache) Get(ctx context.Context, userID uint) (int, bool, error) {
	if c.disabled(userID) {
		return 0, false, nil
	}
	var snapshot RiskScoreSnapshot
	var hit bool
	var err error
	if Enabled() {
		hit, err = GetJSON(ctx, riskScoreKey(userID), &snapshot)
	} else {
		hit, err = c.local.GetJSON(riskScoreKey(userID), &snapshot)
	}
	if err != nil || !hit {
		return 0, false, err
	}
	gen, err := c.Generation(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if snapshot.Generation != gen {
		return 0, false, nil
	}
	return snapshot.Score, true, nil
}

// Set 写入评分缓存，generation 为计算评分前读取的代数
func (c *RiskScoreCache) Set(ctx context.Context, userID uint, score int, generation int64) error {
	if c.disabled(userID) {
		return nil
	}
	snapshot := RiskScoreSnapshot{
		UserID:     userID,
		Score:      score,
		Generation: generation,
		ComputedAt: time.Now().Unix(),
	}
	if Enabled() {
		return SetJSON(ctx, riskScoreKey(userID), snapshot, c.ttl)
	}
	return c.local.SetJSON(riskScoreKey(userID), snapshot, c.ttl)
}

// Invalidate 观测记录变化后推进代数并清除评分缓存
func (c *RiskScoreCache) Invalidate(ctx context.Context, userID uint) error {
	if c == nil || userID == 0 {
		return nil
	}
	c.mu.Lock()
	c.gens[userID]++
	c.mu.Unlock()
	c.local.Del(riskScoreKey(userID))
	if !Enabled() {
		return nil
	}
	if _, err := Incr(ctx, riskScoreGenKey(userID)); err != nil {
		return err
	}
	return Del(ctx, riskScoreKey(userID))
}
