package cache

import (
	"encoding/json"
	"time"

	"github.com/coocood/freecache"
)

// localCacheSize 本地缓存容量（字节）
const localCacheSize = 8 * 1024 * 1024

// LocalStore 进程内缓存，Redis 未启用时作为风险评分的兜底
type LocalStore struct {
	store *freecache.Cache
}

// NewLocalStore 创建进程内缓存，size<=0 使用默认容量
func NewLocalStore(size int) *LocalStore {
	if size <= 0 {
		size = localCacheSize
	}
	return &LocalStore{store: freecache.NewCache(size)}
}

// GetJSON 读取 JSON 值
func (l *LocalStore) GetJSON(key string, dest interface{}) (bool, error) {
	if l == nil || l.store == nil {
		return false, nil
	}
	raw, err := l.store.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		l.store.Del([]byte(key))
		return false, nil
	}
	return true, nil
}

// SetJSON 写入 JSON 值
func (l *LocalStore) SetJSON(key string, value interface{}, ttl time.Duration) error {
	if l == nil || l.store == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return l.store.Set([]byte(key), raw, seconds)
}

// Del 删除键
func (l *LocalStore) Del(key string) {
	if l == nil || l.store == nil {
		return
	}
	l.store.Del([]byte(key))
}

// Clear 清空本地缓存
func (l *LocalStore) Clear() {
	if l == nil || l.store == nil {
		return
	}
	l.store.Clear()
}
