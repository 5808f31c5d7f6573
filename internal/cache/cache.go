package cache

import (
	"sync"
)

// Cache 记录每一行（按 Row.Key）最近一次处理时的链接。
//
// 约束：
// - 仅存在于进程内存，进程重启即丢失（不落盘）
// - 命中条件是"条目存在且与当前链接逐字节相等"；链接一旦变化必须重新处理
// - 由 main 构造一次，按指针传入每次对账，永不重置
//
// 调度器在 overlap=allow 时可能让两次对账重叠，因此内部加锁。
type Cache struct {
	mu      sync.Mutex
	entries map[string]string
}

func New() *Cache {
	return &Cache{entries: make(map[string]string, 128)}
}

// Fresh 判断 key 的缓存条目是否存在且等于 link。
func (c *Cache) Fresh(key, link string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return ok && v == link
}

// Remember 记录 key 当前已处理的链接（覆盖旧值）。
func (c *Cache) Remember(key, link string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = link
}

// Seed 仅在 key 尚无条目时写入；返回是否写入。
func (c *Cache) Seed(key, link string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = link
	return true
}

// Lookup 返回 key 的条目（测试与排查用）。
func (c *Cache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Len 返回条目数（测试与排查用）。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
