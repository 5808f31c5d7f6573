package app

import (
	"strings"

	"github.com/John-Robertt/dumpsheet/internal/cache"
	"github.com/John-Robertt/dumpsheet/internal/domain"
)

const linkScheme = "https://"

// HasLink 判断行是否带有需要处理的链接（必须以 https:// 开头）。
func HasLink(r domain.Row) bool {
	return strings.HasPrefix(r.Link(), linkScheme)
}

// SelectRows 挑出需要进入对账的行，保持表格顺序。
// 没有链接（或不是 https://）的行完全不参与：不请求、不写缓存、不修改。
func SelectRows(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, 0, len(rows))
	for i := range rows {
		if HasLink(rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// SeedCache 把"已经有输出数据"的行视为已处理，写入缓存；返回写入条数。
//
// 规则（每次全表读取都执行）：
// - 行 key 尚无缓存条目
// - 链接以 https:// 开头
// - lengte 列非空（视为已有输出）
//
// 已有条目的行不受影响，因此失败后推进过的缓存不会被覆盖。
func SeedCache(rows []domain.Row, c *cache.Cache) int {
	n := 0
	for i := range rows {
		r := rows[i]
		if !HasLink(r) || strings.TrimSpace(r.Get(domain.ColLength)) == "" {
			continue
		}
		if c.Seed(r.Key(), r.Link()) {
			n++
		}
	}
	return n
}
