package planner

import (
	"github.com/John-Robertt/dumpsheet/internal/cache"
	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/link"
)

// PlanRow 基于变更缓存与链接解析生成确定性的计划（不修改缓存、不访问网络）。
//
// 顺序固定：先判缓存，再解析链接；缓存命中的行连解析都不做。
func PlanRow(row domain.Row, c *cache.Cache) domain.RowPlan {
	p := domain.RowPlan{
		Key:  row.Key(),
		Line: row.Line,
		Link: row.Link(),
	}

	if c != nil && c.Fresh(p.Key, p.Link) {
		p.Action = domain.ActionSkip
		return p
	}

	id, ok := link.Resolve(p.Link)
	if !ok {
		p.Action = domain.ActionInvalid
		return p
	}
	p.Action = domain.ActionFetch
	p.MediaID = id
	return p
}

