package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/dumpsheet/internal/app/planner"
	"github.com/John-Robertt/dumpsheet/internal/cache"
	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/mapping"
	"github.com/John-Robertt/dumpsheet/internal/mediainfo"
)

// Fetcher 抓取并解码一条 media-info。
type Fetcher interface {
	Get(ctx context.Context, id domain.MediaID) (mediainfo.Response, error)
}

// Submitter 接收需要异步写回的行（不等待写入完成）。
type Submitter interface {
	Submit(row domain.Row) error
}

// Reconciler 执行一次对账：缓存判断 -> 解析链接 -> 抓取 -> 映射 -> 写回。
//
// 约束：
// - 行与行严格串行（每行的抓取完成后才开始下一行），从不并发请求远端
// - 单行失败只影响该行：缓存照常推进，循环继续
// - 写回不被等待；写回失败不回滚内存字段与缓存
type Reconciler struct {
	Cache  *cache.Cache
	Fetch  Fetcher
	Mapper mapping.Mapper
	Writer Submitter
	Obs    Observer
}

// Execute 对 rows 执行一次对账，rows 中成功映射的行会被原地更新。
// ctx 取消时在行与行之间停止，剩余行不出现在报告中。
func (r *Reconciler) Execute(ctx context.Context, passID string, rows []domain.Row) domain.PassReport {
	obs := r.observer()

	rr := domain.PassReport{
		PassID:    passID,
		StartedAt: time.Now().UTC(),
		Rows:      make([]domain.RowResult, 0, len(rows)),
	}
	obs.OnPassStart(passID, len(rows))

	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		started := time.Now()
		res := r.reconcileRow(ctx, &rows[i])
		res.Duration = time.Since(started)

		rr.Rows = append(rr.Rows, res)
		obs.OnRowDone(passID, res)
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	obs.OnPassDone(rr)
	return rr
}

func (r *Reconciler) reconcileRow(ctx context.Context, row *domain.Row) domain.RowResult {
	p := planner.PlanRow(*row, r.Cache)
	res := domain.RowResult{
		Key:     p.Key,
		Line:    p.Line,
		Link:    p.Link,
		MediaID: string(p.MediaID),
	}

	switch p.Action {
	case domain.ActionSkip:
		res.Status = domain.StatusSkipped
		return res
	case domain.ActionInvalid:
		// 无效链接也推进缓存：同一链接不再反复解析。
		r.remember(p.Key, p.Link)
		res.Status = domain.StatusInvalid
		res.ErrorCode = domain.ErrCodeInvalidLink
		res.ErrorMsg = "链接不是 https://www.dumpert.nl/mediabase/<hex>/<hex>/ 形式"
		return res
	}

	resp, err := r.Fetch.Get(ctx, p.MediaID)
	if err != nil {
		// 抓取/解码失败：推进缓存，避免对持续损坏的链接反复请求；链接变化后会重新尝试。
		r.remember(p.Key, p.Link)
		fillFetchError(&res, err)
		return res
	}

	mr, err := r.Mapper.Map(resp)
	if err != nil {
		r.remember(p.Key, p.Link)
		if errors.Is(err, mapping.ErrNoData) {
			res.Status = domain.StatusEmpty
			res.ErrorCode = domain.ErrCodeNoData
			res.ErrorMsg = "接口返回 success=false 或没有 items"
			return res
		}
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeDecodeFailed
		res.ErrorMsg = err.Error()
		return res
	}

	mr.Patch.Apply(row)
	r.remember(p.Key, p.Link)
	res.Status = domain.StatusProcessed
	res.Missing = mr.Missing

	if r.Writer != nil {
		if err := r.Writer.Submit(*row); err != nil {
			r.observer().OnWriteDone(domain.WriteResult{Key: p.Key, Line: p.Line, Err: err})
		}
	}
	return res
}

// remember 推进缓存；Cache 为 nil 时每轮都重新处理（与 planner 对 nil 的处理一致）。
func (r *Reconciler) remember(key, link string) {
	if r.Cache != nil {
		r.Cache.Remember(key, link)
	}
}

func (r *Reconciler) observer() Observer {
	if r.Obs == nil {
		return NopObserver{}
	}
	return r.Obs
}

func fillFetchError(res *domain.RowResult, err error) {
	res.Status = domain.StatusFailed

	var me *mediainfo.Error
	if errors.As(err, &me) && me.Stage == mediainfo.StageDecode {
		res.ErrorCode = domain.ErrCodeDecodeFailed
		res.ErrorMsg = fmt.Sprintf("media-info 响应无法解析（可能返回了非 JSON 内容）：%v", me.Err)
		return
	}
	res.ErrorCode = domain.ErrCodeFetchFailed
	res.ErrorMsg = humanizeFetchError(err)
}

func humanizeFetchError(err error) string {
	var hs *mediainfo.HTTPStatusError
	if errors.As(err, &hs) {
		switch {
		case hs.StatusCode == 404:
			return "media-info 返回 HTTP 404（视频可能已下架）。"
		case hs.StatusCode == 403 || hs.StatusCode == 429:
			return fmt.Sprintf("media-info 返回 HTTP %d（可能触发限流）。", hs.StatusCode)
		default:
			return fmt.Sprintf("media-info 返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "media-info 请求超时。建议检查网络/代理。"
	}
	return fmt.Sprintf("media-info 请求失败：%v", err)
}
