package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusInvalid   = "invalid"
	StatusEmpty     = "empty"
	StatusFailed    = "failed"
)

const (
	ErrCodeInvalidLink  = "invalid_link"
	ErrCodeFetchFailed  = "fetch_failed"
	ErrCodeDecodeFailed = "decode_failed"
	ErrCodeNoData       = "no_data"
)

// PassReport 是一次对账（reconciliation pass）的结果，可选写入 report_path。
type PassReport struct {
	PassID string `json:"pass_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary PassSummary `json:"summary"`
	Rows    []RowResult `json:"rows"`
}

type PassSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Invalid   int `json:"invalid"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

type RowResult struct {
	Key     string `json:"key"`
	Line    int    `json:"line"`
	Link    string `json:"link"`
	MediaID string `json:"media_id"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Missing 列出映射时缺失（按"不存在"处理）的字段，仅 processed 时可能非空。
	Missing []string `json:"missing"`

	Duration time.Duration `json:"-"`
}

// WriteResult 是一次异步写回的结果（不进入 PassReport：写回不被对账循环等待）。
type WriteResult struct {
	Key      string
	Line     int
	Err      error
	Duration time.Duration
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) rows 稳定排序：按表格行号
// 3) summary 由 rows 计算得出
func (r *PassReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Rows, func(i, j int) bool { return r.Rows[i].Line < r.Rows[j].Line })

	var s PassSummary
	for _, it := range r.Rows {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusInvalid:
			s.Invalid++
		case StatusEmpty:
			s.Empty++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 集中约束输出稳定性：nil 切片输出为 []，避免消费方区分 null/[]。
func (r PassReport) MarshalJSON() ([]byte, error) {
	type Alias PassReport
	a := Alias(r)
	if a.Rows == nil {
		a.Rows = []RowResult{}
	}
	for i := range a.Rows {
		if a.Rows[i].Missing == nil {
			a.Rows[i].Missing = []string{}
		}
	}
	return json.Marshal(a)
}
