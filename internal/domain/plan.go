package domain

// Action 是对某一行的处理决策。
type Action string

const (
	ActionSkip    Action = "skip"    // 缓存命中：链接未变化
	ActionInvalid Action = "invalid" // 链接无法解析为 MediaID
	ActionFetch   Action = "fetch"   // 需要请求 media-info API
)

// RowPlan 是对某一行的最小执行计划（只描述决策，不做网络/写入）。
type RowPlan struct {
	Key     string
	Line    int
	Link    string
	Action  Action
	MediaID MediaID
}
