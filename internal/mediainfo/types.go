package mediainfo

import "encoding/json"

// Response 对应 GET <base>/{id}/ 的 JSON 响应。
//
// 只声明映射需要的字段；可选字段用指针/切片表达"缺失"，由 mapping 包决定如何降级。
type Response struct {
	Success bool   `json:"success"`
	Items   []Item `json:"items"`
}

type Item struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Date   string  `json:"date"`
	Stats  *Stats  `json:"stats"`
	NSFW   bool    `json:"nsfw"`
	Media  []Media `json:"media"`
	Stills *Stills `json:"stills"`
}

// Stats 的计数保持 JSON 数字字面量（原样写回表格）。
type Stats struct {
	ViewsTotal json.Number `json:"views_total"`
	KudosTotal json.Number `json:"kudos_total"`
}

type Media struct {
	Duration float64   `json:"duration"` // 秒
	Variants []Variant `json:"variants"`
}

type Variant struct {
	Version string `json:"version"` // 例如 "720p" / "tablet" / "mobile" / "embed"
	URI     string `json:"uri"`
}

type Stills struct {
	Still string `json:"still"`
}
