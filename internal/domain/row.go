package domain

import (
	"strconv"
	"strings"
)

// Column 是表格中的固定列（按表头名称定位）。
type Column string

const (
	ColNumber     Column = "nummer"
	ColLink       Column = "dumpert-link"
	ColTitle      Column = "titel"
	ColUploadDate Column = "uploaddatum"
	ColViews      Column = "views"
	ColKudos      Column = "kudos"
	ColNSFW       Column = "nsfw"
	ColLength     Column = "lengte"
	ColThumbnail  Column = "thumbnail"
	ColMediaURL   Column = "media-url"
)

// OutputColumns 是会被写回表格的列（顺序固定，写回时按此顺序）。
var OutputColumns = []Column{
	ColTitle,
	ColUploadDate,
	ColViews,
	ColKudos,
	ColNSFW,
	ColLength,
	ColThumbnail,
	ColMediaURL,
}

// NormalizeHeader 把表头文本规范化为列名：去首尾空白、小写、内部空白替换为 '-'。
func NormalizeHeader(h string) Column {
	h = strings.ToLower(strings.TrimSpace(h))
	return Column(strings.Join(strings.Fields(h), "-"))
}

// Row 是外部表格中的一行。
//
// 不变量：
// - Line 是物理行号（1 基，表头占第 1 行，数据从第 2 行开始）
// - 核心流程只读写 Values，不新增/删除行
type Row struct {
	Line   int
	Values map[Column]string
}

// Number 返回行标识（nummer 列）。
func (r Row) Number() string { return r.Values[ColNumber] }

// Link 返回视频链接（dumpert-link 列），原样返回，不做 trim。
func (r Row) Link() string { return r.Values[ColLink] }

// Key 是变更缓存使用的行主键：nummer 为空时退化为 "#<line>"。
func (r Row) Key() string {
	if n := strings.TrimSpace(r.Number()); n != "" {
		return n
	}
	return "#" + strconv.Itoa(r.Line)
}

func (r Row) Get(c Column) string { return r.Values[c] }

func (r *Row) Set(c Column, v string) {
	if r.Values == nil {
		r.Values = make(map[Column]string, len(OutputColumns)+2)
	}
	r.Values[c] = v
}

// Clone 深拷贝一行（异步写回必须持有独立副本）。
func (r Row) Clone() Row {
	out := Row{Line: r.Line, Values: make(map[Column]string, len(r.Values))}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// Patch 描述一次映射得到的列更新；不在 Patch 中的列保持原值。
type Patch map[Column]string

// Apply 把 patch 写入 row。
func (p Patch) Apply(r *Row) {
	for c, v := range p {
		r.Set(c, v)
	}
}
