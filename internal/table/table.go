package table

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/dumpsheet/internal/domain"
)

// ErrMissingColumn 表示表头缺少必需列（nummer / dumpert-link）。
var ErrMissingColumn = errors.New("table: 缺少必需列")

// RequiredColumns 是读取时必须存在的列。
var RequiredColumns = []domain.Column{domain.ColNumber, domain.ColLink}

// Reader 读取全部数据行（不含表头）。
type Reader interface {
	Rows(ctx context.Context) ([]domain.Row, error)
}

// Writer 把一行的输出列写回表格。
type Writer interface {
	Save(ctx context.Context, row domain.Row) error
}

// Table 是外部表格（Google Sheets / 本地 xlsx）的统一接口。
//
// 约束：
// - 第 1 行是表头，数据从第 2 行开始；Row.Line 为物理行号
// - Save 只写 domain.OutputColumns 中、且表头存在的列；不新增/删除行
type Table interface {
	Reader
	Writer
}

// Header 是"列名 -> 列下标（0 基）"的映射。
type Header map[domain.Column]int

// ParseHeader 规范化表头并校验必需列。重复列名以第一次出现为准。
func ParseHeader(cells []string) (Header, error) {
	h := make(Header, len(cells))
	for i, c := range cells {
		col := domain.NormalizeHeader(c)
		if col == "" {
			continue
		}
		if _, ok := h[col]; !ok {
			h[col] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := h[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w：%s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return h, nil
}

// RowFromCells 按表头把一行单元格转换为 domain.Row。
// 只保留已知列；短行（尾部空单元格被省略）按空串处理。
func (h Header) RowFromCells(line int, cells []string) domain.Row {
	r := domain.Row{Line: line, Values: make(map[domain.Column]string, len(domain.OutputColumns)+2)}
	for _, c := range knownColumns() {
		idx, ok := h[c]
		if !ok {
			continue
		}
		v := ""
		if idx < len(cells) {
			v = cells[idx]
		}
		r.Values[c] = v
	}
	return r
}

// OutputCells 返回需要写回的 (列下标, 值)，按 OutputColumns 顺序。
func (h Header) OutputCells(r domain.Row) []Cell {
	out := make([]Cell, 0, len(domain.OutputColumns))
	for _, c := range domain.OutputColumns {
		idx, ok := h[c]
		if !ok {
			continue
		}
		out = append(out, Cell{Col: idx, Column: c, Value: r.Get(c)})
	}
	return out
}

// Cell 是一次待写回的单元格。
type Cell struct {
	Col    int // 0 基列下标
	Column domain.Column
	Value  string
}

// IsNumeric 判断写回的值是否应该按数字写入（views/kudos）。
func IsNumeric(c domain.Column) bool {
	return c == domain.ColViews || c == domain.ColKudos
}

func knownColumns() []domain.Column {
	cols := make([]domain.Column, 0, len(domain.OutputColumns)+2)
	cols = append(cols, domain.ColNumber, domain.ColLink)
	return append(cols, domain.OutputColumns...)
}
