package xlsx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/infra/fsx"
	"github.com/John-Robertt/dumpsheet/internal/table"
)

// Table 是本地 .xlsx 工作簿上的 table.Table。
//
// 每次 Save 都重新打开工作簿、改写输出列，再原子替换整个文件；
// 同一进程内的读写由 mu 串行化。
type Table struct {
	path  string
	index int

	mu sync.Mutex
}

var _ table.Table = (*Table)(nil)

// Open 校验工作簿可读、且存在第 index 个工作表。
func Open(path string, index int) (*Table, error) {
	t := &Table{path: path, index: index}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败：%w", err)
	}
	defer f.Close()
	if _, err := t.sheetName(f); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) Rows(ctx context.Context) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := excelize.OpenFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败：%w", err)
	}
	defer f.Close()

	sheet, err := t.sheetName(f)
	if err != nil {
		return nil, err
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %q 失败：%w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w：工作表 %q 为空", table.ErrMissingColumn, sheet)
	}

	h, err := table.ParseHeader(cells[0])
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Row, 0, len(cells)-1)
	for i := 1; i < len(cells); i++ {
		rows = append(rows, h.RowFromCells(i+1, cells[i]))
	}
	return rows, nil
}

func (t *Table) Save(ctx context.Context, row domain.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if row.Line < 2 {
		return fmt.Errorf("行号无效：%d", row.Line)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := excelize.OpenFile(t.path)
	if err != nil {
		return fmt.Errorf("打开工作簿失败：%w", err)
	}
	defer f.Close()

	sheet, err := t.sheetName(f)
	if err != nil {
		return err
	}
	h, err := t.header(f, sheet)
	if err != nil {
		return err
	}

	for _, c := range h.OutputCells(row) {
		cell, err := excelize.CoordinatesToCellName(c.Col+1, row.Line)
		if err != nil {
			return err
		}
		if err := setCell(f, sheet, cell, c); err != nil {
			return fmt.Errorf("写入 %s 失败：%w", cell, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("序列化工作簿失败：%w", err)
	}
	return fsx.WriteFile(t.path, buf.Bytes())
}

func setCell(f *excelize.File, sheet, cell string, c table.Cell) error {
	if table.IsNumeric(c.Column) {
		if n, err := strconv.ParseInt(strings.TrimSpace(c.Value), 10, 64); err == nil {
			return f.SetCellValue(sheet, cell, n)
		}
	}
	return f.SetCellStr(sheet, cell, c.Value)
}

func (t *Table) header(f *excelize.File, sheet string) (table.Header, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, fmt.Errorf("%w：工作表 %q 为空", table.ErrMissingColumn, sheet)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return table.ParseHeader(cols)
}

func (t *Table) sheetName(f *excelize.File) (string, error) {
	names := f.GetSheetList()
	if t.index < 0 || t.index >= len(names) {
		return "", fmt.Errorf("工作表下标 %d 超出范围（共 %d 个）", t.index, len(names))
	}
	return names[t.index], nil
}
