package run

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/dumpsheet/internal/app"
	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/infra/fsx"
	"github.com/John-Robertt/dumpsheet/internal/table"
)

const (
	StageRead   = "read"
	StageReport = "report"
)

// Cycle 是调度器每次触发的完整一轮：读全表 -> 预置缓存 -> 选行 -> 对账 -> 可选写报告。
type Cycle struct {
	Table      table.Reader
	Reconciler *Reconciler
	Obs        Observer

	// ReportPath 非空时，每轮结束把 PassReport 原子写入该文件（覆盖）。
	ReportPath string

	// NewPassID 允许测试注入确定性的 id；nil 时使用 uuid。
	NewPassID func() string
}

// RunOnce 执行一轮。读取表格失败时整轮放弃并返回错误（进程不退出）。
func (c *Cycle) RunOnce(ctx context.Context) (domain.PassReport, error) {
	obs := c.observer()
	passID := c.passID()

	rows, err := c.Table.Rows(ctx)
	if err != nil {
		err = fmt.Errorf("读取表格失败：%w", err)
		obs.OnCycleError(passID, StageRead, err)
		return domain.PassReport{PassID: passID}, err
	}

	app.SeedCache(rows, c.Reconciler.Cache)
	selected := app.SelectRows(rows)

	rr := c.Reconciler.Execute(ctx, passID, selected)

	if strings.TrimSpace(c.ReportPath) != "" {
		if err := writeReportFile(c.ReportPath, rr); err != nil {
			// 报告只是运维辅助：写失败不影响本轮结果。
			obs.OnCycleError(passID, StageReport, fmt.Errorf("写入报告失败：%w", err))
		}
	}
	return rr, nil
}

func (c *Cycle) passID() string {
	if c.NewPassID != nil {
		return c.NewPassID()
	}
	return uuid.NewString()
}

func (c *Cycle) observer() Observer {
	if c.Obs == nil {
		return NopObserver{}
	}
	return c.Obs
}

func writeReportFile(path string, rr domain.PassReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(path, b)
}
