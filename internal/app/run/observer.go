package run

import (
	"github.com/John-Robertt/dumpsheet/internal/domain"
)

// Observer 用于把"对账进度/行结果/写回结果"从核心流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（日志由 CLI 的实现决定）。
// - Observer 的实现必须并发安全：写回结果来自写回协程，且两次对账可能重叠。
type Observer interface {
	// OnPassStart 在一次对账开始时调用（rows 为参与对账的行数）。
	OnPassStart(passID string, rows int)
	// OnRowDone 在每一行处理完成时调用（包括跳过的行）。
	OnRowDone(passID string, res domain.RowResult)
	// OnPassDone 在一次对账结束时调用。
	OnPassDone(rr domain.PassReport)
	// OnWriteDone 在一次异步写回完成（成功或失败）时调用。
	OnWriteDone(res domain.WriteResult)
	// OnCycleError 在整轮被放弃（例如读取表格失败）时调用。
	OnCycleError(passID string, stage string, err error)
}

// NopObserver 丢弃所有事件。
type NopObserver struct{}

func (NopObserver) OnPassStart(string, int) {}
func (NopObserver) OnRowDone(string, domain.RowResult) {}
func (NopObserver) OnPassDone(domain.PassReport) {}
func (NopObserver) OnWriteDone(domain.WriteResult) {}
func (NopObserver) OnCycleError(string, string, error) {}
