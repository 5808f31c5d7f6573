package main

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/dumpsheet/internal/app/run"
	"github.com/John-Robertt/dumpsheet/internal/config"
	"github.com/John-Robertt/dumpsheet/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 把对账事件写成结构化日志：失败为 error，逐行成功为 info。
type logObserver struct {
	log *zap.Logger

	writeFailures atomic.Int64
}

func newLogObserver(log *zap.Logger) *logObserver {
	return &logObserver{log: log}
}

func (o *logObserver) OnPassStart(passID string, rows int) {
	o.log.Debug("开始对账", zap.String("pass_id", passID), zap.Int("rows", rows))
}

func (o *logObserver) OnRowDone(passID string, res domain.RowResult) {
	fields := []zap.Field{
		zap.String("pass_id", passID),
		zap.String("key", res.Key),
		zap.Int("line", res.Line),
	}
	if res.MediaID != "" {
		fields = append(fields, zap.String("media_id", res.MediaID))
	}

	switch res.Status {
	case domain.StatusProcessed:
		fields = append(fields, zap.Duration("took", res.Duration.Round(time.Millisecond)))
		if len(res.Missing) > 0 {
			o.log.Warn("已更新（部分字段缺失）", append(fields, zap.Strings("missing", res.Missing))...)
			return
		}
		o.log.Info("已更新", fields...)
	case domain.StatusSkipped:
		o.log.Debug("链接未变化，跳过", fields...)
	case domain.StatusInvalid:
		o.log.Debug("链接无效", append(fields, zap.String("link", truncate(res.Link, 160)))...)
	case domain.StatusEmpty:
		o.log.Info("接口没有返回数据", fields...)
	case domain.StatusFailed:
		o.log.Error("处理失败", append(fields,
			zap.String("error_code", res.ErrorCode),
			zap.String("error", truncate(res.ErrorMsg, 300)),
		)...)
	}
}

func (o *logObserver) OnPassDone(rr domain.PassReport) {
	s := rr.Summary
	o.log.Info("对账完成",
		zap.String("pass_id", rr.PassID),
		zap.Int("processed", s.Processed),
		zap.Int("skipped", s.Skipped),
		zap.Int("invalid", s.Invalid),
		zap.Int("empty", s.Empty),
		zap.Int("failed", s.Failed),
		zap.Duration("took", rr.FinishedAt.Sub(rr.StartedAt).Round(time.Millisecond)),
	)
}

func (o *logObserver) OnWriteDone(res domain.WriteResult) {
	if res.Err != nil {
		o.writeFailures.Add(1)
		o.log.Error("写回失败", zap.String("key", res.Key), zap.Int("line", res.Line), zap.Error(res.Err))
		return
	}
	o.log.Debug("写回完成", zap.String("key", res.Key), zap.Int("line", res.Line), zap.Duration("took", res.Duration))
}

func (o *logObserver) OnCycleError(passID, stage string, err error) {
	o.log.Error("本轮放弃", zap.String("pass_id", passID), zap.String("stage", stage), zap.Error(err))
}

// WriteFailures 返回累计的写回失败次数（--once 用它决定退出码）。
func (o *logObserver) WriteFailures() int64 {
	return o.writeFailures.Load()
}

func logConfig(log *zap.Logger, eff config.EffectiveConfig) {
	fields := []zap.Field{
		zap.String("backend", eff.Backend),
		zap.Duration("poll_interval", eff.PollInterval),
		zap.String("overlap", eff.Overlap),
		zap.Bool("once", eff.Once),
		zap.Duration("http_timeout", eff.HTTPTimeout),
		zap.String("proxy", formatProxy(eff.ProxyURL)),
		zap.String("timezone", eff.Location.String()),
		zap.Int("write_workers", eff.WriteWorkers),
	}
	switch eff.Backend {
	case config.BackendXLSX:
		fields = append(fields, zap.String("xlsx", eff.XLSXPath))
	default:
		fields = append(fields,
			zap.String("client_email", eff.Sheets.ClientEmail),
			zap.String("document_key", eff.Sheets.DocumentKey),
			zap.Int("worksheet_index", eff.Sheets.WorksheetIndex),
		)
	}
	if eff.Source != "" {
		fields = append(fields, zap.String("config", eff.Source))
	}
	if eff.APIBaseURL != "" {
		fields = append(fields, zap.String("api_base_url", eff.APIBaseURL))
	}
	if eff.ReportPath != "" {
		fields = append(fields, zap.String("report", eff.ReportPath))
	}
	log.Info("dumpsheet 启动", fields...)
}

// formatProxy 只展示 scheme/host 与是否带认证，不输出密码。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
