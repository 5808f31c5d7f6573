package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	OverlapAllow = "allow"
	OverlapSkip  = "skip"
)

// Job 是一次轮询要做的事；ctx 在调度器停止时取消。
type Job func(ctx context.Context)

type Options struct {
	// Overlap 决定上一轮还没结束时新一轮是否开始：allow（默认）或 skip。
	Overlap string
	Logger  *zap.Logger
}

// Scheduler 启动时立即执行一次，之后每 interval 执行一次，直到 ctx 取消。
type Scheduler struct {
	interval time.Duration
	job      Job
	opts     Options
}

func New(interval time.Duration, job Job, opts Options) (*Scheduler, error) {
	if interval < time.Second || interval%time.Second != 0 {
		return nil, errors.New("scheduler: interval 必须是不小于 1s 的整数秒")
	}
	if job == nil {
		return nil, errors.New("scheduler: job 不能为空")
	}
	switch opts.Overlap {
	case "":
		opts.Overlap = OverlapAllow
	case OverlapAllow, OverlapSkip:
	default:
		return nil, errors.New("scheduler: overlap 只能是 allow 或 skip")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{interval: interval, job: job, opts: opts}, nil
}

// Start 阻塞直到 ctx 取消，并在返回前等待正在执行的 job 结束。
func (s *Scheduler) Start(ctx context.Context) {
	clog := cronLogger{s.opts.Logger.Sugar()}

	wrappers := []cron.JobWrapper{cron.Recover(clog)}
	if s.opts.Overlap == OverlapSkip {
		wrappers = append(wrappers, cron.SkipIfStillRunning(clog))
	}
	job := cron.NewChain(wrappers...).Then(cron.FuncJob(func() { s.job(ctx) }))

	c := cron.New(cron.WithLogger(clog))
	c.Schedule(cron.Every(s.interval), job)

	s.opts.Logger.Info("调度器启动",
		zap.Duration("interval", s.interval),
		zap.String("overlap", s.opts.Overlap),
	)

	var first sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		job.Run()
	}()
	c.Start()

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	first.Wait()
	s.opts.Logger.Info("调度器已停止")
}

// cronLogger 把 cron 的日志接到 zap；cron 的 Info 很啰嗦，降为 debug。
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
