package writeback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/John-Robertt/dumpsheet/internal/domain"
	"github.com/John-Robertt/dumpsheet/internal/table"
)

// ErrClosed 表示写回队列已关闭，不再接收新行。
var ErrClosed = errors.New("writeback: 队列已关闭")

const (
	defaultWorkers = 1
	defaultBuffer  = 256
	defaultTimeout = 30 * time.Second
)

type Options struct {
	Workers int           // 写回并发数；<1 时为 1
	Buffer  int           // 待写队列容量；<1 时为默认值
	Timeout time.Duration // 单次写回超时；<=0 时为默认值
}

// Queue 把行写回异步化：对账循环只负责 Submit，不等待写入完成。
//
// 每次写回（成功或失败）都会在 Results() 上产生一条 WriteResult，
// 由调用方的消费协程负责记录日志；写回失败不会回滚内存中的字段与缓存。
type Queue struct {
	w       table.Writer
	timeout time.Duration

	mu     sync.RWMutex
	closed bool

	jobs    chan domain.Row
	results chan domain.WriteResult
	wg      sync.WaitGroup
}

func New(w table.Writer, opts Options) *Queue {
	workers := opts.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	buffer := opts.Buffer
	if buffer < 1 {
		buffer = defaultBuffer
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	q := &Queue{
		w:       w,
		timeout: timeout,
		jobs:    make(chan domain.Row, buffer),
		results: make(chan domain.WriteResult, buffer),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Submit 入队一行的副本；队列满时阻塞，关闭后返回 ErrClosed。
func (q *Queue) Submit(row domain.Row) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.jobs <- row.Clone()
	return nil
}

// Results 返回写回结果通道；Close 完成后该通道被关闭。
func (q *Queue) Results() <-chan domain.WriteResult {
	return q.results
}

// Close 停止接收新行，等待已入队的行全部写完后关闭 Results()。可重复调用。
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	close(q.results)
}

func (q *Queue) work() {
	defer q.wg.Done()
	for row := range q.jobs {
		started := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.w.Save(ctx, row)
		cancel()
		q.results <- domain.WriteResult{
			Key:      row.Key(),
			Line:     row.Line,
			Err:      err,
			Duration: time.Since(started),
		}
	}
}
