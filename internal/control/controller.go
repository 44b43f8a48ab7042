package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/metrics"
)

// ErrClosed 表示控制器已关闭，不再接受新命令。
var ErrClosed = errors.New("controller closed")

// Options 注入控制器依赖，Volatile/Store/Logger 必填。
type Options struct {
	Volatile *cache.Volatile
	Store    cache.Store
	Logger   *logrus.Logger
	Metrics  *metrics.Collector
}

// Controller 驱动两层缓存到一致状态。内存层在调用返回前完成替换；
// 持久层阶段由单个 worker 按提交顺序执行。
//
// 每个持久化阶段都以清空存储开始，因此尚未开始执行的排队任务会被新任务合并：
// 队列中最多只有一个等待中的任务，提交永远不会因持久层变慢而阻塞。
type Controller struct {
	volatile *cache.Volatile
	store    cache.Store
	logger   *logrus.Logger
	metrics  *metrics.Collector

	// mu 保证“替换内存层 + 入队”是一个整体，使持久层最终状态与最后一次内存替换一致。
	mu     sync.Mutex
	closed atomic.Bool

	// qmu 只保护等待槽位，持有时间极短。
	qmu    sync.Mutex
	qcond  *sync.Cond
	queued *Job

	pending atomic.Int64
	lastMu  sync.RWMutex
	last    *JobResult
	stopped chan struct{}
}

// Status 是控制器的诊断快照。
type Status struct {
	Pending int64      `json:"pending"`
	Closed  bool       `json:"closed"`
	LastJob *JobResult `json:"last_job,omitempty"`
}

// New 构造控制器并启动持久化 worker。
func New(opts Options) (*Controller, error) {
	if opts.Volatile == nil {
		return nil, errors.New("volatile cache is required")
	}
	if opts.Store == nil {
		return nil, errors.New("durable store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	c := &Controller{
		volatile: opts.Volatile,
		store:    opts.Store,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		stopped:  make(chan struct{}),
	}
	c.qcond = sync.NewCond(&c.qmu)
	go c.run()
	return c, nil
}

// Dispatch 执行一条控制命令。无效命令被静默忽略，返回 (nil, nil)。
func (c *Controller) Dispatch(cmd Command) (*Job, error) {
	if !cmd.Valid() {
		c.logger.WithFields(logrus.Fields{
			"action": "control",
			"type":   cmd.Type,
		}).Debug("control_ignored")
		return nil, nil
	}
	if cmd.Type == TypeClearPersistence {
		return c.ClearAll()
	}
	return c.ReplaceAll(cmd.Files)
}

// ReplaceAll 立即以 set 重建内存层，然后排队执行“清空持久层 → 批量写入”。
func (c *Controller) ReplaceAll(set cache.FileSet) (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.volatile.Replace(set)
	c.metrics.SetVolatileEntries(c.volatile.Len())

	job := newJob(KindReplaceAll, set.Files())
	c.enqueue(job)
	return job, nil
}

// ClearAll 立即清空内存层，然后排队清空持久层。
func (c *Controller) ClearAll() (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.volatile.Clear()
	c.metrics.SetVolatileEntries(0)

	job := newJob(KindClearAll, nil)
	c.enqueue(job)
	return job, nil
}

// enqueue 需在持有 mu 时调用，不会阻塞：槽位中尚未执行的任务被 job 合并，
// 其 Wait 在 job 完成时一并返回。
func (c *Controller) enqueue(job *Job) {
	c.qmu.Lock()
	if prev := c.queued; prev != nil {
		job.absorb(prev)
		c.pending.Add(-1)
		c.logger.WithFields(logrus.Fields{
			"action":        "sync",
			"command":       string(prev.Kind),
			"job_id":        prev.ID,
			"superseded_by": job.ID,
		}).Debug("sync_superseded")
	}
	c.queued = job
	c.pending.Add(1)
	c.qcond.Signal()
	c.qmu.Unlock()
}

// Close 停止接收命令并等待已排队的持久化阶段完成，ctx 结束时提前返回。
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed.Store(true)
	c.mu.Unlock()

	c.qmu.Lock()
	c.qcond.Broadcast()
	c.qmu.Unlock()

	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped 在 worker 退出后关闭，此后不会再访问持久层。
func (c *Controller) Stopped() <-chan struct{} {
	return c.stopped
}

// Status 返回当前排队数量与最近一次完成的任务，不会等待持久层。
func (c *Controller) Status() Status {
	c.lastMu.RLock()
	var last *JobResult
	if c.last != nil {
		copied := *c.last
		last = &copied
	}
	c.lastMu.RUnlock()

	return Status{
		Pending: c.pending.Load(),
		Closed:  c.closed.Load(),
		LastJob: last,
	}
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		c.qmu.Lock()
		for c.queued == nil && !c.closed.Load() {
			c.qcond.Wait()
		}
		job := c.queued
		c.queued = nil
		c.qmu.Unlock()

		if job == nil {
			return
		}
		c.execute(job)
	}
}

// execute 在后台上下文中运行持久化阶段，任务本身没有超时或取消路径。
func (c *Controller) execute(job *Job) {
	ctx := context.Background()
	started := time.Now()

	var err error
	switch job.Kind {
	case KindReplaceAll:
		// 先清空再写入：崩溃最多留下部分写入的新批次，不会留下新旧混合。
		if err = c.store.ClearAll(ctx); err == nil {
			err = c.store.PutAll(ctx, job.files)
		}
	case KindClearAll:
		err = c.store.ClearAll(ctx)
	}

	elapsed := time.Since(started)
	c.metrics.ObserveSync(string(job.Kind), err, elapsed)
	c.logResult(job, elapsed, err)

	finishedAt := time.Now().UTC()
	result := &JobResult{
		ID:         job.ID,
		Kind:       job.Kind,
		Files:      job.FileCount(),
		FinishedAt: finishedAt,
		ElapsedMs:  elapsed.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	c.lastMu.Lock()
	c.last = result
	c.lastMu.Unlock()
	c.pending.Add(-1)

	job.finish(err)
}

func (c *Controller) logResult(job *Job, elapsed time.Duration, err error) {
	fields := logrus.Fields{
		"action":     "sync",
		"command":    string(job.Kind),
		"job_id":     job.ID,
		"files":      job.FileCount(),
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		c.logger.WithFields(fields).Error("sync_failed")
		return
	}
	switch job.Kind {
	case KindReplaceAll:
		c.logger.WithFields(fields).Info("all files persisted")
	case KindClearAll:
		c.logger.WithFields(fields).Info("store cleared")
	}
}
