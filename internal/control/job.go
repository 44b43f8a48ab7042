package control

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropview/dropview/internal/cache"
)

// Kind 区分两类持久化任务，同时作为日志/指标的 command 标签。
type Kind string

const (
	KindReplaceAll Kind = "replace_all"
	KindClearAll   Kind = "clear_all"
)

// Job 表示一次已提交、在后台执行的持久化阶段。
type Job struct {
	ID   string
	Kind Kind

	files []cache.StoredFile
	count int
	done  chan struct{}
	err   error

	// absorbed 是被本任务合并、尚未执行的旧任务，随本任务一起结束。
	absorbed []*Job
}

func newJob(kind Kind, files []cache.StoredFile) *Job {
	return &Job{
		ID:    uuid.NewString(),
		Kind:  kind,
		files: files,
		count: len(files),
		done:  make(chan struct{}),
	}
}

// FileCount 返回该任务提交时携带的文件数。
func (j *Job) FileCount() int {
	return j.count
}

// absorb 接管 prev：prev 不再执行，其文件随即释放。
func (j *Job) absorb(prev *Job) {
	j.absorbed = append(j.absorbed, prev.absorbed...)
	j.absorbed = append(j.absorbed, prev)
	prev.absorbed = nil
	prev.files = nil
}

// Done 在持久化阶段结束（成功或失败）后关闭。
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait 阻塞到持久化阶段结束，返回其错误；ctx 先结束时返回 ctx.Err()。
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finish(err error) {
	for _, prev := range j.absorbed {
		prev.finish(err)
	}
	j.absorbed = nil
	j.err = err
	close(j.done)
}

// JobResult 是最近一次完成任务的摘要，供 /-/status 输出。
type JobResult struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Files      int       `json:"files"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	ElapsedMs  int64     `json:"elapsed_ms"`
}
