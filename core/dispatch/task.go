// Package dispatch 提供后台执行网络调用并把结果投递回主上下文的能力。
package dispatch

import (
	"sync"
	"time"
)

// Status 任务状态。
type Status int

const (
	// StatusQueued 排队中。
	StatusQueued Status = iota
	// StatusRunning 执行中。
	StatusRunning
	// StatusSucceeded 成功。
	StatusSucceeded
	// StatusFailed 失败。
	StatusFailed
)

// String 返回任务状态的字符串表示。
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Finished 是否已结束。
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Task 表示一次后台调用。
type Task struct {
	mu sync.RWMutex

	ID         string
	Name       string
	Status     Status
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// NewTask 创建新任务。
func NewTask(id, name string) *Task {
	return &Task{
		ID:        id,
		Name:      name,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}

// GetStatus 获取任务状态。
func (t *Task) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// GetError 获取任务错误。
func (t *Task) GetError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Err
}

func (t *Task) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusRunning
	t.StartedAt = time.Now()
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Err = err
	t.Status = StatusSucceeded
	if err != nil {
		t.Status = StatusFailed
	}
	t.FinishedAt = time.Now()
}

// Clone 返回任务的副本（用于安全传递给回调）。
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return &Task{
		ID:         t.ID,
		Name:       t.Name,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		Err:        t.Err,
	}
}

// StatusCallback 状态变化回调，在工作 goroutine 上同步调用。
type StatusCallback func(task *Task)
