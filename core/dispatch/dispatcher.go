package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/dnslin/minapp-go/core/httpclient"
)

// DefaultWorkers 默认工作 goroutine 数量。
const DefaultWorkers = 5

// 错误定义。
var (
	ErrTaskNotFound       = errors.New("dispatch: 任务不存在")
	ErrDispatcherShutdown = errors.New("dispatch: 调度器已关闭")
)

// PanicError 后台调用发生 panic 时作为失败结果投递。
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: 后台调用 panic: %v", e.Value)
}

type job struct {
	task *Task
	run  func(ctx context.Context) error
	// abort 在调度器关闭后才提交时调用，保证回调依旧投递一次。
	abort func(err error)
}

// Dispatcher 固定数量的工作 goroutine 按 FIFO 顺序执行后台调用。队列无界，提交永不阻塞也不会被拒绝。
type Dispatcher struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []*job
	closed    bool
	tasks     map[string]*Task
	callbacks []StatusCallback

	workers int
	main    Poster
	logger  httpclient.Logger
	wg      sync.WaitGroup
}

// Option 调度器配置选项。
type Option func(*Dispatcher)

// WithWorkers 设置工作 goroutine 数量。
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger 注入日志。
func WithLogger(logger httpclient.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher 创建调度器并启动工作 goroutine，回调统一投递到 main。
func NewDispatcher(main Poster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tasks:   make(map[string]*Task),
		workers: DefaultWorkers,
		main:    main,
		logger:  httpclient.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.main == nil {
		looper := NewLooper(d.logger)
		looper.Start()
		d.main = looper
	}
	d.cond = sync.NewCond(&d.mu)
	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.worker()
	}
	return d
}

// Main 返回回调投递的主上下文。
func (d *Dispatcher) Main() Poster {
	return d.main
}

// Workers 返回工作 goroutine 数量。
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Pending 排队中的任务数量。
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Subscribe 订阅任务状态变化。
func (d *Dispatcher) Subscribe(callback StatusCallback) {
	if callback == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, callback)
}

// GetTask 获取未结束的任务。结束的任务会被移除。
func (d *Dispatcher) GetTask(taskID string) (*Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// ListTasks 列出未结束的任务。
func (d *Dispatcher) ListTasks() []*Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]*Task, 0, len(d.tasks))
	for _, task := range d.tasks {
		result = append(result, task.Clone())
	}
	return result
}

// Submit 提交一个后台调用，返回任务 ID。run 的错误只用于记录任务状态。
func (d *Dispatcher) Submit(name string, run func(ctx context.Context) error) string {
	return d.enqueue(name, run, nil)
}

func (d *Dispatcher) enqueue(name string, run func(ctx context.Context) error, abort func(error)) string {
	task := NewTask(uuid.NewString(), name)
	j := &job{task: task, run: run, abort: abort}

	// 先通知排队状态，再放入队列，保证订阅方看到的顺序与状态流转一致
	d.notify(task)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.reject(j)
		return task.ID
	}
	d.tasks[task.ID] = task
	d.queue = append(d.queue, j)
	d.mu.Unlock()
	d.cond.Signal()
	return task.ID
}

func (d *Dispatcher) reject(j *job) {
	d.logger.Errorf("dispatch: 调度器已关闭，任务 %s(%s) 直接失败", j.task.Name, j.task.ID)
	j.task.finish(ErrDispatcherShutdown)
	d.notify(j.task)
	if j.abort != nil {
		j.abort(ErrDispatcherShutdown)
	}
}

// Shutdown 停止接收新任务，等待已排队任务执行完成或 ctx 结束。
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		j, ok := d.next()
		if !ok {
			return
		}
		d.execute(j)
	}
}

// next 队列为空且已关闭时返回 false，关闭前已排队的任务仍会被执行。
func (d *Dispatcher) next() (*job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return nil, false
	}
	j := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return j, true
}

func (d *Dispatcher) execute(j *job) {
	j.task.start()
	d.notify(j.task)

	err := d.safeRun(j)
	j.task.finish(err)
	if err != nil {
		d.logger.Errorf("dispatch: 任务 %s(%s) 失败: %v", j.task.Name, j.task.ID, err)
	} else {
		d.logger.Debugf("dispatch: 任务 %s(%s) 完成", j.task.Name, j.task.ID)
	}

	d.mu.Lock()
	delete(d.tasks, j.task.ID)
	d.mu.Unlock()
	d.notify(j.task)
}

func (d *Dispatcher) safeRun(j *job) (err error) {
	if j.run == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return j.run(context.Background())
}

func (d *Dispatcher) notify(task *Task) {
	d.mu.Lock()
	callbacks := make([]StatusCallback, len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	clone := task.Clone()
	for _, cb := range callbacks {
		cb(clone)
	}
}
