package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/dnslin/minapp-go/core/httpclient"
)

// ErrLooperRunning Run 被并发调用。
var ErrLooperRunning = errors.New("dispatch: looper 已在运行")

// Poster 把函数投递到一个串行执行的上下文，Post 不得阻塞。
type Poster interface {
	Post(fn func())
}

// PosterFunc 适配普通函数。
type PosterFunc func(fn func())

// Post 实现 Poster。
func (f PosterFunc) Post(fn func()) {
	f(fn)
}

// Looper 单 goroutine 串行执行投递的函数，充当回调的主上下文。队列无界，Post 永不阻塞。
type Looper struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	quit    bool
	// drained Quit 之后 Run 已清空队列并返回，此后投递的函数在调用方直接执行。
	drained bool

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	logger   httpclient.Logger
}

// NewLooper 创建 Looper，需调用 Run 或 Start 后才会执行。
func NewLooper(logger httpclient.Logger) *Looper {
	if logger == nil {
		logger = httpclient.NopLogger{}
	}
	return &Looper{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post 实现 Poster。Looper 退出后投递的函数在调用方 goroutine 上立即执行，保证不会丢失。
func (l *Looper) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.drained {
		l.mu.Unlock()
		l.logger.Debugf("dispatch: looper 已退出，回调在调用方执行")
		l.exec(fn)
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run 在调用方 goroutine 上循环执行投递的函数，直到 ctx 结束或 Quit 后队列清空。
func (l *Looper) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLooperRunning
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		fn, quit := l.next()
		if fn != nil {
			l.exec(fn)
			continue
		}
		if quit {
			l.doneOnce.Do(func() { close(l.done) })
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Start 在新 goroutine 上运行 Looper。
func (l *Looper) Start() {
	go func() {
		if err := l.Run(context.Background()); err != nil && !errors.Is(err, ErrLooperRunning) {
			l.logger.Errorf("dispatch: looper 退出: %v", err)
		}
	}()
}

// Quit 已排队的函数执行完后 Run 返回。
func (l *Looper) Quit() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done 在 Quit 且队列清空后关闭。
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Pending 排队中的函数数量。
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Looper) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		if l.quit {
			l.drained = true
		}
		return nil, l.quit
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, false
}

func (l *Looper) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("dispatch: 回调 panic: %v", r)
		}
	}()
	fn()
}
