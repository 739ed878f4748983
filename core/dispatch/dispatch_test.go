package dispatch

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onLooper 通过调用栈判断当前是否运行在 Looper.Run 中。
func onLooper() bool {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if strings.HasSuffix(f.Function, "dispatch.(*Looper).Run") {
			return true
		}
		if !more {
			return false
		}
	}
}

func startLooper(t *testing.T) *Looper {
	t.Helper()
	l := NewLooper(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l
}

func TestGoDeliversOnceOnMain(t *testing.T) {
	l := startLooper(t)
	d := NewDispatcher(l)
	t.Cleanup(func() { d.Shutdown(context.Background()) })

	var calls atomic.Int32
	var callFinished atomic.Bool
	done := make(chan struct{})
	Go(d, "echo", func(ctx context.Context) (string, error) {
		assert.False(t, onLooper(), "后台调用不应运行在主上下文")
		time.Sleep(10 * time.Millisecond)
		callFinished.Store(true)
		return "ok", nil
	}, func(v string, err error) {
		calls.Add(1)
		assert.True(t, onLooper(), "回调应运行在主上下文")
		assert.True(t, callFinished.Load(), "回调应在调用完成之后")
		assert.NoError(t, err)
		assert.Equal(t, "ok", v)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("回调未被调用")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoDeliversFailure(t *testing.T) {
	l := startLooper(t)
	d := NewDispatcher(l)
	want := errors.New("boom")
	got := make(chan error, 1)
	Go(d, "fail", func(ctx context.Context) (int, error) {
		return 0, want
	}, Callbacks(func(int) {
		t.Error("不应调用成功回调")
	}, func(err error) {
		got <- err
	}))
	select {
	case err := <-got:
		assert.ErrorIs(t, err, want)
	case <-time.After(2 * time.Second):
		t.Fatal("失败回调未被调用")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	l := startLooper(t)
	d := NewDispatcher(l, WithWorkers(1))
	got := make(chan error, 1)
	Go(d, "panic", func(ctx context.Context) (int, error) {
		panic("oops")
	}, func(_ int, err error) { got <- err })

	select {
	case err := <-got:
		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "oops", pe.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("panic 应作为失败投递")
	}

	// 工作 goroutine 仍然可用
	out := <-Async(d, "after", func(ctx context.Context) (int, error) { return 7, nil })
	assert.Equal(t, 7, out.Value)
}

func TestSingleWorkerIsFIFO(t *testing.T) {
	d := NewDispatcher(PosterFunc(func(fn func()) { fn() }), WithWorkers(1))
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		Go(d, "fifo", func(ctx context.Context) (int, error) {
			return i, nil
		}, func(v int, _ error) {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestSubmitNeverBlocks(t *testing.T) {
	d := NewDispatcher(PosterFunc(func(fn func()) { fn() }), WithWorkers(1))
	release := make(chan struct{})
	var ran atomic.Int32
	start := time.Now()
	for i := 0; i < 1000; i++ {
		d.Submit("slow", func(ctx context.Context) error {
			<-release
			ran.Add(1)
			return nil
		})
	}
	assert.Less(t, time.Since(start), time.Second, "提交不应阻塞调用方")
	assert.GreaterOrEqual(t, d.Pending(), 999)

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(1000), ran.Load(), "关闭前已排队的任务都应执行")
}

func TestPoolRunsConcurrently(t *testing.T) {
	d := NewDispatcher(PosterFunc(func(fn func()) { fn() }))
	assert.Equal(t, DefaultWorkers, d.Workers())

	var active, peak atomic.Int32
	for i := 0; i < 10; i++ {
		d.Submit("wide", func(ctx context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(DefaultWorkers), peak.Load())
}

func TestTaskStatusNotifications(t *testing.T) {
	d := NewDispatcher(PosterFunc(func(fn func()) { fn() }), WithWorkers(1))
	var mu sync.Mutex
	var seen []Status
	d.Subscribe(func(task *Task) {
		mu.Lock()
		seen = append(seen, task.Status)
		mu.Unlock()
	})

	block := make(chan struct{})
	id := d.Submit("watched", func(ctx context.Context) error {
		<-block
		return errors.New("failed")
	})
	task, err := d.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "watched", task.Name)
	assert.Len(t, d.ListTasks(), 1)

	close(block)
	require.NoError(t, d.Shutdown(context.Background()))

	_, err = d.GetTask(id)
	assert.ErrorIs(t, err, ErrTaskNotFound, "结束的任务应被移除")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusQueued, StatusRunning, StatusFailed}, seen)
}

func TestShutdownStillDeliversOnce(t *testing.T) {
	d := NewDispatcher(PosterFunc(func(fn func()) { fn() }))
	require.NoError(t, d.Shutdown(context.Background()))

	var calls atomic.Int32
	var got error
	Go(d, "late", func(ctx context.Context) (int, error) {
		t.Error("关闭后不应再执行")
		return 0, nil
	}, func(_ int, err error) {
		calls.Add(1)
		got = err
	})
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, got, ErrDispatcherShutdown)

	out := <-Async(d, "late", func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, out.Err, ErrDispatcherShutdown)
}

func TestLooperSerialAndQuit(t *testing.T) {
	l := NewLooper(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	l.Post(func() { panic("ignored") })
	l.Post(func() { order = append(order, 5) })
	assert.Equal(t, 7, l.Pending())
	l.Quit()

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
	select {
	case <-l.Done():
	default:
		t.Fatal("Quit 且队列清空后 Done 应关闭")
	}

	ran := false
	l.Post(func() { ran = true })
	assert.True(t, ran, "退出后投递的函数应在调用方直接执行")
	assert.Zero(t, l.Pending())
}

func TestShutdownWithQuitLooperStillDelivers(t *testing.T) {
	l := NewLooper(nil)
	l.Start()
	d := NewDispatcher(l)
	require.NoError(t, d.Shutdown(context.Background()))
	l.Quit()
	<-l.Done()

	var calls atomic.Int32
	var got error
	Go(d, "late", func(ctx context.Context) (int, error) {
		return 0, nil
	}, func(_ int, err error) {
		calls.Add(1)
		got = err
	})
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, got, ErrDispatcherShutdown)
}

func TestLooperRejectsConcurrentRun(t *testing.T) {
	l := NewLooper(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	l.Post(func() { close(started) })
	go l.Run(ctx)
	<-started
	assert.ErrorIs(t, l.Run(ctx), ErrLooperRunning)
}

func TestLooperRunStopsOnContext(t *testing.T) {
	l := NewLooper(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Run(ctx), context.DeadlineExceeded)
}
