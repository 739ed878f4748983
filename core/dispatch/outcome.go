package dispatch

import (
	"context"
	"runtime/debug"
)

// Callback 接收一次后台调用的结果，err 非 nil 时 value 为零值。
type Callback[T any] func(value T, err error)

// Callbacks 由成功、失败两个函数组成 Callback，任一可为 nil。
func Callbacks[T any](onSuccess func(T), onFailure func(error)) Callback[T] {
	return func(value T, err error) {
		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(value)
		}
	}
}

// Outcome 后台调用的结果。
type Outcome[T any] struct {
	Value T
	Err   error
}

// Go 在工作 goroutine 上执行 call，完成后在主上下文上恰好调用一次 cb。提交不会阻塞调用方。
func Go[T any](d *Dispatcher, name string, call func(ctx context.Context) (T, error), cb Callback[T]) string {
	deliver := func(value T, err error) {
		if cb == nil {
			return
		}
		d.main.Post(func() { cb(value, err) })
	}
	run := func(ctx context.Context) error {
		value, err := invoke(ctx, call)
		deliver(value, err)
		return err
	}
	abort := func(err error) {
		var zero T
		deliver(zero, err)
	}
	return d.enqueue(name, run, abort)
}

// Async 与 Go 相同，但结果写入返回的 channel，不经过主上下文。
func Async[T any](d *Dispatcher, name string, call func(ctx context.Context) (T, error)) <-chan Outcome[T] {
	ch := make(chan Outcome[T], 1)
	run := func(ctx context.Context) error {
		value, err := invoke(ctx, call)
		ch <- Outcome[T]{Value: value, Err: err}
		return err
	}
	abort := func(err error) {
		ch <- Outcome[T]{Err: err}
	}
	d.enqueue(name, run, abort)
	return ch
}

func invoke[T any](ctx context.Context, call func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return call(ctx)
}
