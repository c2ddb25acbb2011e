package tagpoll

import (
	"errors"
	"time"

	"github.com/primetalk/goio/io"
)

// SafeTask runs a fallible function as a synchronous effect with an
// optional timeout and a designated recovery branch. The recovery
// branch runs on any failure, timeout included.
type SafeTask[T any] struct {
	fn      func() (*T, error)
	timeout *time.Duration
	recover func(error) T
	onError func(error)
}

func NewTask[T any](fn func() (*T, error)) *SafeTask[T] {
	return &SafeTask[T]{fn: fn}
}

func (t *SafeTask[T]) WithTimeout(timeout time.Duration) *SafeTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeTask[T]) Recover(fn func(error) T) *SafeTask[T] {
	t.recover = fn
	return t
}

func (t *SafeTask[T]) OnError(fn func(error)) *SafeTask[T] {
	t.onError = fn
	return t
}

func (t *SafeTask[T]) Run() (T, error) {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.onError != nil {
			t.onError(result.Error)
		}
		if t.recover != nil {
			return t.recover(result.Error), nil
		}
		var zero T
		return zero, result.Error
	}
	return result.Value, nil
}
