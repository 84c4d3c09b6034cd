package cache

import "golang.org/x/sync/singleflight"

// Flight collapses concurrent calls for the same key into one execution.
type Flight[V any] struct {
	group singleflight.Group
}

// Do runs fn once per key among concurrent callers. shared is true when the
// result was handed to more than one caller.
func (f *Flight[V]) Do(key string, fn func() (V, error)) (v V, err error, shared bool) {
	res, err, shared := f.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if res != nil {
		v = res.(V)
	}
	return v, err, shared
}

// Forget drops the in-flight record so the next caller starts a fresh execution.
func (f *Flight[V]) Forget(key string) {
	f.group.Forget(key)
}

// Result is one DoChan answer.
type Result[V any] struct {
	Val    V
	Err    error
	Shared bool
}

// DoChan is Do without blocking: the caller can stop waiting while fn keeps running
// for the others. fn must not panic.
func (f *Flight[V]) DoChan(key string, fn func() (V, error)) <-chan Result[V] {
	ch := f.group.DoChan(key, func() (interface{}, error) {
		return fn()
	})
	out := make(chan Result[V], 1)
	go func() {
		res := <-ch
		var v V
		if res.Val != nil {
			v = res.Val.(V)
		}
		out <- Result[V]{Val: v, Err: res.Err, Shared: res.Shared}
	}()
	return out
}
