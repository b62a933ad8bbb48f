package analysis

import (
	"runtime"
	"sync"
)

// WorkItem is a value tagged with its position in the input.
type WorkItem[T any] struct {
	Seq   int
	Value T
}

// WorkResult is the outcome of one WorkItem, tagged with the same position.
type WorkResult[R any] struct {
	Seq   int
	Value R
	Err   error
}

// Parallel runs fn over items on a pool of workers (NumCPU when workers is
// not positive). Results arrive in completion order; the channel is closed
// once items is drained and every worker has returned.
func Parallel[T, R any](items <-chan WorkItem[T], workers int, fn func(T) (R, error)) <-chan WorkResult[R] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make(chan WorkResult[R], 2*workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for it := range items {
				v, err := fn(it.Value)
				out <- WorkResult[R]{Seq: it.Seq, Value: v, Err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// OrderedCollect hands results to fn by ascending Seq, holding early
// arrivals until their turn. It returns the first error from fn after
// draining results.
func OrderedCollect[R any](results <-chan WorkResult[R], fn func(WorkResult[R]) error) error {
	held := make(map[int]WorkResult[R])
	next := 0
	for r := range results {
		held[r.Seq] = r
		for ready, ok := held[next]; ok; ready, ok = held[next] {
			delete(held, next)
			next++
			if err := fn(ready); err != nil {
				for range results {
				}
				return err
			}
		}
	}
	return nil
}

// mapOrdered runs fn over values on workers and returns the outputs in input
// order. The error of the earliest failing value is returned.
func mapOrdered[T, R any](values []T, workers int, fn func(T) (R, error)) ([]R, error) {
	items := make(chan WorkItem[T], len(values))
	for i, v := range values {
		items <- WorkItem[T]{Seq: i, Value: v}
	}
	close(items)

	out := make([]R, 0, len(values))
	err := OrderedCollect(Parallel(items, workers, fn), func(r WorkResult[R]) error {
		if r.Err != nil {
			return r.Err
		}
		out = append(out, r.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
