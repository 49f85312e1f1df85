package utils

import (
	"context"
	"sync"
)

// ParallelForEach runs fn for every item with at most workers goroutines.
// The returned slice holds the error of each item at its index; items not
// started before ctx is cancelled keep a nil error.
func ParallelForEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) []error {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	errs := make([]error, len(items))
	taskChan := make(chan int, len(items))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-taskChan:
					if !ok || ctx.Err() != nil {
						return
					}
					errs[idx] = fn(ctx, items[idx])
				}
			}
		}()
	}

	for i := range items {
		select {
		case <-ctx.Done():
			close(taskChan)
			wg.Wait()
			return errs
		case taskChan <- i:
		}
	}

	close(taskChan)
	wg.Wait()

	return errs
}

// FirstError returns the first non-nil error from a slice of errors
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CollectErrors collects all non-nil errors from a slice
func CollectErrors(errs []error) []error {
	var result []error
	for _, err := range errs {
		if err != nil {
			result = append(result, err)
		}
	}
	return result
}
