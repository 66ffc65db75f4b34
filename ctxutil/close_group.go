// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"os"
	"sync"
)

// CloseGroup runs background goroutines that share a single lifetime
// context. Zero value is ready to use.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

// Cancel signals all goroutines to stop, but doesn't wait for them to return.
func (cg *CloseGroup) Cancel() {
	cg.once.Do(cg.init)
	cg.causeFunc(os.ErrClosed)
}

// Wait blocks till all goroutines started with Go have returned.
func (cg *CloseGroup) Wait() {
	cg.wg.Wait()
}

// Close cancels the lifetime context and waits for all goroutines.
func (cg *CloseGroup) Close() {
	cg.Cancel()
	cg.wg.Wait()
}

// Context returns the lifetime context, which is canceled by Cancel or Close.
func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.closeCtx
}

func (cg *CloseGroup) Go(f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		f(cg.closeCtx)
	}()
}
