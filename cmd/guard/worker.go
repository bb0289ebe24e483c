// cmd/guard/worker.go
package main

import (
	"context"
	"fmt"
	"runtime/debug"
)

// logMirrorQueue bounds log lines waiting for the broker.
const logMirrorQueue = 256

// worker is one long-lived loop supervised by the errgroup.
type worker struct {
	name string
	run  func(context.Context) error
}

// guarded runs w and turns a panic into an error.
func (w worker) guarded(ctx context.Context) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v\n%s", w.name, r, debug.Stack())
			}
		}()
		return w.run(ctx)
	}
}
