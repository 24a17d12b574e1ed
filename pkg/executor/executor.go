// Package executor provides the execution contexts a listener can choose for
// receiving fire-and-forget notifications.
package executor

import (
	"fmt"
	"strings"
)

// Executor runs submitted tasks. Execute must not wait for the task to finish
// unless the implementation documents it (Inline).
type Executor interface {
	Execute(task func())
}

// Func adapts an ordinary function to the Executor interface.
type Func func(task func())

// Execute calls f(task).
func (f Func) Execute(task func()) {
	f(task)
}

// Inline runs tasks on the submitting goroutine.
type Inline struct{}

// Execute runs task immediately.
func (Inline) Execute(task func()) {
	task()
}

// Goroutine runs every task on its own goroutine.
type Goroutine struct{}

// Execute starts task on a new goroutine.
func (Goroutine) Execute(task func()) {
	go task()
}

// Type names an executor implementation in configuration.
type Type string

const (
	TypeInline    Type = "inline"
	TypeGoroutine Type = "goroutine"
	TypePool      Type = "pool"
)

// Config selects and sizes an executor.
type Config struct {
	Type      Type
	Workers   int
	QueueSize int
}

// New builds an executor from configuration. Pool executors are started; the
// returned stop func releases them and is a no-op for the other types.
func New(cfg Config) (Executor, func(), error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case TypeInline:
		return Inline{}, func() {}, nil
	case TypeGoroutine, "":
		return Goroutine{}, func() {}, nil
	case TypePool:
		p := NewPool(cfg.Workers, cfg.QueueSize)
		p.Start()
		return p, p.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown executor type %q", cfg.Type)
	}
}
