package executor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goclaw/oembridge/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultPoolWorkers   = 4
	defaultPoolQueueSize = 64
)

// ErrRejected is returned by Submit when the pool is stopped or its queue is full.
var ErrRejected = errors.New("executor: task rejected")

// Submitter is implemented by executors that can refuse a task without
// blocking the caller.
type Submitter interface {
	Submit(task func()) error
}

// Pool runs tasks on a fixed set of worker goroutines fed by a buffered
// queue. Submission never blocks: tasks offered to a stopped pool or to a
// full queue are dropped and counted.
type Pool struct {
	workers int
	taskCh  chan func()
	log     logger.Logger
	dropLog rate.Sometimes

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	tasksProcessed atomic.Int64
	tasksPanicked  atomic.Int64
	tasksDropped   atomic.Int64
}

// NewPool creates a Pool. Non-positive sizes fall back to defaults.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = defaultPoolWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultPoolQueueSize
	}
	return &Pool{
		workers: workers,
		taskCh:  make(chan func(), queueSize),
		log:     logger.Global().With("component", "executor.pool"),
		stopCh:  make(chan struct{}),
		dropLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Start starts the workers.
func (p *Pool) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop stops accepting tasks, drains the queue and waits for the workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.running.Store(false)
		close(p.stopCh)
		p.wg.Wait()
	})
}

// Execute queues task without waiting. A task that cannot be queued is
// dropped.
func (p *Pool) Execute(task func()) {
	_ = p.Submit(task)
}

// Submit queues task without waiting and returns ErrRejected when the pool
// is stopped or the queue is full.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return nil
	}
	if !p.TryExecute(task) {
		p.tasksDropped.Add(1)
		p.dropLog.Do(func() {
			p.log.Warn("executor dropped task",
				"running", p.running.Load(),
				"queue_size", cap(p.taskCh),
				"dropped", p.tasksDropped.Load(),
			)
		})
		return ErrRejected
	}
	return nil
}

// TryExecute queues task without blocking and reports whether it was queued.
func (p *Pool) TryExecute(task func()) bool {
	if task == nil || !p.running.Load() {
		return false
	}
	select {
	case p.taskCh <- task:
		return true
	default:
		return false
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.taskCh:
			p.run(task)
		case <-p.stopCh:
			for {
				select {
				case task := <-p.taskCh:
					p.run(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.tasksPanicked.Add(1)
			p.log.Error("executor task panicked", "panic", r)
		}
	}()

	task()
	p.tasksProcessed.Add(1)
}

// TasksProcessed returns the number of tasks that completed normally.
func (p *Pool) TasksProcessed() int64 {
	return p.tasksProcessed.Load()
}

// TasksPanicked returns the number of tasks that panicked.
func (p *Pool) TasksPanicked() int64 {
	return p.tasksPanicked.Load()
}

// TasksDropped returns the number of tasks rejected because the pool was
// stopped or its queue was full.
func (p *Pool) TasksDropped() int64 {
	return p.tasksDropped.Load()
}

// IsRunning reports whether the pool accepts tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
