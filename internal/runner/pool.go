package runner

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task represents a unit of work.
type Task func(workerID int) error

// WorkerPool manages a pool of worker goroutines.
type WorkerPool struct {
	NumWorkers  int
	Tasks       chan Task
	logger      *slog.Logger
	mu          sync.RWMutex
	wg          sync.WaitGroup // Workers WG
	taskWG      sync.WaitGroup // Tasks WG
	activeTasks int64
	failed      int64
	completed   int64
	stopOnce    sync.Once
}

// NewWorkerPool creates a new worker pool. A non-positive worker count is
// treated as one.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	// Buffered so that submitting a whole scan does not block on slow workers
	bufferSize := numWorkers * 10
	if bufferSize < 100 {
		bufferSize = 100
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		Tasks:      make(chan Task, bufferSize),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the pool in a thread-safe way.
func (p *WorkerPool) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = l
}

func (p *WorkerPool) getLogger() *slog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	p.getLogger().Debug("Starting worker pool", "workers", p.NumWorkers)
	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for task := range p.Tasks {
		atomic.AddInt64(&p.activeTasks, 1)
		if err := task(id); err != nil {
			atomic.AddInt64(&p.failed, 1)
			p.getLogger().Debug("Task failed", "worker", id, "error", err)
		} else {
			atomic.AddInt64(&p.completed, 1)
		}
		atomic.AddInt64(&p.activeTasks, -1)
		p.taskWG.Done()
	}
}

// Submit adds a task to the pool.
func (p *WorkerPool) Submit(t Task) {
	p.taskWG.Add(1)
	p.Tasks <- t
}

// Wait waits for all submitted tasks to complete.
func (p *WorkerPool) Wait() {
	p.taskWG.Wait()
}

// Stop closes the task channel and waits for workers to finish. It is safe
// to call more than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.Tasks)
		p.wg.Wait()
		p.getLogger().Debug("Worker pool stopped",
			"completed", atomic.LoadInt64(&p.completed),
			"failed", atomic.LoadInt64(&p.failed))
	})
}

// ActiveCount returns the number of currently executing tasks.
func (p *WorkerPool) ActiveCount() int {
	return int(atomic.LoadInt64(&p.activeTasks))
}

// Completed returns how many tasks returned nil.
func (p *WorkerPool) Completed() int {
	return int(atomic.LoadInt64(&p.completed))
}

// Failed returns how many tasks returned an error.
func (p *WorkerPool) Failed() int {
	return int(atomic.LoadInt64(&p.failed))
}
