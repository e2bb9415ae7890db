package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/mediaworker/internal/domain"
)

const queueDepth = 16

var (
	ErrNotStarted = errors.New("pool not started")
	ErrStopped    = errors.New("pool stopped")
)

// Task is one unit of work for a stream. Exactly one of Frame or Document is set.
type Task struct {
	JobID       string
	StreamIndex int
	Frame       *domain.Frame
	Document    *domain.Document
}

type Result struct {
	Task     Task
	Frame    *domain.FrameResult
	Subtitle *domain.SubtitleResult
	Err      error
}

type Handler func(ctx context.Context, task Task) Result

// Pool fans tasks out over a fixed set of workers. Every task for a given
// stream index goes to the same worker, so per-stream order is kept while
// different streams run in parallel. Callers must drain Results.
type Pool struct {
	size    int
	handler Handler
	logger  *slog.Logger

	mu      sync.RWMutex
	queues  []chan Task
	results chan Result
	cancel  context.CancelFunc
	group   *errgroup.Group
	stopped bool
}

func NewPool(size int, handler Handler, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:    size,
		handler: handler,
		logger:  logger,
		results: make(chan Result, size*queueDepth),
	}
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	if p.cancel != nil {
		return fmt.Errorf("pool already started")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)

	p.queues = make([]chan Task, p.size)
	for i := range p.queues {
		queue := make(chan Task, queueDepth)
		p.queues[i] = queue
		id := i
		p.group.Go(func() error {
			return p.worker(ctx, id, queue)
		})
	}

	p.logger.Debug("dispatch pool started", "workers", p.size)
	return nil
}

// Submit queues a task, blocking while the stream's worker is busy.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}
	if p.cancel == nil {
		return ErrNotStarted
	}
	if task.StreamIndex < 0 {
		return fmt.Errorf("submit task: negative stream index %d", task.StreamIndex)
	}

	select {
	case p.queues[task.StreamIndex%p.size] <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Results() <-chan Result {
	return p.results
}

// Stop lets queued tasks finish, waits for the workers and closes Results.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.cancel != nil
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	var err error
	if started {
		err = p.group.Wait()
		p.cancel()
	}
	close(p.results)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) worker(ctx context.Context, id int, queue <-chan Task) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-queue:
			if !ok {
				return nil
			}
			res := p.run(ctx, id, task)
			select {
			case p.results <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "worker", id, "job_id", task.JobID, "stream_index", task.StreamIndex, "panic", r)
			res = Result{Task: task, Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()

	res = p.handler(ctx, task)
	res.Task = task
	return res
}
