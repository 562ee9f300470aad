// Package workerpool implements the worker pool (C8): N goroutines
// draining a queue.Queue of tasks, handing task-level failures to a
// user-supplied OnException sink.
//
// Grounded on original_source/mapindexer/main.cpp's worker_pool (a
// ThreadPool<std::function<void()>, lf_queue<...>> subclass overriding
// exception_handler) and github.com/sirgallo/mari's background-goroutine
// idiom (handleFlush/handleResize: a goroutine looping over a channel or
// queue until told to stop).
package workerpool

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/leapus/mapindexer/internal/ierr"
	"github.com/leapus/mapindexer/internal/queue"
)

// Task is a unit of dispatched work: decode one blob and insert its
// primitives into the quadtree.
type Task func() error

// Pool runs a fixed number of goroutines draining a shared queue.
type Pool struct {
	queue       *queue.Queue[Task]
	onException func(error)

	wg       sync.WaitGroup
	shutOnce sync.Once
}

// Options configures a Pool.
type Options struct {
	// Workers is the number of goroutines to run. Values <= 0 or greater
	// than GOMAXPROCS are clamped to GOMAXPROCS, per spec §4.8
	// ("N = min(configured, hardware_concurrency)").
	Workers int
	// OnException is invoked (from the worker goroutine) when a task
	// returns an error. Defaults to logging via logrus and continuing.
	OnException func(error)
	Log          *logrus.Entry
}

// New starts a pool of workers draining q.
func New(q *queue.Queue[Task], opts Options) *Pool {
	n := opts.Workers
	if n <= 0 || n > runtime.GOMAXPROCS(0) {
		n = runtime.GOMAXPROCS(0)
	}

	onException := opts.OnException
	if onException == nil {
		log := opts.Log
		if log == nil {
			log = logrus.NewEntry(logrus.StandardLogger())
		}
		onException = func(err error) {
			log.WithField("component", "workerpool").WithError(err).Error("task failed")
		}
	}

	p := &Pool{queue: q, onException: onException}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run()
	}

	return p
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		task, err := p.queue.Pop()
		if err != nil {
			// ierr.ErrInterrupted is the only expected error here; any
			// other failure from Pop is a programming error, not
			// something a task-level handler should see.
			if err != ierr.ErrInterrupted {
				p.onException(err)
			}
			return
		}

		if err := p.safeRun(task); err != nil {
			p.onException(err)
		}
	}
}

// safeRun guards against a task panic the way the source's
// exception_handler guards against a thrown C++ exception escaping a
// worker thread: recovered and reported, not propagated.
func (p *Pool) safeRun(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return task()
}

type panicError struct{ v any }

func (p panicError) Error() string {
	return fmt.Sprintf("panic in worker task: %v", p.v)
}

// Shutdown interrupts the queue and joins all workers. Idempotent.
func (p *Pool) Shutdown() {
	p.shutOnce.Do(func() {
		p.queue.Interrupt()
		p.wg.Wait()
	})
}
