package meshgen

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
)

// Status is the state of a started generation.
type Status int

const (
	Pending Status = iota
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "pending"
}

// Handle tracks one generation. Poll never blocks; Result is valid once Poll
// reports Done or Failed.
type Handle interface {
	Poll() Status
	Result() (*MeshData, error)
	Cancel()
}

// Generator starts mesh generations.
type Generator interface {
	Start(job Job) Handle
	Close()
}

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// handle is the Handle shared by both generators.
type handle struct {
	once     sync.Once
	done     chan struct{}
	canceled atomic.Bool

	mesh *MeshData
	err  error
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

func (h *handle) finish(md *MeshData, err error) {
	h.once.Do(func() {
		h.mesh, h.err = md, err
		close(h.done)
	})
}

func (h *handle) Poll() Status {
	select {
	case <-h.done:
		if h.err != nil {
			return Failed
		}
		return Done
	default:
		return Pending
	}
}

func (h *handle) Result() (*MeshData, error) {
	select {
	case <-h.done:
		return h.mesh, h.err
	default:
		return nil, nil
	}
}

func (h *handle) Cancel() {
	h.canceled.Store(true)
	h.finish(nil, ErrCanceled)
}

// Wait blocks until the generation finished or was canceled.
func (h *handle) Wait() { <-h.done }

// CPUGenerator runs Generate on a bounded worker pool.
type CPUGenerator struct {
	settings *Settings
	pool     pond.Pool
}

// NewCPUGenerator creates a generator with the given number of workers.
func NewCPUGenerator(s *Settings, workers int) (*CPUGenerator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &CPUGenerator{settings: s, pool: pond.NewPool(workers)}, nil
}

// Start implements Generator.
func (g *CPUGenerator) Start(job Job) Handle {
	h := newHandle()
	g.pool.Submit(func() {
		if h.canceled.Load() {
			return
		}
		start := time.Now()
		md, err := Generate(g.settings, job)
		instrumentGeneration(pathCPU, start)
		h.finish(md, err)
	})
	return h
}

// Close waits for running jobs and stops the workers.
func (g *CPUGenerator) Close() {
	g.pool.StopAndWait()
}
