package meshgen

import (
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// ComputeDevice samples vertex positions for a job the way a compute shader
// would: Dispatch returns immediately and the positions become available
// through an asynchronous readback.
type ComputeDevice interface {
	Dispatch(s *Settings, job Job) Readback
}

// Readback is the pending output buffer of one dispatch.
type Readback interface {
	// Ready reports whether the readback completed.
	Ready() bool
	// Positions returns the planet-space positions of the extended grid, or
	// the error the device reported for this readback.
	Positions() ([]mgl64.Vec3, error)
	// Release frees the device buffer.
	Release()
}

// ComputeGenerator samples positions on a ComputeDevice and finishes the mesh on
// a worker pool. A readback that reports an error is released and dispatched
// again; the caller only ever sees completed meshes.
type ComputeGenerator struct {
	settings *Settings
	device   ComputeDevice
	pool     pond.Pool
	log      *zap.Logger

	// poll is how often in-flight readbacks are checked.
	poll time.Duration
}

// NewComputeGenerator creates a generator that dispatches to device.
func NewComputeGenerator(s *Settings, device ComputeDevice, workers int, log *zap.Logger) (*ComputeGenerator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ComputeGenerator{
		settings: s,
		device:   device,
		pool:     pond.NewPool(workers),
		log:      log,
		poll:     time.Millisecond,
	}, nil
}

// Start implements Generator.
func (g *ComputeGenerator) Start(job Job) Handle {
	h := newHandle()
	g.pool.Submit(func() { g.run(h, job) })
	return h
}

func (g *ComputeGenerator) run(h *handle, job Job) {
	start := time.Now()
	rb := g.device.Dispatch(g.settings, job)
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		if h.canceled.Load() {
			rb.Release()
			return
		}
		if !rb.Ready() {
			<-ticker.C
			continue
		}
		positions, err := rb.Positions()
		rb.Release()
		if err != nil {
			instrumentReadbackRetry()
			g.log.Warn("readback failed, dispatching again",
				zap.Stringer("quad", job.Index),
				zap.Error(err))
			rb = g.device.Dispatch(g.settings, job)
			continue
		}
		md, err := Finish(g.settings, job, positions)
		instrumentGeneration(pathCompute, start)
		h.finish(md, err)
		return
	}
}

// Close waits for running jobs and stops the workers.
func (g *ComputeGenerator) Close() {
	g.pool.StopAndWait()
}

// SoftwareDevice is a ComputeDevice that runs the sampling kernel on its own
// worker pool.
type SoftwareDevice struct {
	pool pond.Pool
}

// NewSoftwareDevice creates a device with the given number of lanes.
func NewSoftwareDevice(lanes int) *SoftwareDevice {
	if lanes <= 0 {
		lanes = DefaultWorkers
	}
	return &SoftwareDevice{pool: pond.NewPool(lanes)}
}

// Dispatch implements ComputeDevice.
func (d *SoftwareDevice) Dispatch(s *Settings, job Job) Readback {
	rb := &softwareReadback{}
	d.pool.Submit(func() {
		out := SamplePositions(s, job)
		rb.mu.Lock()
		rb.positions, rb.ready = out, true
		rb.mu.Unlock()
	})
	return rb
}

// Close stops the device workers.
func (d *SoftwareDevice) Close() {
	d.pool.StopAndWait()
}

type softwareReadback struct {
	mu        sync.Mutex
	ready     bool
	positions []mgl64.Vec3
}

func (r *softwareReadback) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *softwareReadback) Positions() ([]mgl64.Vec3, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positions, nil
}

func (r *softwareReadback) Release() {
	r.mu.Lock()
	r.positions = nil
	r.mu.Unlock()
}
