package cycle

import (
	"sync"

	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/kernelcache"
	"github.com/example/harmonics-go/internal/precision"
	"github.com/example/harmonics-go/internal/registry"
	"github.com/example/harmonics-go/internal/tensor"
)

// DebugCallback is invoked once per arrow after the state slot it targets
// has been written.
type DebugCallback func(source, target graph.NodeId, backward bool, funcName string)

// options configures a Runtime, following the donor server package's
// functional-options pattern.
type options struct {
	policy        precision.Policy
	secure        bool
	requested     device.Backend
	registry      *registry.Registry
	debugCallback DebugCallback
	multiThreaded bool
	kernels       *kernelcache.Cache
}

// Option configures a Runtime at construction time.
type Option func(*options)

// WithPolicy sets the precision policy consulted on each layer's first write.
func WithPolicy(p precision.Policy) Option { return func(o *options) { o.policy = p } }

// WithSecure enables proof-chain computation after every forward pass.
func WithSecure(secure bool) Option { return func(o *options) { o.secure = secure } }

// WithBackend sets the requested backend; Resolve() applies the precedence
// rules in internal/device to pick the backend actually used.
func WithBackend(b device.Backend) Option { return func(o *options) { o.requested = b } }

// WithRegistry sets the activation/loss registry; defaults to registry.Default().
func WithRegistry(r *registry.Registry) Option { return func(o *options) { o.registry = r } }

// WithDebugCallback installs a callback fired after every arrow.
func WithDebugCallback(cb DebugCallback) Option { return func(o *options) { o.debugCallback = cb } }

// WithMultiThreaded enables the per-flow-line worker-pool forward pass.
func WithMultiThreaded(enabled bool) Option { return func(o *options) { o.multiThreaded = enabled } }

// WithKernelCache installs a shared kernel-compile cache, e.g. the same
// instance an admin server reports compile counters from. Defaults to a
// private cache per Runtime.
func WithKernelCache(c *kernelcache.Cache) Option { return func(o *options) { o.kernels = c } }

// Runtime owns one State for one Graph and executes forward passes against
// a resolved backend.
type Runtime struct {
	graph    *graph.Graph
	policy   precision.Policy
	secure   bool
	backend  device.Backend
	registry *registry.Registry
	debug    DebugCallback
	threaded bool

	// kernels and dev back the accelerator forward path: kernels compiles
	// and caches the per-cycle op list, dev performs the host<->device
	// byte copies every op issues around its activation.
	kernels *kernelcache.Cache
	dev     device.Device
	ring    *device.Ring

	state State

	producers []producerBinding
	consumers []ConsumerFunc

	proof string
	chain string

	// fetchMu guards producer_tensors and the fetched bitmap during the
	// multi-threaded forward pass, where concurrent arrows within a flow
	// line may each read a backward arrow's target that happens to be a
	// producer node.
	fetchMu sync.Mutex
}

type producerBinding struct {
	bound bool
	p     ProducerFunc
}

// ProducerFunc adapts a function into the producer interface the cycle
// runtime binds by name: it returns the next tensor, or an error.
type ProducerFunc func() (tensor.Tensor, error)

// ConsumerFunc adapts a function into the consumer interface: it receives
// a tensor written to that consumer's slot during a forward pass.
type ConsumerFunc func(tensor.Tensor) error

// New creates a Runtime over g with the given options, resolving the
// backend using the deployment precedence rules in internal/device.
func New(g *graph.Graph, opts ...Option) *Runtime {
	o := options{
		policy:    precision.Fixed{Bits: 32},
		requested: device.Auto,
		registry:  registry.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	kernels := o.kernels
	if kernels == nil {
		kernels = kernelcache.NewCache()
	}
	dev := device.HostDevice{}

	return &Runtime{
		graph:     g,
		policy:    o.policy,
		secure:    o.secure,
		backend:   device.Resolve(o.requested),
		registry:  o.registry,
		debug:     o.debugCallback,
		threaded:  o.multiThreaded,
		kernels:   kernels,
		dev:       dev,
		ring:      device.NewRing(dev),
		state:     NewState(g),
		producers: make([]producerBinding, len(g.Producers)),
		consumers: make([]ConsumerFunc, len(g.Consumers)),
	}
}

// KernelCache returns the runtime's kernel-compile cache, shared with an
// admin server's metrics handler when constructed via WithKernelCache.
func (r *Runtime) KernelCache() *kernelcache.Cache { return r.kernels }

// Graph returns the graph this runtime executes.
func (r *Runtime) Graph() *graph.Graph { return r.graph }

// State returns the runtime's mutable cycle state.
func (r *Runtime) State() *State { return &r.state }

// Backend returns the resolved backend.
func (r *Runtime) Backend() device.Backend { return r.backend }

// Proof returns the most recently computed proof string (empty if the
// runtime has never run in secure mode, or has not yet run at all).
func (r *Runtime) Proof() string { return r.proof }

// Chain returns the current hash-chain value.
func (r *Runtime) Chain() string { return r.chain }

// SetChain seeds the chain value, used by the distributed scheduler when a
// downstream partition receives an upstream proof over a boundary bus.
func (r *Runtime) SetChain(chain string) { r.chain = chain }

// EnableMultiThreading toggles the per-flow-line worker-pool forward pass.
func (r *Runtime) EnableMultiThreading(enabled bool) { r.threaded = enabled }

// MultiThreadingEnabled reports whether the threaded forward pass is active.
func (r *Runtime) MultiThreadingEnabled() bool { return r.threaded }

// BindProducer binds a producer function to the named producer node.
func (r *Runtime) BindProducer(name string, p ProducerFunc) error {
	id, ok := r.graph.Find(name)
	if !ok || id.Kind != graph.Producer {
		return errUnknownProducer(name)
	}
	r.producers[id.Index] = producerBinding{bound: true, p: p}
	return nil
}

// BindConsumer binds a consumer function to the named consumer node; it is
// invoked with every tensor written to that consumer's slot.
func (r *Runtime) BindConsumer(name string, c ConsumerFunc) error {
	id, ok := r.graph.Find(name)
	if !ok || id.Kind != graph.Consumer {
		return errUnknownConsumer(name)
	}
	r.consumers[id.Index] = c
	return nil
}
