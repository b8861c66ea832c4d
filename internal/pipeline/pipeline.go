package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

var (
	// ErrToolNotFound is returned for an id that is not in the pipeline.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidConnection is returned for self-connections and unknown kinds.
	ErrInvalidConnection = errors.New("invalid connection")
	// ErrAlreadyRunning is returned when a run is requested while one is in flight.
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// DefaultROISize is the ROI used when a coordinate connection positions a
// tool that has no ROI of its own.
var DefaultROISize = image.Pt(100, 100)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run tracing.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithDefaultROISize overrides DefaultROISize for this pipeline.
func WithDefaultROISize(w, h int) Option {
	return func(p *Pipeline) {
		if w > 0 && h > 0 {
			p.defaultROI = image.Pt(w, h)
		}
	}
}

// Pipeline is an ordered list of tools, the connections between them and the
// outcome of the latest run.
type Pipeline struct {
	mu      sync.Mutex
	running atomic.Bool

	log        *slog.Logger
	defaultROI image.Point

	tools       []vision.Tool
	connections connectionSet
	source      image.Image

	results []*vision.Result
	overlay image.Image
	success bool
	elapsed time.Duration
}

// New returns an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultROI: DefaultROISize,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AddTool appends t to the end of the run order.
func (p *Pipeline) AddTool(t vision.Tool) error {
	if t == nil {
		return fmt.Errorf("add tool: %w: nil tool", vision.ErrInvalidParameter)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := t.Base().ID
	if p.indexOf(id) >= 0 {
		return fmt.Errorf("add tool: duplicate id %s: %w", id, vision.ErrInvalidParameter)
	}
	p.tools = append(p.tools, t)
	return nil
}

// Tool returns the tool with the given id.
func (p *Pipeline) Tool(id string) (vision.Tool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.indexOf(id); i >= 0 {
		return p.tools[i], true
	}
	return nil, false
}

// Tools returns the tools in run order.
func (p *Pipeline) Tools() []vision.Tool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]vision.Tool(nil), p.tools...)
}

// RemoveTool drops a tool and every connection that references it.
func (p *Pipeline) RemoveTool(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrToolNotFound)
	}
	p.tools = append(p.tools[:i], p.tools[i+1:]...)
	p.connections.removeTool(id)
	return nil
}

// MoveTool moves a tool to index, clamped to the list.
func (p *Pipeline) MoveTool(id string, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return fmt.Errorf("move %s: %w", id, ErrToolNotFound)
	}
	index = max(0, min(index, len(p.tools)-1))
	t := p.tools[i]
	p.tools = append(p.tools[:i], p.tools[i+1:]...)
	p.tools = append(p.tools[:index], append([]vision.Tool{t}, p.tools[index:]...)...)
	return nil
}

// ClearTools removes every tool, connection and result.
func (p *Pipeline) ClearTools() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = nil
	p.connections.clear()
	p.results = nil
	p.overlay = nil
	p.success = false
}

// Connect adds a connection. Connecting the same pair twice with the same kind
// is a no-op.
func (p *Pipeline) Connect(source, target string, kind ConnectionKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(source) < 0 {
		return fmt.Errorf("connect: source %s: %w", source, ErrToolNotFound)
	}
	if p.indexOf(target) < 0 {
		return fmt.Errorf("connect: target %s: %w", target, ErrToolNotFound)
	}
	if source == target {
		return fmt.Errorf("connect %s to itself: %w", source, ErrInvalidConnection)
	}
	if kind < ImageConnection || kind > CoordinatesConnection {
		return fmt.Errorf("connect: %w: kind %v", ErrInvalidConnection, kind)
	}
	p.connections.add(Connection{Source: source, Target: target, Kind: kind})
	return nil
}

// Disconnect removes a connection, reporting whether it existed.
func (p *Pipeline) Disconnect(source, target string, kind ConnectionKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connections.remove(Connection{Source: source, Target: target, Kind: kind})
}

// ClearConnections removes every connection.
func (p *Pipeline) ClearConnections() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connections.clear()
}

// Connections returns the connections in the order they were made.
func (p *Pipeline) Connections() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connections.snapshot()
}

// SetImage stores a copy of img as the source image. A nil image clears it.
func (p *Pipeline) SetImage(img image.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if vimg.Empty(img) {
		p.source = nil
		return
	}
	p.source = vimg.Clone(img)
}

// Image returns the source image.
func (p *Pipeline) Image() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Results returns the results of the latest run in execution order.
func (p *Pipeline) Results() []*vision.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*vision.Result(nil), p.results...)
}

// Result returns the latest result recorded for a tool.
func (p *Pipeline) Result(id string) (*vision.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.results {
		if r.ToolID == id {
			return r, true
		}
	}
	return nil, false
}

// Overlay returns the last overlay published during the latest run.
func (p *Pipeline) Overlay() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay
}

// LastRunSuccess reports whether every result of the latest run succeeded.
func (p *Pipeline) LastRunSuccess() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.success
}

// Elapsed is the wall time of the latest run.
func (p *Pipeline) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}

// Running reports whether a run is in flight.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

func (p *Pipeline) indexOf(id string) int {
	for i, t := range p.tools {
		if t.Base().ID == id {
			return i
		}
	}
	return -1
}
