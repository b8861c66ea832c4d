package pipeline

import (
	"fmt"
	"image"
	"time"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

// Summary is the outcome of one run.
type Summary struct {
	Success bool             `json:"success"`
	Results []*vision.Result `json:"results"`
	Overlay image.Image      `json:"-"`
	Elapsed time.Duration    `json:"elapsed_ns"`
}

// Run executes every enabled tool once, in order.
//
// Tool failures are recorded as failed results and never abort the run; only
// a missing source image does. The returned error is non-nil only when
// another run is in flight.
func (p *Pipeline) Run() (Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)
	return p.run(), nil
}

// RunAsync starts a run on its own goroutine. The channel receives exactly one
// Summary and is then closed.
func (p *Pipeline) RunAsync() (<-chan Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	done := make(chan Summary, 1)
	go func() {
		s := p.run()
		p.running.Store(false)
		done <- s
		close(done)
	}()
	return done, nil
}

// RunTool executes a single tool in isolation on img, or on the source image
// when img is nil. Connections are ignored. A disabled tool passes a copy of
// its input through.
func (p *Pipeline) RunTool(id string, img image.Image) (*vision.Result, error) {
	if p.running.Load() {
		return nil, ErrAlreadyRunning
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("run %s: %w", id, ErrToolNotFound)
	}
	t := p.tools[i]
	if img == nil {
		img = p.source
	}
	if vimg.Empty(img) {
		return vision.Failed(vision.InputMissing, "no input image"), nil
	}
	if !t.Base().Enabled {
		return vision.Passthrough(t, img), nil
	}
	return vision.Run(t, img), nil
}

func (p *Pipeline) run() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	p.results = nil
	p.overlay = nil
	p.success = false

	if vimg.Empty(p.source) {
		p.results = []*vision.Result{vision.Failed(vision.InputMissing, "no input image")}
		p.elapsed = time.Since(start)
		p.log.Warn("run aborted", "reason", "no input image")
		return p.summary()
	}

	p.log.Debug("run started", "tools", len(p.tools), "connections", len(p.connections.list))

	byID := make(map[string]*vision.Result, len(p.tools))
	working := vimg.Clone(p.source)
	success := true

	for _, t := range p.tools {
		b := t.Base()
		if !b.Enabled {
			p.log.Debug("tool disabled", "tool", b.Name)
			continue
		}

		if src, failed := p.failedUpstream(b.ID, byID); failed {
			r := vision.Failed(vision.UpstreamFailed, "skipped: upstream failed: %s", src)
			r.ToolID, r.ToolName = b.ID, b.Name
			b.LastResult = r
			p.record(byID, r)
			success = false
			p.log.Debug("tool skipped", "tool", b.Name, "upstream", src)
			continue
		}

		p.propagateCoordinates(b, byID)

		input, routed := p.routedInput(b.ID, byID)
		if !routed {
			input = working
		}

		r := vision.Run(t, input)
		p.record(byID, r)
		if !r.Success {
			success = false
			if r.Failure == vision.ComputationFault {
				p.log.Warn("tool fault", "tool", b.Name, "error", r.Message)
			} else {
				p.log.Debug("tool failed", "tool", b.Name, "failure", r.Failure, "message", r.Message)
			}
		}

		if r.HasOutput() && !routed {
			working = vimg.Clone(r.Output)
		}
		if r.HasOverlay() {
			p.overlay = r.Overlay
		}
	}

	p.success = success
	p.elapsed = time.Since(start)
	p.log.Debug("run finished", "success", success, "results", len(p.results), "elapsed", p.elapsed)
	return p.summary()
}

func (p *Pipeline) record(byID map[string]*vision.Result, r *vision.Result) {
	p.results = append(p.results, r)
	byID[r.ToolID] = r
}

// failedUpstream returns the name of the first Result-connection source that
// failed in this run.
func (p *Pipeline) failedUpstream(id string, byID map[string]*vision.Result) (string, bool) {
	for _, c := range p.connections.into(id, ResultConnection) {
		if r, ok := byID[c.Source]; ok && !r.Success {
			return r.ToolName, true
		}
	}
	return "", false
}

// propagateCoordinates moves b's ROI from its Coordinates sources. A bounding
// rectangle is applied after the centre so it wins when both are present.
func (p *Pipeline) propagateCoordinates(b *vision.ToolBase, byID map[string]*vision.Result) {
	for _, c := range p.connections.into(b.ID, CoordinatesConnection) {
		r, ok := byID[c.Source]
		if !ok {
			continue
		}
		if center, ok := r.Center(); ok {
			b.CenterROI(center, p.defaultROI)
		}
		if rect, ok := r.BoundingRect(); ok && !rect.Empty() {
			b.SetROI(rect)
		}
		p.log.Debug("roi propagated", "tool", b.Name, "from", r.ToolName, "roi", b.ROI)
	}
}

// routedInput returns a copy of the first Image-connection source output
// produced in this run.
func (p *Pipeline) routedInput(id string, byID map[string]*vision.Result) (image.Image, bool) {
	for _, c := range p.connections.into(id, ImageConnection) {
		if r, ok := byID[c.Source]; ok && r.HasOutput() {
			return vimg.Clone(r.Output), true
		}
	}
	return nil, false
}

func (p *Pipeline) summary() Summary {
	return Summary{
		Success: p.success,
		Results: append([]*vision.Result(nil), p.results...),
		Overlay: p.overlay,
		Elapsed: p.elapsed,
	}
}
