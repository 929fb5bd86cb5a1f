package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"archigen/internal/llm"
	t "archigen/internal/types"
)

// DefaultStageTimeout bounds every stage unless Options overrides it.
const DefaultStageTimeout = 90 * time.Second

type Analyzer interface {
	Run(ctx context.Context, req t.Requirements) (t.LayoutAnalysis, error)
}

type Renderer interface {
	Run(ctx context.Context, visual string) (string, error)
}

// Auditor never fails; it substitutes a fallback finding instead.
type Auditor interface {
	Run(ctx context.Context, imageURL string, req t.Requirements) []t.ComplianceFinding
}

// Tracker observes stage and run lifecycles (metrics, tracing).
type Tracker interface {
	StartStage(ctx context.Context, stage string) (context.Context, func(err error))
	RunFinished(ctx context.Context, outcome Outcome, elapsed time.Duration)
}

// Outcome is how a run ended, as reported to a Tracker.
type Outcome string

const (
	OutcomeResult   Outcome = "result"
	OutcomeError    Outcome = "error"
	OutcomeCanceled Outcome = "canceled"
)

type Options struct {
	// StageTimeout <= 0 uses DefaultStageTimeout.
	StageTimeout time.Duration
	Logger       *log.Logger
	Tracker      Tracker
	Now          func() time.Time
	NewID        func() string
}

// Snapshot is a point-in-time view of a Controller for rendering.
type Snapshot struct {
	State      State            `json:"state"`
	StageLabel string           `json:"stageLabel,omitempty"`
	Error      string           `json:"error,omitempty"`
	ErrorCode  Code             `json:"errorCode,omitempty"`
	Plan       *t.GeneratedPlan `json:"plan,omitempty"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Controller sequences the three stages and owns the workflow state.
// One run is in flight at a time.
type Controller struct {
	analyzer Analyzer
	renderer Renderer
	auditor  Auditor
	opts     Options

	mu      sync.Mutex
	state   State
	plan    *t.GeneratedPlan
	errMsg  string
	errCode Code
	updated time.Time
	gen     uint64
	cancel  context.CancelFunc
	subs    map[int]chan Snapshot
	nextSub int
}

func NewController(a Analyzer, r Renderer, c Auditor, opts Options) *Controller {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = DefaultStageTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Controller{
		analyzer: a,
		renderer: r,
		auditor:  c,
		opts:     opts,
		state:    StateInput,
		updated:  opts.Now(),
		subs:     make(map[int]chan Snapshot),
	}
}

// New wires the three capability-backed stages around one client.
func New(cli llm.Capability, opts Options) *Controller {
	return NewController(
		&Analysis{LLM: cli},
		&Image{LLM: cli},
		&Compliance{LLM: cli, Logger: opts.Logger},
		opts,
	)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      c.state,
		StageLabel: StageLabel(c.state),
		Error:      c.errMsg,
		ErrorCode:  c.errCode,
		UpdatedAt:  c.updated,
	}
	if c.plan != nil {
		p := *c.plan
		s.Plan = &p
	}
	return s
}

// Generate runs analysis, image and compliance in order and returns the
// finished plan. Starting from Result or Error discards the previous
// outcome first; starting while a run is active returns ErrInProgress.
// A compliance failure of any kind, including the caller's own deadline,
// yields the fallback finding. A run discarded by Reset returns ErrReset.
func (c *Controller) Generate(ctx context.Context, req t.Requirements) (t.GeneratedPlan, error) {
	started := c.opts.Now()
	runCtx, gen, err := c.begin(ctx)
	if err != nil {
		return t.GeneratedPlan{}, err
	}

	plan, err := c.run(runCtx, gen, req)
	outcome := OutcomeResult
	switch {
	case errors.Is(err, ErrReset):
		outcome = OutcomeCanceled
	case err != nil:
		outcome = OutcomeError
	}
	c.finished(ctx, outcome, started)
	return plan, err
}

func (c *Controller) run(ctx context.Context, gen uint64, req t.Requirements) (t.GeneratedPlan, error) {
	analysis, err := runStage(ctx, c, StageAnalysis, func(ctx context.Context) (t.LayoutAnalysis, error) {
		return c.analyzer.Run(ctx, req)
	})
	if err != nil {
		return t.GeneratedPlan{}, c.fail(gen, err)
	}
	if err := c.advance(gen, EventSuccess); err != nil {
		return t.GeneratedPlan{}, err
	}

	imageURL, err := runStage(ctx, c, StageImage, func(ctx context.Context) (string, error) {
		return c.renderer.Run(ctx, analysis.VisualPrompt)
	})
	if err != nil {
		return t.GeneratedPlan{}, c.fail(gen, err)
	}
	if err := c.advance(gen, EventSuccess); err != nil {
		return t.GeneratedPlan{}, err
	}

	findings, err := runStage(ctx, c, StageCompliance, func(ctx context.Context) ([]t.ComplianceFinding, error) {
		return c.auditor.Run(ctx, imageURL, req), nil
	})
	if err != nil {
		c.opts.Logger.Printf("pipeline: compliance stage: %v, using fallback finding", err)
		findings = []t.ComplianceFinding{FallbackFinding()}
	}
	if findings == nil {
		findings = []t.ComplianceFinding{}
	}

	analysis.BylawCompliance = findings
	plan := t.GeneratedPlan{
		ID:        c.opts.NewID(),
		ImageURL:  imageURL,
		Analysis:  analysis,
		Timestamp: c.opts.Now().UnixMilli(),
	}
	if err := c.complete(gen, plan); err != nil {
		return t.GeneratedPlan{}, err
	}
	return plan, nil
}

// Reset discards any result or error and returns to Input. An active run is
// canceled and its outcome ignored.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state, _ = Next(c.state, EventReset)
	c.plan = nil
	c.errMsg = ""
	c.errCode = ""
	c.touchLocked()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving the current snapshot followed by
// every change. Slow receivers only see the latest snapshot. Call the
// returned func to unsubscribe.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) begin(ctx context.Context) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	to, err := Next(c.state, EventStart)
	if err != nil {
		return nil, 0, err
	}
	c.gen++
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = to
	c.plan = nil
	c.errMsg = ""
	c.errCode = ""
	c.touchLocked()
	return runCtx, c.gen, nil
}

func (c *Controller) advance(gen uint64, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrReset
	}
	to, err := Next(c.state, ev)
	if err != nil {
		return err
	}
	c.state = to
	c.touchLocked()
	return nil
}

func (c *Controller) complete(gen uint64, plan t.GeneratedPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrReset
	}
	to, err := Next(c.state, EventSuccess)
	if err != nil {
		return err
	}
	c.state = to
	c.plan = &plan
	c.releaseLocked()
	c.touchLocked()
	return nil
}

// fail moves the run to Error unless it was reset meanwhile.
func (c *Controller) fail(gen uint64, cause error) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrReset
	}
	to, err := Next(c.state, EventFailure)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = to
	c.errMsg = Message(cause)
	c.errCode = Classify(cause)
	c.releaseLocked()
	c.touchLocked()
	c.mu.Unlock()

	c.opts.Logger.Printf("pipeline: run failed (%s): %s", Classify(cause), llm.RedactText(Message(cause)))
	return cause
}

func (c *Controller) finished(ctx context.Context, outcome Outcome, started time.Time) {
	if c.opts.Tracker != nil {
		c.opts.Tracker.RunFinished(context.WithoutCancel(ctx), outcome, c.opts.Now().Sub(started))
	}
}

func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// touchLocked stamps the update time and fans the snapshot out.
func (c *Controller) touchLocked() {
	c.updated = c.opts.Now()
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot and keep the latest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// runStage races fn against the stage timeout. A stage that ignores its
// context is abandoned once the deadline passes.
func runStage[T any](ctx context.Context, c *Controller, stage string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T

	ctx = llm.WithStage(ctx, stage)
	end := func(error) {}
	if c.opts.Tracker != nil {
		ctx, end = c.opts.Tracker.StartStage(ctx, stage)
	}
	sctx, cancel := context.WithTimeout(ctx, c.opts.StageTimeout)
	defer cancel()

	start := c.opts.Now()
	done := make(chan result, 1)
	go func() {
		v, err := fn(sctx)
		done <- result{v: v, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-sctx.Done():
		res = result{err: sctx.Err()}
	}
	if res.err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res = result{err: &StageTimeoutError{Stage: stage, Timeout: c.opts.StageTimeout}}
	}
	end(res.err)
	if res.err != nil {
		return zero, res.err
	}
	c.opts.Logger.Printf("pipeline: %s stage done in %s", stage, c.opts.Now().Sub(start).Round(time.Millisecond))
	return res.v, nil
}
