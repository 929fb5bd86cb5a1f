package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archigen/internal/llm"
	"archigen/internal/types"
)

type analyzerFunc func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error)

func (f analyzerFunc) Run(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
	return f(ctx, req)
}

type rendererFunc func(ctx context.Context, visual string) (string, error)

func (f rendererFunc) Run(ctx context.Context, visual string) (string, error) { return f(ctx, visual) }

type auditorFunc func(ctx context.Context, imageURL string, req types.Requirements) []types.ComplianceFinding

func (f auditorFunc) Run(ctx context.Context, imageURL string, req types.Requirements) []types.ComplianceFinding {
	return f(ctx, imageURL, req)
}

var (
	mockRooms = []types.RoomRecord{
		{Name: "Master Bedroom", Width: "14ft", Length: "12ft", Area: "168 sq ft"},
		{Name: "Bedroom 2", Width: "12ft", Length: "11ft", Area: "132 sq ft"},
		{Name: "Kitchen", Width: "10ft", Length: "9ft", Area: "90 sq ft"},
	}
	mockFindings = []types.ComplianceFinding{
		{Rule: "Egress", Status: types.StatusCompliant, Details: "Two exits."},
		{Rule: "Ventilation", Status: types.StatusWarning, Details: "Kitchen window small."},
	}
	mockImage = types.ImageRef{MIMEType: "image/png", Data: llm.TinyPNG}.DataURI()
)

func okAnalyzer() Analyzer {
	return analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
		return types.LayoutAnalysis{
			VisualPrompt:      "2D plan",
			RoomDimensions:    mockRooms,
			BylawCompliance:   []types.ComplianceFinding{},
			TotalUtilizedArea: 900,
			EfficiencyScore:   90,
		}, nil
	})
}

func okRenderer() Renderer {
	return rendererFunc(func(ctx context.Context, visual string) (string, error) { return mockImage, nil })
}

func okAuditor() Auditor {
	return auditorFunc(func(ctx context.Context, imageURL string, req types.Requirements) []types.ComplianceFinding {
		return mockFindings
	})
}

func testOptions() Options {
	return Options{
		Logger: log.New(&bytes.Buffer{}, "", 0),
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		NewID:  func() string { return "plan-1" },
	}
}

func endToEndRequirements() types.Requirements {
	return types.Requirements{Rooms: 2, TotalArea: 1000, HasHall: true, HasKitchen: true, HasBalcony: true, Country: "United States"}
}

func TestControllerEndToEnd(t *testing.T) {
	c := NewController(okAnalyzer(), okRenderer(), okAuditor(), testOptions())
	assert.Equal(t, StateInput, c.State())

	plan, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, StateResult, c.State())
	assert.Len(t, plan.Analysis.RoomDimensions, len(mockRooms))
	assert.Equal(t, mockFindings, plan.Analysis.BylawCompliance)
	assert.Equal(t, mockImage, plan.ImageURL)
	assert.Equal(t, "plan-1", plan.ID)
	assert.Equal(t, int64(1700000000000), plan.Timestamp)

	snap := c.Snapshot()
	require.NotNil(t, snap.Plan)
	assert.Equal(t, plan, *snap.Plan)
	assert.Empty(t, snap.Error)
}

func TestControllerEndToEndWithFakeClient(t *testing.T) {
	f := llm.NewFakeClient()
	c := New(f, testOptions())
	plan, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, StateResult, c.State())
	assert.Len(t, plan.Analysis.RoomDimensions, 2)
	require.Len(t, plan.Analysis.BylawCompliance, 1)
	assert.Equal(t, "Minimum room size", plan.Analysis.BylawCompliance[0].Rule)

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []llm.Op{llm.OpStructured, llm.OpImage, llm.OpVision}, []llm.Op{calls[0].Op, calls[1].Op, calls[2].Op})
}

func TestControllerComplianceFailureStillReachesResult(t *testing.T) {
	f := llm.NewFakeClient()
	f.VisionFn = func(ctx context.Context, req llm.VisionRequest) (string, error) {
		return "", &llm.TransportError{Op: llm.OpVision, Model: "m", Err: errors.New("unavailable")}
	}
	c := New(f, testOptions())
	plan, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, StateResult, c.State())
	require.Len(t, plan.Analysis.BylawCompliance, 1)
	assert.Equal(t, "Automated Visual Inspection", plan.Analysis.BylawCompliance[0].Rule)
	assert.Equal(t, types.StatusWarning, plan.Analysis.BylawCompliance[0].Status)
}

func TestControllerStageFailures(t *testing.T) {
	imageCalled := false
	t.Run("analysis", func(t *testing.T) {
		failing := analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
			return types.LayoutAnalysis{}, ErrNoDataReturned
		})
		renderer := rendererFunc(func(ctx context.Context, visual string) (string, error) {
			imageCalled = true
			return mockImage, nil
		})
		c := NewController(failing, renderer, okAuditor(), testOptions())
		_, err := c.Generate(context.Background(), endToEndRequirements())
		assert.ErrorIs(t, err, ErrNoDataReturned)
		assert.False(t, imageCalled)

		snap := c.Snapshot()
		assert.Equal(t, StateError, snap.State)
		assert.Equal(t, ErrNoDataReturned.Error(), snap.Error)
		assert.Equal(t, CodeNoData, snap.ErrorCode)
		assert.Nil(t, snap.Plan)
	})
	t.Run("image", func(t *testing.T) {
		failing := rendererFunc(func(ctx context.Context, visual string) (string, error) {
			return "", ErrNoImageReturned
		})
		c := NewController(okAnalyzer(), failing, okAuditor(), testOptions())
		_, err := c.Generate(context.Background(), endToEndRequirements())
		assert.ErrorIs(t, err, ErrNoImageReturned)
		assert.Equal(t, StateError, c.State())
		assert.Equal(t, CodeNoImage, c.Snapshot().ErrorCode)
	})
	t.Run("empty message uses generic text", func(t *testing.T) {
		failing := analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
			return types.LayoutAnalysis{}, errors.New("")
		})
		c := NewController(failing, okRenderer(), okAuditor(), testOptions())
		_, err := c.Generate(context.Background(), endToEndRequirements())
		require.Error(t, err)
		assert.Equal(t, GenericErrorMessage, c.Snapshot().Error)
	})
}

func TestControllerRestartFromTerminalIsImplicitReset(t *testing.T) {
	fail := true
	analyzer := analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
		if fail {
			return types.LayoutAnalysis{}, errors.New("boom")
		}
		return okAnalyzer().Run(ctx, req)
	})
	c := NewController(analyzer, okRenderer(), okAuditor(), testOptions())

	_, err := c.Generate(context.Background(), endToEndRequirements())
	require.Error(t, err)
	require.Equal(t, StateError, c.State())

	fail = false
	plan, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, StateResult, snap.State)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.ErrorCode)

	// from Result a new start replaces the old plan
	again, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, plan, again)
	assert.Equal(t, StateResult, c.State())
}

func TestControllerReset(t *testing.T) {
	c := NewController(okAnalyzer(), okRenderer(), okAuditor(), testOptions())
	_, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)

	snap := c.Reset()
	assert.Equal(t, StateInput, snap.State)
	assert.Nil(t, snap.Plan)
	assert.Empty(t, snap.Error)

	// reset from Input is a no-op
	assert.Equal(t, StateInput, c.Reset().State)
}

func blockingAnalyzer(entered chan<- struct{}) Analyzer {
	return analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
		close(entered)
		<-ctx.Done()
		return types.LayoutAnalysis{}, ctx.Err()
	})
}

func TestControllerRejectsConcurrentStart(t *testing.T) {
	entered := make(chan struct{})
	c := NewController(blockingAnalyzer(entered), okRenderer(), okAuditor(), testOptions())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background(), endToEndRequirements())
		errCh <- err
	}()
	<-entered
	assert.Equal(t, StateGeneratingAnalysis, c.State())

	_, err := c.Generate(context.Background(), endToEndRequirements())
	assert.ErrorIs(t, err, ErrInProgress)

	snap := c.Reset()
	assert.Equal(t, StateInput, snap.State)
	assert.ErrorIs(t, <-errCh, ErrReset)

	// the abandoned run must not move the state after reset
	assert.Equal(t, StateInput, c.State())
	assert.Empty(t, c.Snapshot().Error)
}

func TestControllerStageTimeout(t *testing.T) {
	hang := analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
		select {} // ignores its context
	})
	opts := testOptions()
	opts.Now = time.Now
	opts.StageTimeout = 20 * time.Millisecond
	c := NewController(hang, okRenderer(), okAuditor(), opts)

	_, err := c.Generate(context.Background(), endToEndRequirements())
	var timeout *StageTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, StageAnalysis, timeout.Stage)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, CodeTimeout, c.Snapshot().ErrorCode)
}

func TestControllerComplianceTimeoutUsesFallback(t *testing.T) {
	hang := auditorFunc(func(ctx context.Context, imageURL string, req types.Requirements) []types.ComplianceFinding {
		time.Sleep(time.Second)
		return mockFindings
	})
	opts := testOptions()
	opts.Now = time.Now
	opts.StageTimeout = 20 * time.Millisecond
	c := NewController(okAnalyzer(), okRenderer(), hang, opts)

	plan, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, []types.ComplianceFinding{FallbackFinding()}, plan.Analysis.BylawCompliance)
	assert.Equal(t, StateResult, c.State())
}

func TestControllerSubscribe(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	c := NewController(okAnalyzer(), okRenderer(), okAuditor(), testOptions())
	ch, cancel := c.Subscribe()
	first := <-ch
	assert.Equal(t, StateInput, first.State)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			mu.Lock()
			states = append(states, snap.State)
			mu.Unlock()
			if snap.State == StateResult {
				return
			}
		}
	}()

	_, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber never saw the result")
	}
	cancel()
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateResult, states[len(states)-1])
}

type recordingTracker struct {
	mu       sync.Mutex
	stages   []string
	outcomes []Outcome
}

func (r *recordingTracker) StartStage(ctx context.Context, stage string) (context.Context, func(error)) {
	r.mu.Lock()
	r.stages = append(r.stages, stage)
	r.mu.Unlock()
	return ctx, func(error) {}
}

func (r *recordingTracker) RunFinished(ctx context.Context, outcome Outcome, elapsed time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func TestControllerTracker(t *testing.T) {
	tr := &recordingTracker{}
	opts := testOptions()
	opts.Tracker = tr
	c := NewController(okAnalyzer(), okRenderer(), okAuditor(), opts)
	_, err := c.Generate(context.Background(), endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, []string{StageAnalysis, StageImage, StageCompliance}, tr.stages)
	assert.Equal(t, []Outcome{OutcomeResult}, tr.outcomes)
}

func TestControllerTrackerOutcomes(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		tr := &recordingTracker{}
		opts := testOptions()
		opts.Tracker = tr
		failing := analyzerFunc(func(ctx context.Context, req types.Requirements) (types.LayoutAnalysis, error) {
			return types.LayoutAnalysis{}, errors.New("boom")
		})
		c := NewController(failing, okRenderer(), okAuditor(), opts)
		_, err := c.Generate(context.Background(), endToEndRequirements())
		require.Error(t, err)
		assert.Equal(t, []Outcome{OutcomeError}, tr.outcomes)
	})
	t.Run("reset", func(t *testing.T) {
		tr := &recordingTracker{}
		opts := testOptions()
		opts.Tracker = tr
		entered := make(chan struct{})
		c := NewController(blockingAnalyzer(entered), okRenderer(), okAuditor(), opts)

		errCh := make(chan error, 1)
		go func() {
			_, err := c.Generate(context.Background(), endToEndRequirements())
			errCh <- err
		}()
		<-entered
		c.Reset()
		require.ErrorIs(t, <-errCh, ErrReset)

		tr.mu.Lock()
		defer tr.mu.Unlock()
		assert.Equal(t, []Outcome{OutcomeCanceled}, tr.outcomes)
	})
	t.Run("in progress is not a run", func(t *testing.T) {
		tr := &recordingTracker{}
		opts := testOptions()
		opts.Tracker = tr
		entered := make(chan struct{})
		c := NewController(blockingAnalyzer(entered), okRenderer(), okAuditor(), opts)
		go func() { _, _ = c.Generate(context.Background(), endToEndRequirements()) }()
		<-entered

		_, err := c.Generate(context.Background(), endToEndRequirements())
		require.ErrorIs(t, err, ErrInProgress)
		tr.mu.Lock()
		assert.Empty(t, tr.outcomes)
		tr.mu.Unlock()
		c.Reset()
	})
}

func TestControllerCallerDeadlineDuringComplianceUsesFallback(t *testing.T) {
	slow := auditorFunc(func(ctx context.Context, imageURL string, req types.Requirements) []types.ComplianceFinding {
		<-ctx.Done()
		return mockFindings
	})
	opts := testOptions()
	opts.Now = time.Now
	opts.StageTimeout = time.Minute
	c := NewController(okAnalyzer(), okRenderer(), slow, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	plan, err := c.Generate(ctx, endToEndRequirements())
	require.NoError(t, err)
	assert.Equal(t, []types.ComplianceFinding{FallbackFinding()}, plan.Analysis.BylawCompliance)
	assert.Equal(t, StateResult, c.State())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Code(""), Classify(nil))
	assert.Equal(t, CodeTimeout, Classify(&StageTimeoutError{Stage: "image"}))
	assert.Equal(t, CodeTransport, Classify(&llm.TransportError{Err: errors.New("x")}))
	assert.Equal(t, CodeInProgress, Classify(ErrInProgress))
	assert.Equal(t, CodeCanceled, Classify(ErrReset))
	assert.Equal(t, CodeUnknown, Classify(errors.New("x")))
}
