package llm

import (
	"context"
	"encoding/base64"
	"sync"
)

// TinyPNG is a valid 1x1 PNG used by the fake image mode.
var TinyPNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

const (
	fakeAnalysisJSON   = `{"visualPrompt":"A compact two bedroom plan with an open kitchen.","distributionLogic":"Bedrooms share a corridor; the kitchen opens to the hall.","roomDimensions":[{"name":"Master Bedroom","width":"4m","length":"4m","area":"16 sq m","notes":"En-suite"},{"name":"Bedroom 2","width":"3.5m","length":"3.5m","area":"12.25 sq m","notes":""}],"totalUtilizedArea":92,"efficiencyScore":92}`
	fakeComplianceJSON = `[{"rule":"Minimum room size","status":"Compliant","details":"All habitable rooms exceed 9.5 sq m."}]`
)

// FakeClient is a scriptable Capability for tests and offline runs. Nil
// funcs fall back to canned replies.
type FakeClient struct {
	StructuredFn func(ctx context.Context, req StructuredRequest) (string, error)
	ImageFn      func(ctx context.Context, req ImageRequest) (*ImageResponse, error)
	VisionFn     func(ctx context.Context, req VisionRequest) (string, error)

	mu    sync.Mutex
	calls []Call
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	f.record(OpStructured, req.Prompt)
	if f.StructuredFn != nil {
		return f.StructuredFn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fakeAnalysisJSON, nil
}

func (f *FakeClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	f.record(OpImage, req.Prompt)
	if f.ImageFn != nil {
		return f.ImageFn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ImageResponse{Parts: []Part{
		{Text: "Here is your floor plan."},
		{MIMEType: "image/png", Data: TinyPNG},
	}}, nil
}

func (f *FakeClient) GenerateWithImage(ctx context.Context, req VisionRequest) (string, error) {
	f.record(OpVision, req.Prompt)
	if f.VisionFn != nil {
		return f.VisionFn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fakeComplianceJSON, nil
}

// Calls returns a copy of the recorded invocations in order.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeClient) record(op Op, prompt string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Prompt: prompt})
	f.mu.Unlock()
}
