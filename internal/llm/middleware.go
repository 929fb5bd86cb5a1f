package llm

import (
	"context"
	"log"
	"time"
)

// Middleware decorates a Capability to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks, etc.).
type Middleware func(Capability) Capability

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Capability, mws ...Middleware) Capability {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Call describes one capability invocation as seen by an Interceptor.
type Call struct {
	Op     Op
	Prompt string
}

// Interceptor runs around a single call. It must invoke next to reach the
// wrapped capability and return its error (or its own).
type Interceptor func(ctx context.Context, c Call, next func(context.Context) error) error

// Intercept turns an Interceptor into a Middleware covering all three
// capability modes.
func Intercept(fn Interceptor) Middleware {
	return func(next Capability) Capability {
		return &intercepted{next: next, around: fn}
	}
}

type intercepted struct {
	next   Capability
	around Interceptor
}

func (i *intercepted) Name() string { return i.next.Name() }
func (i *intercepted) Close() error { return i.next.Close() }

func (i *intercepted) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	var out string
	err := i.around(ctx, Call{Op: OpStructured, Prompt: req.Prompt}, func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateStructured(ctx, req)
		return err
	})
	return out, err
}

func (i *intercepted) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	var out *ImageResponse
	err := i.around(ctx, Call{Op: OpImage, Prompt: req.Prompt}, func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateImage(ctx, req)
		return err
	})
	return out, err
}

func (i *intercepted) GenerateWithImage(ctx context.Context, req VisionRequest) (string, error) {
	var out string
	err := i.around(ctx, Call{Op: OpVision, Prompt: req.Prompt}, func(ctx context.Context) error {
		var err error
		out, err = i.next.GenerateWithImage(ctx, req)
		return err
	})
	return out, err
}

// -------- Rate Limiting --------

// RateLimit throttles calls with a token bucket of rps tokens per second and
// the given burst. If rps <= 0, the limiter is disabled. Closing the wrapped
// capability releases callers still waiting for a token.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Capability) Capability {
		bucket := newTokenBucket(rps, burst) // nil when disabled
		inner := Intercept(func(ctx context.Context, _ Call, call func(context.Context) error) error {
			if err := bucket.Acquire(ctx); err != nil {
				return err
			}
			return call(ctx)
		})(next)
		return &rateLimited{Capability: inner, bucket: bucket}
	}
}

type rateLimited struct {
	Capability
	bucket *tokenBucket
}

func (r *rateLimited) Close() error {
	r.bucket.Close()
	return r.Capability.Close()
}

// -------- Retry with exponential backoff --------

// Retry retries a call up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and context cancellation stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return Intercept(func(ctx context.Context, _ Call, call func(context.Context) error) error {
		var last error
		for i := 0; i < maxAttempts; i++ {
			err := call(ctx)
			if err == nil {
				return nil
			}
			if IsPermanent(err) {
				return err
			}
			last = err
			if i == maxAttempts-1 {
				break
			}
			timer := time.NewTimer(baseDelay * time.Duration(1<<i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		return last
	})
}

// -------- Logging & Hooks --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return Intercept(func(ctx context.Context, c Call, call func(context.Context) error) error {
		logger.Printf("LLM %s request (%s): %d bytes", c.Op, StageFrom(ctx), len(c.Prompt))
		start := time.Now()
		err := call(ctx)
		if err != nil {
			logger.Printf("LLM %s error (%s): %s", c.Op, StageFrom(ctx), RedactText(err.Error()))
			return err
		}
		logger.Printf("LLM %s done (%s) in %s", c.Op, StageFrom(ctx), time.Since(start).Round(time.Millisecond))
		return nil
	})
}

// WithHooks calls HookFrom(ctx).Before/After around each call.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return Intercept(func(ctx context.Context, c Call, call func(context.Context) error) error {
		hook := HookFrom(ctx)
		if hook == nil {
			return call(ctx)
		}
		hook.Before(ctx, StageFrom(ctx), c.Op, c.Prompt)
		err := call(ctx)
		hook.After(ctx, StageFrom(ctx), c.Op, err)
		return err
	})
}
