package llm

import (
	"context"

	t "archigen/internal/types"
)

// Capability is the generative service used by the pipeline stages. It
// offers structured text generation, image generation, and structured
// generation over an inline image.
type Capability interface {
	Name() string
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
	GenerateWithImage(ctx context.Context, req VisionRequest) (string, error)
	Close() error
}

// StructuredRequest asks for JSON matching Schema. The reply is raw text and
// may still need fence stripping.
type StructuredRequest struct {
	Prompt string
	Schema *Schema
}

type ImageRequest struct {
	Prompt      string
	AspectRatio string // e.g. "4:3"
}

type VisionRequest struct {
	Prompt string
	Image  t.ImageRef
	Schema *Schema
}

// Part is one content part of a model reply. Data holds raw (decoded) bytes
// when the part carries inline media.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// HasImage reports whether the part carries inline binary data.
func (p Part) HasImage() bool { return len(p.Data) > 0 }

type ImageResponse struct {
	Parts []Part
}

// Op names a capability method for logging, hooks and metrics.
type Op string

const (
	OpStructured Op = "structured"
	OpImage      Op = "image"
	OpVision     Op = "vision"
)
