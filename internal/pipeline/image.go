package pipeline

import (
	"context"

	"archigen/internal/llm"
	t "archigen/internal/types"
)

// Image renders the visual description and returns it as a data URI.
type Image struct{ LLM llm.Capability }

func (p *Image) Run(ctx context.Context, visual string) (string, error) {
	resp, err := p.LLM.GenerateImage(llm.WithStage(ctx, StageImage), llm.ImageRequest{
		Prompt:      ImagePrompt(visual),
		AspectRatio: ImageAspectRatio,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrNoImageReturned
	}
	for _, part := range resp.Parts {
		if part.HasImage() {
			return t.ImageRef{MIMEType: part.MIMEType, Data: part.Data}.DataURI(), nil
		}
	}
	return "", ErrNoImageReturned
}
