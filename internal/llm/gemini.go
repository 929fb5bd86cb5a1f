package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const (
	DefaultAnalysisModel = "gemini-2.5-flash"
	DefaultImageModel    = "gemini-2.5-flash-image"
	DefaultVisionModel   = "gemini-2.5-flash"
)

// GeminiConfig selects the model used for each capability mode.
type GeminiConfig struct {
	APIKey        string
	AnalysisModel string
	ImageModel    string
	VisionModel   string
}

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Rate limiting, retries, logging
// and hooks are applied via Middleware.
type GeminiClient struct {
	cli    *genai.Client
	text   string
	image  string
	vision string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("llm: gemini api key is empty")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:    cli,
		text:   orDefault(cfg.AnalysisModel, DefaultAnalysisModel),
		image:  orDefault(cfg.ImageModel, DefaultImageModel),
		vision: orDefault(cfg.VisionModel, DefaultVisionModel),
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.text }
func (g *GeminiClient) Close() error { return nil }

// GenerateStructured sends the prompt with application/json output and the
// given response schema, returning the concatenated reply text.
func (g *GeminiClient) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", NewPermanentError(errors.New("llm: structured prompt is empty"))
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.text,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.Prompt}}}},
		jsonConfig(req.Schema),
	)
	if err != nil {
		return "", &TransportError{Op: OpStructured, Model: g.text, Err: err}
	}
	return replyText(resp), nil
}

// GenerateImage asks the image model for a rendering. The installed genai
// release has no image config, so the aspect ratio travels in the prompt.
func (g *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, NewPermanentError(errors.New("llm: image prompt is empty"))
	}
	prompt := req.Prompt
	if ar := strings.TrimSpace(req.AspectRatio); ar != "" && !strings.Contains(prompt, ar) {
		prompt += fmt.Sprintf(" Aspect ratio %s.", ar)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.image,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	)
	if err != nil {
		return nil, &TransportError{Op: OpImage, Model: g.image, Err: err}
	}
	out := &ImageResponse{}
	for _, p := range firstCandidateParts(resp) {
		part := Part{Text: p.Text}
		if p.InlineData != nil {
			part.MIMEType = p.InlineData.MIMEType
			part.Data = p.InlineData.Data
		}
		out.Parts = append(out.Parts, part)
	}
	return out, nil
}

// GenerateWithImage sends the inline image followed by the instruction and
// requests JSON matching the schema.
func (g *GeminiClient) GenerateWithImage(ctx context.Context, req VisionRequest) (string, error) {
	if len(req.Image.Data) == 0 {
		return "", NewPermanentError(errors.New("llm: vision request has no image data"))
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{Data: req.Image.Data, MIMEType: req.Image.MIMEType}},
		{Text: req.Prompt},
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.vision,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		jsonConfig(req.Schema),
	)
	if err != nil {
		return "", &TransportError{Op: OpVision, Model: g.vision, Err: err}
	}
	return replyText(resp), nil
}

func jsonConfig(s *Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(s),
	}
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             genai.Type(s.Type),
		Description:      s.Description,
		Enum:             s.Enum,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrdering,
		Items:            toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	return out
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

// replyText joins non-thought text parts of the first candidate.
func replyText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, p := range firstCandidateParts(resp) {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
