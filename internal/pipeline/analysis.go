package pipeline

import (
	"context"
	"strings"

	"archigen/internal/llm"
	"archigen/internal/normalize"
	t "archigen/internal/types"
)

// analysisSchema is the structured-output contract for the analysis stage.
var analysisSchema = llm.Object(
	llm.Prop("visualPrompt", llm.String()),
	llm.Prop("distributionLogic", llm.String()),
	llm.Prop("roomDimensions", llm.ArrayOf(llm.Object(
		llm.Prop("name", llm.String()),
		llm.Prop("width", llm.String()),
		llm.Prop("length", llm.String()),
		llm.Prop("area", llm.String()),
		llm.Prop("notes", llm.String()),
	))),
	llm.Prop("totalUtilizedArea", llm.Number()),
	llm.Prop("efficiencyScore", llm.Number()),
)

// Analysis turns requirements into a LayoutAnalysis with an empty
// compliance list.
type Analysis struct{ LLM llm.Capability }

func (p *Analysis) Run(ctx context.Context, req t.Requirements) (t.LayoutAnalysis, error) {
	raw, err := p.LLM.GenerateStructured(llm.WithStage(ctx, StageAnalysis), llm.StructuredRequest{
		Prompt: AnalysisPrompt(req),
		Schema: analysisSchema,
	})
	if err != nil {
		return t.LayoutAnalysis{}, err
	}
	if strings.TrimSpace(raw) == "" {
		return t.LayoutAnalysis{}, ErrNoDataReturned
	}
	decoded, err := normalize.Parse(raw)
	if err != nil {
		return t.LayoutAnalysis{}, err
	}
	return normalize.Analysis(decoded, req), nil
}
