package pipeline

import (
	"context"
	"fmt"
	"log"

	"archigen/internal/llm"
	"archigen/internal/normalize"
	t "archigen/internal/types"
)

var complianceSchema = func() *llm.Schema {
	statuses := make([]string, len(t.ComplianceStatuses))
	for i, s := range t.ComplianceStatuses {
		statuses[i] = string(s)
	}
	return llm.ArrayOf(llm.Object(
		llm.Prop("rule", llm.String()),
		llm.Prop("status", llm.Enum(statuses...)),
		llm.Prop("details", llm.String()),
	))
}()

// FallbackFinding is reported when the audit cannot complete.
func FallbackFinding() t.ComplianceFinding {
	return t.ComplianceFinding{
		Rule:    "Automated Visual Inspection",
		Status:  t.StatusWarning,
		Details: "Could not complete visual verification of bylaws. Please manually review the plan.",
	}
}

// Compliance audits a rendered plan. Run never fails: any error becomes the
// single fallback finding.
type Compliance struct {
	LLM    llm.Capability
	Logger *log.Logger
}

func (p *Compliance) Run(ctx context.Context, imageURL string, req t.Requirements) []t.ComplianceFinding {
	findings, err := p.audit(ctx, imageURL, req)
	if err != nil {
		p.logger().Printf("pipeline: compliance check failed, using fallback: %s", llm.RedactText(err.Error()))
		return []t.ComplianceFinding{FallbackFinding()}
	}
	return findings
}

func (p *Compliance) audit(ctx context.Context, imageURL string, req t.Requirements) ([]t.ComplianceFinding, error) {
	img, err := t.ParseDataURI(imageURL)
	if err != nil {
		return nil, fmt.Errorf("decode plan image: %w", err)
	}
	raw, err := p.LLM.GenerateWithImage(llm.WithStage(ctx, StageCompliance), llm.VisionRequest{
		Prompt: CompliancePrompt(req),
		Image:  img,
		Schema: complianceSchema,
	})
	if err != nil {
		return nil, err
	}
	decoded, err := normalize.Parse(raw)
	if err != nil {
		return nil, err
	}
	return normalize.Findings(decoded), nil
}

func (p *Compliance) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}
