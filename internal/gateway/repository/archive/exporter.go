package archive

import (
	"context"
	"fmt"
	"strings"

	t "archigen/internal/types"
	"archigen/internal/util/jsonutil"
)

const (
	AnalysisFile  = "analysis.json"
	PlanFile      = "plan.json"
	blueprintStem = "blueprint"
)

// Manifest describes one exported plan.
type Manifest struct {
	PlanID   string   `json:"planId"`
	Files    []string `json:"files"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// planRecord is the plan metadata written next to the files.
type planRecord struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Image     string `json:"image"`
	MIMEType  string `json:"mimeType"`
}

// Exporter writes a finished plan's blueprint and analysis to a Store.
type Exporter struct {
	Store Store
}

func (e *Exporter) Export(ctx context.Context, plan t.GeneratedPlan) (Manifest, error) {
	if e == nil || e.Store == nil {
		return Manifest{}, fmt.Errorf("archive: store is not configured")
	}
	if strings.TrimSpace(plan.ID) == "" {
		return Manifest{}, fmt.Errorf("archive: plan id is required")
	}
	img, err := t.ParseDataURI(plan.ImageURL)
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: decode blueprint: %w", err)
	}
	imageFile := blueprintStem + img.Extension()

	analysis, err := jsonutil.MarshalNoEscapeIndent(plan.Analysis, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: encode analysis: %w", err)
	}
	record, err := jsonutil.MarshalNoEscapeIndent(planRecord{
		ID:        plan.ID,
		Timestamp: plan.Timestamp,
		Image:     imageFile,
		MIMEType:  img.MIMEType,
	}, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: encode plan: %w", err)
	}

	files := []struct {
		path string
		data []byte
	}{
		{imageFile, img.Data},
		{AnalysisFile, analysis},
		{PlanFile, record},
	}
	for _, f := range files {
		if err := e.Store.Put(ctx, plan.ID, f.path, f.data); err != nil {
			return Manifest{}, fmt.Errorf("archive: put %s: %w", f.path, err)
		}
	}

	url, err := e.Store.GetURL(ctx, plan.ID, imageFile)
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: url for %s: %w", imageFile, err)
	}
	list, err := e.Store.List(ctx, plan.ID)
	if err != nil {
		return Manifest{}, fmt.Errorf("archive: list: %w", err)
	}
	return Manifest{PlanID: plan.ID, Files: list, ImageURL: url}, nil
}

// ExportedPlan is a previously exported plan read back from the Store.
type ExportedPlan struct {
	Manifest  Manifest         `json:"manifest"`
	Analysis  t.LayoutAnalysis `json:"analysis"`
	Timestamp int64            `json:"timestamp"`
}

// Load reads back an exported plan. A missing plan yields ErrNotFound.
func (e *Exporter) Load(ctx context.Context, planID string) (ExportedPlan, error) {
	if e == nil || e.Store == nil {
		return ExportedPlan{}, fmt.Errorf("archive: store is not configured")
	}
	planID, err := cleanPlanID(planID)
	if err != nil {
		return ExportedPlan{}, err
	}
	var record planRecord
	if err := e.readJSON(ctx, planID, PlanFile, &record); err != nil {
		return ExportedPlan{}, err
	}
	var analysis t.LayoutAnalysis
	if err := e.readJSON(ctx, planID, AnalysisFile, &analysis); err != nil {
		return ExportedPlan{}, err
	}
	url, err := e.Store.GetURL(ctx, planID, record.Image)
	if err != nil {
		return ExportedPlan{}, fmt.Errorf("archive: url for %s: %w", record.Image, err)
	}
	list, err := e.Store.List(ctx, planID)
	if err != nil {
		return ExportedPlan{}, fmt.Errorf("archive: list: %w", err)
	}
	return ExportedPlan{
		Manifest:  Manifest{PlanID: planID, Files: list, ImageURL: url},
		Analysis:  analysis,
		Timestamp: record.Timestamp,
	}, nil
}

func (e *Exporter) readJSON(ctx context.Context, planID, path string, v any) error {
	raw, err := e.Store.Get(ctx, planID, path)
	if err != nil {
		return fmt.Errorf("archive: get %s: %w", path, err)
	}
	if err := jsonutil.UnmarshalFlex(raw, v); err != nil {
		return fmt.Errorf("archive: decode %s: %w", path, err)
	}
	return nil
}
