package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"archigen/internal/gateway/app"
	"archigen/internal/gateway/config"
	planservice "archigen/internal/gateway/service/plan"
	"archigen/internal/llm"
	"archigen/internal/pipeline"
	t "archigen/internal/types"
)

type generateOptions struct {
	req         t.Requirements
	outDir      string
	writeJSON   bool
	fake        bool
	showPrompts bool
	timeout     time.Duration
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{req: t.DefaultRequirements()}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once and save the blueprint",
		Long: `Generate a floor plan from the given requirements.

The blueprint is written as archigen-plan-<timestamp>.<ext> in the output
directory and the analysis is printed to the terminal.

Examples:
  archigen generate --rooms 3 --area 1400 --country Canada
  archigen generate --no-balcony --notes "north-facing living room"
  archigen generate --fake --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.req.Rooms, "rooms", "r", opts.req.Rooms, "number of bedrooms (1-10)")
	f.Float64VarP(&opts.req.TotalArea, "area", "a", opts.req.TotalArea, "total area in sq ft")
	f.StringVarP(&opts.req.Country, "country", "c", opts.req.Country, "jurisdiction for bylaw checks")
	f.BoolVar(&opts.req.HasHall, "hall", opts.req.HasHall, "include a living hall")
	f.BoolVar(&opts.req.HasKitchen, "kitchen", opts.req.HasKitchen, "include a kitchen")
	f.BoolVar(&opts.req.HasBalcony, "balcony", opts.req.HasBalcony, "include a balcony")
	f.StringVarP(&opts.req.AdditionalNotes, "notes", "n", "", "free-text notes for the architect")
	f.StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	f.BoolVar(&opts.writeJSON, "json", false, "also write the analysis as JSON")
	f.BoolVar(&opts.fake, "fake", false, "use canned responses instead of Gemini")
	f.BoolVar(&opts.showPrompts, "show-prompts", false, "print each prompt before it is sent")
	f.DurationVar(&opts.timeout, "stage-timeout", 0, "per-stage timeout (default from ARCHIGEN_STAGE_TIMEOUT)")
	return cmd
}

func runGenerate(ctx context.Context, w io.Writer, opts generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := planservice.Validate(opts.req); err != nil {
		return err
	}
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.StageTimeout = opts.timeout
	}

	var base llm.Capability
	if opts.fake {
		base = &llm.FakeClient{}
	} else {
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not set")
		}
		base, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:        cfg.LLM.APIKey,
			AnalysisModel: cfg.LLM.AnalysisModel,
			ImageModel:    cfg.LLM.ImageModel,
			VisionModel:   cfg.LLM.VisionModel,
		})
		if err != nil {
			return err
		}
	}
	cli := app.WrapClient(base, cfg.LLM)
	defer cli.Close()

	w = &lockedWriter{w: w}
	if opts.showPrompts {
		ctx = llm.WithPromptHook(ctx, promptPrinter{w: w})
	}

	ctrl := pipeline.New(cli, pipeline.Options{StageTimeout: cfg.StageTimeout, Logger: log.Default()})
	snaps, unsubscribe := ctrl.Subscribe()
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for s := range snaps {
			if s.StageLabel != "" {
				fmt.Fprintln(w, styleInfo.Render("• "+s.StageLabel))
			}
		}
	}()

	plan, err := ctrl.Generate(ctx, opts.req)
	unsubscribe()
	<-progressDone
	if err != nil {
		fmt.Fprintln(w, styleError.Render(pipeline.Message(err)))
		return err
	}

	imgPath, err := writePlanFiles(opts.outDir, plan, opts.writeJSON)
	if err != nil {
		return err
	}
	fmt.Fprint(w, renderPlan(plan))
	fmt.Fprintln(w, styleSuccess.Render("Blueprint saved to "+imgPath))
	return nil
}

// writePlanFiles saves the blueprint and optionally the analysis next to it.
func writePlanFiles(dir string, plan t.GeneratedPlan, withJSON bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	img, err := t.ParseDataURI(plan.ImageURL)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("archigen-plan-%d", plan.Timestamp)
	imgPath := filepath.Join(dir, base+img.Extension())
	if err := os.WriteFile(imgPath, img.Data, 0o644); err != nil {
		return "", err
	}
	if withJSON {
		b, err := json.MarshalIndent(plan.Analysis, "", "  ")
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dir, base+".json"), b, 0o644); err != nil {
			return "", err
		}
	}
	return imgPath, nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type promptPrinter struct {
	w io.Writer
}

func (p promptPrinter) Before(_ context.Context, stage string, op llm.Op, prompt string) {
	fmt.Fprintln(p.w, styleMuted.Render(fmt.Sprintf("[%s/%s]", stage, op)))
	fmt.Fprintln(p.w, styleMuted.Render(prompt))
}

func (p promptPrinter) After(context.Context, string, llm.Op, error) {}
