package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"archigen/internal/gateway/repository/archive"
	"archigen/internal/gateway/session"
	"archigen/internal/pipeline"
	t "archigen/internal/types"
)

const (
	MinRooms = 1
	MaxRooms = 10
)

var (
	ErrInvalidRequirements = errors.New("invalid requirements")
	ErrNoResult            = errors.New("no finished plan to export")
	ErrExportDisabled      = errors.New("plan export is not configured")
)

// Service is the presentation-facing entry point. Every call is scoped to a
// session, which owns one pipeline controller.
type Service struct {
	sessions  *session.Store
	exporter  *archive.Exporter
	countries []string
}

// New builds the service. exporter may be nil to disable Export.
func New(sessions *session.Store, exporter *archive.Exporter, countries []string) *Service {
	if len(countries) == 0 {
		countries = t.Countries
	}
	return &Service{sessions: sessions, exporter: exporter, countries: countries}
}

// Validate applies the form limits the core leaves to the caller.
func Validate(req t.Requirements) error {
	var problems []string
	if req.Rooms < MinRooms || req.Rooms > MaxRooms {
		problems = append(problems, fmt.Sprintf("rooms must be between %d and %d", MinRooms, MaxRooms))
	}
	if !(req.TotalArea > 0) {
		problems = append(problems, "totalArea must be positive")
	}
	if strings.TrimSpace(req.Country) == "" {
		problems = append(problems, "country is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequirements, strings.Join(problems, "; "))
	}
	return nil
}

func (s *Service) Generate(ctx context.Context, sessionID string, req t.Requirements) (string, t.GeneratedPlan, error) {
	id, ctrl := s.sessions.Resolve(sessionID)
	if err := Validate(req); err != nil {
		return id, t.GeneratedPlan{}, err
	}
	plan, err := ctrl.Generate(ctx, req)
	return id, plan, err
}

func (s *Service) Reset(sessionID string) (string, pipeline.Snapshot) {
	id, ctrl := s.sessions.Resolve(sessionID)
	return id, ctrl.Reset()
}

func (s *Service) State(sessionID string) (string, pipeline.Snapshot) {
	id, ctrl := s.sessions.Resolve(sessionID)
	return id, ctrl.Snapshot()
}

// Watch streams snapshots for a session until ctx ends, then closes the
// channel. Every refresh interval it touches the session so an open stream
// keeps it alive, and follows a replacement controller if the session was
// evicted meanwhile.
func (s *Service) Watch(ctx context.Context, sessionID string, refresh time.Duration) (string, <-chan pipeline.Snapshot) {
	id, ctrl := s.sessions.Resolve(sessionID)
	snaps, unsubscribe := ctrl.Subscribe()
	out := make(chan pipeline.Snapshot)

	go func() {
		defer close(out)
		defer func() { unsubscribe() }()
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, current := s.sessions.Resolve(id)
				if current == ctrl {
					continue
				}
				unsubscribe()
				ctrl = current
				snaps, unsubscribe = ctrl.Subscribe()
			case snap, ok := <-snaps:
				if !ok {
					snaps = nil
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return id, out
}

// Export archives the session's finished plan.
func (s *Service) Export(ctx context.Context, sessionID string) (string, archive.Manifest, error) {
	id, ctrl := s.sessions.Resolve(sessionID)
	if s.exporter == nil {
		return id, archive.Manifest{}, ErrExportDisabled
	}
	snap := ctrl.Snapshot()
	if snap.State != pipeline.StateResult || snap.Plan == nil {
		return id, archive.Manifest{}, ErrNoResult
	}
	m, err := s.exporter.Export(ctx, *snap.Plan)
	return id, m, err
}

// LoadExport reads back a plan archived by Export. It is not tied to a
// session.
func (s *Service) LoadExport(ctx context.Context, planID string) (archive.ExportedPlan, error) {
	if s.exporter == nil {
		return archive.ExportedPlan{}, ErrExportDisabled
	}
	if strings.TrimSpace(planID) == "" {
		return archive.ExportedPlan{}, fmt.Errorf("%w: planId is required", ErrInvalidRequirements)
	}
	return s.exporter.Load(ctx, planID)
}

func (s *Service) Countries() []string {
	return append([]string(nil), s.countries...)
}
