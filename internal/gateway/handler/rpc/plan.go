package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"archigen/internal/gateway/repository/archive"
	planservice "archigen/internal/gateway/service/plan"
	"archigen/internal/pipeline"
	t "archigen/internal/types"
)

const (
	PlanServiceName = "archigen.v1.PlanService"

	GenerateProcedure      = "/" + PlanServiceName + "/Generate"
	ResetProcedure         = "/" + PlanServiceName + "/Reset"
	GetStateProcedure      = "/" + PlanServiceName + "/GetState"
	ExportProcedure        = "/" + PlanServiceName + "/Export"
	ListCountriesProcedure = "/" + PlanServiceName + "/ListCountries"
	LoadExportProcedure    = "/" + PlanServiceName + "/LoadExport"

	// SessionHeader carries the session id in both directions.
	SessionHeader = "X-Session-ID"
)

type GenerateRequest struct {
	Requirements t.Requirements `json:"requirements"`
}

type GenerateResponse struct {
	Plan t.GeneratedPlan `json:"plan"`
}

type ResetRequest struct{}

type GetStateRequest struct{}

type StateResponse struct {
	Snapshot pipeline.Snapshot `json:"snapshot"`
}

type ExportRequest struct{}

type ExportResponse struct {
	Manifest archive.Manifest `json:"manifest"`
}

type LoadExportRequest struct {
	PlanID string `json:"planId"`
}

type LoadExportResponse struct {
	Plan archive.ExportedPlan `json:"plan"`
}

type ListCountriesRequest struct{}

type ListCountriesResponse struct {
	Countries []string       `json:"countries"`
	Defaults  t.Requirements `json:"defaults"`
}

type PlanHandler struct {
	svc *planservice.Service
}

func NewPlanHandler(svc *planservice.Service) *PlanHandler {
	return &PlanHandler{svc: svc}
}

// Handler mounts every PlanService procedure on one path prefix.
func (h *PlanHandler) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(GenerateProcedure, connect.NewUnaryHandler(GenerateProcedure, h.Generate, opts...))
	mux.Handle(ResetProcedure, connect.NewUnaryHandler(ResetProcedure, h.Reset, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, h.GetState, opts...))
	mux.Handle(ExportProcedure, connect.NewUnaryHandler(ExportProcedure, h.Export, opts...))
	mux.Handle(LoadExportProcedure, connect.NewUnaryHandler(LoadExportProcedure, h.LoadExport, opts...))
	mux.Handle(ListCountriesProcedure, connect.NewUnaryHandler(ListCountriesProcedure, h.ListCountries, opts...))
	return "/" + PlanServiceName + "/", mux
}

func (h *PlanHandler) Generate(ctx context.Context, req *connect.Request[GenerateRequest]) (*connect.Response[GenerateResponse], error) {
	id, plan, err := h.svc.Generate(ctx, req.Header().Get(SessionHeader), req.Msg.Requirements)
	if err != nil {
		return nil, withSession(toPlanError(err), id)
	}
	return withSessionHeader(connect.NewResponse(&GenerateResponse{Plan: plan}), id), nil
}

func (h *PlanHandler) Reset(_ context.Context, req *connect.Request[ResetRequest]) (*connect.Response[StateResponse], error) {
	id, snap := h.svc.Reset(req.Header().Get(SessionHeader))
	return withSessionHeader(connect.NewResponse(&StateResponse{Snapshot: snap}), id), nil
}

func (h *PlanHandler) GetState(_ context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[StateResponse], error) {
	id, snap := h.svc.State(req.Header().Get(SessionHeader))
	return withSessionHeader(connect.NewResponse(&StateResponse{Snapshot: snap}), id), nil
}

func (h *PlanHandler) Export(ctx context.Context, req *connect.Request[ExportRequest]) (*connect.Response[ExportResponse], error) {
	id, m, err := h.svc.Export(ctx, req.Header().Get(SessionHeader))
	if err != nil {
		return nil, withSession(toPlanError(err), id)
	}
	return withSessionHeader(connect.NewResponse(&ExportResponse{Manifest: m}), id), nil
}

func (h *PlanHandler) LoadExport(ctx context.Context, req *connect.Request[LoadExportRequest]) (*connect.Response[LoadExportResponse], error) {
	p, err := h.svc.LoadExport(ctx, req.Msg.PlanID)
	if err != nil {
		return nil, toPlanError(err)
	}
	return connect.NewResponse(&LoadExportResponse{Plan: p}), nil
}

func (h *PlanHandler) ListCountries(context.Context, *connect.Request[ListCountriesRequest]) (*connect.Response[ListCountriesResponse], error) {
	return connect.NewResponse(&ListCountriesResponse{
		Countries: h.svc.Countries(),
		Defaults:  t.DefaultRequirements(),
	}), nil
}

func withSessionHeader[T any](res *connect.Response[T], id string) *connect.Response[T] {
	res.Header().Set(SessionHeader, id)
	return res
}

func withSession(err error, id string) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		cerr.Meta().Set(SessionHeader, id)
	}
	return err
}

func toPlanError(err error) error {
	switch {
	case errors.Is(err, planservice.ErrInvalidRequirements):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, planservice.ErrNoResult):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, planservice.ErrExportDisabled):
		return connect.NewError(connect.CodeUnimplemented, err)
	case errors.Is(err, archive.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	}
	switch pipeline.Classify(err) {
	case pipeline.CodeInProgress:
		return connect.NewError(connect.CodeAborted, err)
	case pipeline.CodeTimeout:
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case pipeline.CodeTransport:
		return connect.NewError(connect.CodeUnavailable, err)
	case pipeline.CodeCanceled:
		return connect.NewError(connect.CodeCanceled, err)
	case pipeline.CodeMalformedResponse, pipeline.CodeNoData, pipeline.CodeNoImage:
		return connect.NewError(connect.CodeInternal, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("plan service failed: %w", err))
	}
}
