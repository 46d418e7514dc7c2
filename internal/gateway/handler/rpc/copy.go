package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"pagecopy/internal/batch"
	"pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/logger"
	"pagecopy/internal/orchestrator"
	"pagecopy/internal/types"
)

const CopyServiceName = "pagecopy.v1.CopyService"

const (
	DetectSlotsProcedure       = "/" + CopyServiceName + "/DetectSlots"
	GenerateNarrativeProcedure = "/" + CopyServiceName + "/GenerateNarrative"
	MapSlotsProcedure          = "/" + CopyServiceName + "/MapSlots"
	GenerateProcedure          = "/" + CopyServiceName + "/Generate"
	GenerateSlotProcedure      = "/" + CopyServiceName + "/GenerateSlot"
	RegenerateSlotProcedure    = "/" + CopyServiceName + "/RegenerateSlot"
	GetRunProcedure            = "/" + CopyServiceName + "/GetRun"
)

// CopyService is the generation surface behind the handler.
type CopyService interface {
	GenerateNarrative(ctx context.Context, brief types.Brief) (*orchestrator.Narrative, error)
	MapNarrativeToSlots(ctx context.Context, req orchestrator.MapRequest, observe batch.Observer) (*types.Result, error)
	Generate(ctx context.Context, req orchestrator.GenerateRequest, observe batch.Observer) (*types.Result, error)
	GenerateSlot(ctx context.Context, req orchestrator.SlotRequest) (*types.Result, error)
	RegenerateSlot(ctx context.Context, req orchestrator.RegenerateRequest) (*types.Result, error)
}

type SlotDetector interface {
	Detect(src string) (*types.DetectionResult, error)
}

type RunLoader interface {
	Load(ctx context.Context, runID string) (*artifact.Run, error)
}

type DetectSlotsRequest struct {
	HTML string `json:"html"`
}

type DetectSlotsResponse struct {
	MarkedHTML string                `json:"markedHtml"`
	Slots      []types.ContentRegion `json:"slots"`
	Fields     types.Manifest        `json:"fields"`
}

type GenerateNarrativeRequest struct {
	Brief types.Brief `json:"brief"`
}

type GetRunRequest struct {
	RunID string `json:"runId"`
}

type CopyHandler struct {
	svc      CopyService
	detector SlotDetector
	runs     RunLoader
	log      *logger.Logger
}

// NewCopyHandler wires the service; runs may be nil when no archive is
// configured.
func NewCopyHandler(svc CopyService, detector SlotDetector, runs RunLoader, log *logger.Logger) *CopyHandler {
	return &CopyHandler{svc: svc, detector: detector, runs: runs, log: logger.OrNop(log)}
}

func (h *CopyHandler) DetectSlots(_ context.Context, req *connect.Request[DetectSlotsRequest]) (*connect.Response[DetectSlotsResponse], error) {
	res, err := h.detector.Detect(req.Msg.HTML)
	if err != nil {
		return nil, toCopyError(err)
	}
	return connect.NewResponse(&DetectSlotsResponse{
		MarkedHTML: res.MarkedHTML,
		Slots:      res.Slots,
		Fields:     res.Manifest(),
	}), nil
}

func (h *CopyHandler) GenerateNarrative(ctx context.Context, req *connect.Request[GenerateNarrativeRequest]) (*connect.Response[orchestrator.Narrative], error) {
	out, err := h.svc.GenerateNarrative(ctx, req.Msg.Brief)
	if err != nil {
		return nil, toCopyError(err)
	}
	return connect.NewResponse(out), nil
}

func (h *CopyHandler) MapSlots(ctx context.Context, req *connect.Request[orchestrator.MapRequest]) (*connect.Response[types.Result], error) {
	return respond(h.svc.MapNarrativeToSlots(ctx, *req.Msg, nil))
}

func (h *CopyHandler) Generate(ctx context.Context, req *connect.Request[orchestrator.GenerateRequest]) (*connect.Response[types.Result], error) {
	return respond(h.svc.Generate(ctx, *req.Msg, nil))
}

func (h *CopyHandler) GenerateSlot(ctx context.Context, req *connect.Request[orchestrator.SlotRequest]) (*connect.Response[types.Result], error) {
	return respond(h.svc.GenerateSlot(ctx, *req.Msg))
}

func (h *CopyHandler) RegenerateSlot(ctx context.Context, req *connect.Request[orchestrator.RegenerateRequest]) (*connect.Response[types.Result], error) {
	return respond(h.svc.RegenerateSlot(ctx, *req.Msg))
}

func (h *CopyHandler) GetRun(ctx context.Context, req *connect.Request[GetRunRequest]) (*connect.Response[artifact.Run], error) {
	if h.runs == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errNoArchive)
	}
	id := strings.TrimSpace(req.Msg.RunID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errRunIDRequired)
	}
	run, err := h.runs.Load(ctx, id)
	if err != nil {
		return nil, toCopyError(err)
	}
	return connect.NewResponse(run), nil
}

func respond(res *types.Result, err error) (*connect.Response[types.Result], error) {
	if err != nil {
		return nil, toCopyError(err)
	}
	return connect.NewResponse(res), nil
}

// NewCopyServiceHandler mounts every CopyService procedure under one path
// prefix for http.ServeMux.
func NewCopyServiceHandler(h *CopyHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(DetectSlotsProcedure, connect.NewUnaryHandler(DetectSlotsProcedure, h.DetectSlots, opts...))
	mux.Handle(GenerateNarrativeProcedure, connect.NewUnaryHandler(GenerateNarrativeProcedure, h.GenerateNarrative, opts...))
	mux.Handle(MapSlotsProcedure, connect.NewUnaryHandler(MapSlotsProcedure, h.MapSlots, opts...))
	mux.Handle(GenerateProcedure, connect.NewUnaryHandler(GenerateProcedure, h.Generate, opts...))
	mux.Handle(GenerateSlotProcedure, connect.NewUnaryHandler(GenerateSlotProcedure, h.GenerateSlot, opts...))
	mux.Handle(RegenerateSlotProcedure, connect.NewUnaryHandler(RegenerateSlotProcedure, h.RegenerateSlot, opts...))
	mux.Handle(GetRunProcedure, connect.NewUnaryHandler(GetRunProcedure, h.GetRun, opts...))
	return "/" + CopyServiceName + "/", mux
}
