package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"PoolRisk/internal/core"
	"PoolRisk/internal/ingestion"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/state"
)

// GRPCServer wraps the gRPC server and the HTTP/JSON gateway mux.
type GRPCServer struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	healthServer  *health.Server
	service       *riskService
	grpcAddr      string
	httpAddr      string
	healthChecker *observability.HealthChecker
	metrics       *observability.Metrics
	log           zerolog.Logger
}

// ServerDeps holds all dependencies needed by the risk service.
type ServerDeps struct {
	Engine        *core.Engine
	Store         *state.SnapshotStore
	Ingest        *ingestion.DirectIngestService // nil disables the Submit methods
	Defaults      core.EvalOptions
	HealthChecker *observability.HealthChecker
	Metrics       *observability.Metrics
	Log           zerolog.Logger
}

// NewGRPCServer creates a gRPC server with the risk and health services
// registered.
func NewGRPCServer(grpcAddr, httpAddr string, deps *ServerDeps) *GRPCServer {
	svc := &riskService{
		engine:   deps.Engine,
		store:    deps.Store,
		ingest:   deps.Ingest,
		defaults: deps.Defaults,
		metrics:  deps.Metrics,
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(deps.Log),
			queryMetricsInterceptor(deps.Metrics),
		),
	)
	RegisterRiskServiceServer(grpcServer, svc)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{
		grpcServer:    grpcServer,
		healthServer:  healthServer,
		service:       svc,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		healthChecker: deps.HealthChecker,
		metrics:       deps.Metrics,
		log:           deps.Log,
	}
}

// Serve serves gRPC on lis until ctx is done (blocking).
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("gRPC server shutting down")
		s.healthServer.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// StartGRPC listens on the configured address and serves (blocking).
func (s *GRPCServer) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// StartHTTPGateway serves the HTTP/JSON routes and health endpoints
// (blocking).
func (s *GRPCServer) StartHTTPGateway(ctx context.Context) error {
	handler, err := s.HTTPHandler()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("HTTP gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.httpAddr).Msg("HTTP gateway listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// recoveryInterceptor turns a handler panic into codes.Internal so one bad
// request cannot stop the process.
func recoveryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("method", info.FullMethod).
					Interface("panic", r).
					Msg("handler panic")
				resp, err = nil, status.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}

func queryMetricsInterceptor(m *observability.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		if m != nil {
			m.QueryRequests.WithLabelValues(info.FullMethod).Inc()
			m.QueryDuration.WithLabelValues(info.FullMethod).Observe(time.Since(started).Seconds())
			if err != nil {
				m.QueryErrors.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
			}
		}
		return resp, err
	}
}

// ============================================================================
// RiskService implementation
// ============================================================================

type riskService struct {
	engine   *core.Engine
	store    *state.SnapshotStore
	ingest   *ingestion.DirectIngestService
	defaults core.EvalOptions
	metrics  *observability.Metrics
}

func (s *riskService) Evaluate(ctx context.Context, req *EvaluateRequest) (*ReportResponse, error) {
	r, err := s.evaluate("evaluate", core.Request{
		PoolID:    req.PoolID,
		Positions: req.Positions,
		Rates:     req.Rates,
		Pool:      req.Pool,
	}, req.Options)
	if err != nil {
		return nil, err
	}
	return &ReportResponse{PoolID: req.PoolID, Report: r}, nil
}

func (s *riskService) GetPoolReport(ctx context.Context, req *GetPoolReportRequest) (*ReportResponse, error) {
	if req.PoolID == "" {
		return nil, status.Error(codes.InvalidArgument, "pool_id is required")
	}

	snap, ok := s.store.Get(req.PoolID)
	if !ok {
		return nil, toStatus(fmt.Errorf("%w: %s", ingestion.ErrUnknownPool, req.PoolID))
	}

	r, err := s.evaluate("pool_report", core.RequestFromSnapshot(snap, core.EvalOptions{}), req.Options)
	if err != nil {
		return nil, err
	}

	resp := &ReportResponse{
		PoolID:           snap.PoolID,
		PositionSequence: snap.PositionSequence,
		PoolSequence:     snap.PoolSequence,
		Report:           r,
	}
	if !snap.PositionsAsOf.IsZero() {
		asOf := snap.PositionsAsOf
		resp.PositionsAsOf = &asOf
	}
	return resp, nil
}

// evaluate applies view options over the service defaults and runs the
// engine.
func (s *riskService) evaluate(source string, req core.Request, view ViewOptions) (*core.Report, error) {
	opts := view.Apply(s.defaults)
	req.Grid = opts.Grid
	req.Buckets = opts.Buckets
	req.SelectedShockPct = opts.SelectedShockPct
	req.DepositUSD = opts.DepositUSD
	req.HorizonDays = opts.HorizonDays

	started := time.Now()
	r, err := s.engine.Evaluate(req)
	if s.metrics != nil {
		s.metrics.ObserveEvaluation(source, started, err)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return r, nil
}

func (s *riskService) ListPools(ctx context.Context, req *ListPoolsRequest) (*ListPoolsResponse, error) {
	resp := &ListPoolsResponse{Pools: []PoolSummary{}}
	for _, id := range s.store.PoolIDs() {
		snap, ok := s.store.Get(id)
		if !ok {
			continue
		}
		resp.Pools = append(resp.Pools, PoolSummary{
			PoolID:           id,
			Positions:        len(snap.Positions),
			PositionSequence: snap.PositionSequence,
			PoolSequence:     snap.PoolSequence,
			HasRates:         snap.Rates != nil,
			PositionsAsOf:    snap.PositionsAsOf,
		})
	}
	return resp, nil
}

func (s *riskService) SubmitPositions(ctx context.Context, req *SubmitPositionsRequest) (*SubmitResponse, error) {
	if s.ingest == nil {
		return nil, status.Error(codes.Unimplemented, "direct ingest is disabled")
	}

	for i := range req.Positions {
		p := &req.Positions[i]
		p.TotalDebtUSD = p.TotalDebt()
		p.IsLiquidatable = state.CurrentValuation(*p).Liquidatable
	}

	evt, err := s.ingest.InjectPositions(ctx, req.PoolID, req.Positions, req.Sequence)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SubmitResponse{Accepted: true, Key: evt.IdempotencyKey()}, nil
}

func (s *riskService) SubmitPool(ctx context.Context, req *SubmitPoolRequest) (*SubmitResponse, error) {
	if s.ingest == nil {
		return nil, status.Error(codes.Unimplemented, "direct ingest is disabled")
	}

	evt, err := s.ingest.InjectPool(ctx, req.PoolID, req.Rates, req.Pool, req.Sequence)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SubmitResponse{Accepted: true, Key: evt.IdempotencyKey()}, nil
}

// ============================================================================
// Helpers
// ============================================================================

// toStatus maps domain errors onto gRPC codes. Configuration and input
// errors are the caller's; anything else is internal.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ingestion.ErrUnknownPool):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, core.ErrInvalidGrid),
		errors.Is(err, core.ErrInvalidHorizon),
		errors.Is(err, state.ErrInvalidBuckets),
		errors.Is(err, state.ErrInvalidRateConfig),
		errors.Is(err, ingestion.ErrInvalidSnapshot):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
