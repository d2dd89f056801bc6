package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"PoolRisk/internal/core"
)

// HTTPHandler returns the HTTP/JSON surface: the risk routes on a
// gateway mux, plus health endpoints. Routes call the service in-process.
func (s *GRPCServer) HTTPHandler() (http.Handler, error) {
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/evaluate", s.handleEvaluate},
		{http.MethodGet, "/v1/pools", s.handleListPools},
		{http.MethodGet, "/v1/pools/{pool_id}/report", s.handlePoolReport},
		{http.MethodPost, "/v1/pools/{pool_id}/positions", s.handleSubmitPositions},
		{http.MethodPost, "/v1/pools/{pool_id}/state", s.handleSubmitPool},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, s.instrument(rt.pattern, rt.handler)); err != nil {
			return nil, fmt.Errorf("register route %s %s: %w", rt.method, rt.pattern, err)
		}
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	} else {
		httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeBody(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	httpMux.Handle("/", mux)
	return httpMux, nil
}

func (s *GRPCServer) instrument(endpoint string, h runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Str("endpoint", endpoint).
					Interface("panic", rec).
					Msg("handler panic")
				writeError(w, status.Errorf(codes.Internal, "internal error in %s", endpoint))
			}
		}()
		if s.metrics != nil {
			s.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
		}
		h(w, r, params)
	}
}

func (s *GRPCServer) handleEvaluate(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.service.Evaluate(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBody(w, http.StatusOK, resp)
}

func (s *GRPCServer) handleListPools(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := s.service.ListPools(r.Context(), &ListPoolsRequest{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeBody(w, http.StatusOK, resp)
}

// handlePoolReport reads view options from the query string: shock,
// deposit, days, and grid_min/grid_max/grid_step.
func (s *GRPCServer) handlePoolReport(w http.ResponseWriter, r *http.Request, params map[string]string) {
	opts, err := viewOptionsFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.service.GetPoolReport(r.Context(), &GetPoolReportRequest{
		PoolID:  params["pool_id"],
		Options: opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeBody(w, http.StatusOK, resp)
}

func (s *GRPCServer) handleSubmitPositions(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req SubmitPositionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.PoolID = params["pool_id"]
	resp, err := s.service.SubmitPositions(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBody(w, http.StatusAccepted, resp)
}

func (s *GRPCServer) handleSubmitPool(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req SubmitPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.PoolID = params["pool_id"]
	resp, err := s.service.SubmitPool(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeBody(w, http.StatusAccepted, resp)
}

func viewOptionsFromQuery(r *http.Request) (ViewOptions, error) {
	q := r.URL.Query()
	var opts ViewOptions

	parse := func(key string) (*float64, error) {
		raw := q.Get(key)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s: %v", key, err)
		}
		return &v, nil
	}

	var err error
	if opts.SelectedShockPct, err = parse("shock"); err != nil {
		return opts, err
	}
	if opts.DepositUSD, err = parse("deposit"); err != nil {
		return opts, err
	}
	if raw := q.Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return opts, status.Errorf(codes.InvalidArgument, "days: %v", err)
		}
		opts.HorizonDays = days
	}

	lo, err := parse("grid_min")
	if err != nil {
		return opts, err
	}
	hi, err := parse("grid_max")
	if err != nil {
		return opts, err
	}
	step, err := parse("grid_step")
	if err != nil {
		return opts, err
	}
	if lo != nil || hi != nil || step != nil {
		if lo == nil || hi == nil || step == nil {
			return opts, status.Error(codes.InvalidArgument, "grid_min, grid_max and grid_step must be given together")
		}
		opts.Grid = &core.ShockGrid{MinPct: *lo, MaxPct: *hi, StepPct: *step}
	}
	return opts, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode body: %v", err)
	}
	return nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(toStatus(err))
	writeBody(w, runtime.HTTPStatusFromCode(st.Code()), errorBody{
		Code:    st.Code().String(),
		Message: st.Message(),
	})
}

func writeBody(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
