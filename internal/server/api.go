package server

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"PoolRisk/internal/core"
	"PoolRisk/internal/state"
)

const ServiceName = "poolrisk.v1.RiskService"

// ViewOptions are the interactive parameters of an evaluation. Zero
// values fall back to the service defaults.
type ViewOptions struct {
	Grid             *core.ShockGrid `json:"grid,omitempty"`
	SelectedShockPct *float64        `json:"selected_shock_pct,omitempty"`
	DepositUSD       *float64        `json:"deposit_usd,omitempty"`
	HorizonDays      int             `json:"horizon_days,omitempty"`
}

// Apply overlays the set fields of v on defaults.
func (v ViewOptions) Apply(defaults core.EvalOptions) core.EvalOptions {
	opts := defaults
	if v.Grid != nil {
		opts.Grid = *v.Grid
	}
	if v.SelectedShockPct != nil {
		opts.SelectedShockPct = *v.SelectedShockPct
	}
	if v.DepositUSD != nil {
		opts.DepositUSD = *v.DepositUSD
	}
	if v.HorizonDays != 0 {
		opts.HorizonDays = v.HorizonDays
	}
	return opts
}

// EvaluateRequest evaluates caller-supplied inputs without touching the
// snapshot store.
type EvaluateRequest struct {
	PoolID    string                    `json:"pool_id"`
	Positions []state.Position          `json:"positions"`
	Rates     *state.InterestRateConfig `json:"interest_rate_config,omitempty"`
	Pool      state.PoolState           `json:"pool_state"`
	Options   ViewOptions               `json:"options"`
}

type GetPoolReportRequest struct {
	PoolID  string      `json:"pool_id"`
	Options ViewOptions `json:"options"`
}

type ReportResponse struct {
	PoolID           string       `json:"pool_id"`
	PositionSequence int64        `json:"position_sequence,omitempty"`
	PoolSequence     int64        `json:"pool_sequence,omitempty"`
	PositionsAsOf    *time.Time   `json:"positions_as_of,omitempty"`
	Report           *core.Report `json:"report"`
}

type ListPoolsRequest struct{}

type PoolSummary struct {
	PoolID           string    `json:"pool_id"`
	Positions        int       `json:"positions"`
	PositionSequence int64     `json:"position_sequence"`
	PoolSequence     int64     `json:"pool_sequence"`
	HasRates         bool      `json:"has_rates"`
	PositionsAsOf    time.Time `json:"positions_as_of"`
}

type ListPoolsResponse struct {
	Pools []PoolSummary `json:"pools"`
}

type SubmitPositionsRequest struct {
	PoolID    string           `json:"pool_id"`
	Sequence  int64            `json:"sequence"`
	Positions []state.Position `json:"positions"`
}

type SubmitPoolRequest struct {
	PoolID   string                    `json:"pool_id"`
	Sequence int64                     `json:"sequence"`
	Rates    *state.InterestRateConfig `json:"interest_rate_config,omitempty"`
	Pool     state.PoolState           `json:"pool_state"`
}

type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	Key      string `json:"idempotency_key"`
}

// RiskServiceServer is the gRPC surface of the risk service.
type RiskServiceServer interface {
	Evaluate(context.Context, *EvaluateRequest) (*ReportResponse, error)
	GetPoolReport(context.Context, *GetPoolReportRequest) (*ReportResponse, error)
	ListPools(context.Context, *ListPoolsRequest) (*ListPoolsResponse, error)
	SubmitPositions(context.Context, *SubmitPositionsRequest) (*SubmitResponse, error)
	SubmitPool(context.Context, *SubmitPoolRequest) (*SubmitResponse, error)
}

// RegisterRiskServiceServer registers srv on s.
func RegisterRiskServiceServer(s grpc.ServiceRegistrar, srv RiskServiceServer) {
	s.RegisterService(&riskServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(RiskServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RiskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RiskServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var riskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Evaluate", RiskServiceServer.Evaluate),
		unaryHandler("GetPoolReport", RiskServiceServer.GetPoolReport),
		unaryHandler("ListPools", RiskServiceServer.ListPools),
		unaryHandler("SubmitPositions", RiskServiceServer.SubmitPositions),
		unaryHandler("SubmitPool", RiskServiceServer.SubmitPool),
	},
	Streams: []grpc.StreamDesc{},
}

// Client calls the risk service over a JSON-coded gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.ForceCodec(JSONCodec{}))
}

func (c *Client) Evaluate(ctx context.Context, in *EvaluateRequest) (*ReportResponse, error) {
	out := new(ReportResponse)
	if err := c.invoke(ctx, "Evaluate", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPoolReport(ctx context.Context, in *GetPoolReportRequest) (*ReportResponse, error) {
	out := new(ReportResponse)
	if err := c.invoke(ctx, "GetPoolReport", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPools(ctx context.Context) (*ListPoolsResponse, error) {
	out := new(ListPoolsResponse)
	if err := c.invoke(ctx, "ListPools", &ListPoolsRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitPositions(ctx context.Context, in *SubmitPositionsRequest) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	if err := c.invoke(ctx, "SubmitPositions", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitPool(ctx context.Context, in *SubmitPoolRequest) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	if err := c.invoke(ctx, "SubmitPool", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
