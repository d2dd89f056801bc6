package core

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	stdmath "math"

	"PoolRisk/internal/state"
)

const requestHashSeed = "PoolRisk:request:v1"

// RequestKey identifies an evaluation by the content of its inputs.
type RequestKey [32]byte

// RequestHasher computes key = SHA-256(seed || canonical(request)).
// Every field that influences the report is written in a fixed order with
// fixed-width little-endian numbers and length-prefixed strings, so equal
// inputs always hash equal and position order is significant.
type RequestHasher struct {
	h   hash.Hash
	buf [8]byte
}

func NewRequestHasher() *RequestHasher {
	return &RequestHasher{h: sha256.New()}
}

// Sum hashes req. The hasher is reset on every call and is not safe for
// concurrent use.
func (rh *RequestHasher) Sum(req Request) RequestKey {
	rh.h.Reset()
	rh.h.Write([]byte(requestHashSeed))

	rh.writeString(req.PoolID)

	rh.writeUint(uint64(len(req.Positions)))
	for _, p := range req.Positions {
		rh.writePosition(p)
	}

	rh.writeFloat(req.Grid.MinPct)
	rh.writeFloat(req.Grid.MaxPct)
	rh.writeFloat(req.Grid.StepPct)

	rh.writeUint(uint64(len(req.Buckets)))
	for _, b := range req.Buckets {
		rh.writeString(b.Label)
		rh.writeString(b.Color)
		rh.writeFloat(b.UpperHealthFactor)
	}

	if req.Rates == nil {
		rh.writeUint(0)
	} else {
		rh.writeUint(1)
		rh.writeFloat(req.Rates.OptimalUtilization)
		rh.writeFloat(req.Rates.BaseRate)
		rh.writeFloat(req.Rates.BaseSlope)
		rh.writeFloat(req.Rates.ExcessSlope)
		rh.writeFloat(req.Rates.ProtocolSpread)
	}
	rh.writeFloat(req.Pool.TotalSupply)
	rh.writeFloat(req.Pool.TotalBorrow)

	rh.writeFloat(req.SelectedShockPct)
	rh.writeFloat(req.DepositUSD)
	rh.writeUint(uint64(int64(req.HorizonDays)))

	var key RequestKey
	copy(key[:], rh.h.Sum(nil))
	return key
}

func (rh *RequestHasher) writePosition(p state.Position) {
	rh.writeString(p.PositionID)
	rh.writeString(p.Owner)
	rh.writeFloat(p.BaseAssetUSD)
	rh.writeFloat(p.QuoteAssetUSD)
	rh.writeFloat(p.BaseDebtUSD)
	rh.writeFloat(p.QuoteDebtUSD)
	rh.writeFloat(p.TotalDebtUSD)
	rh.writeFloat(p.LiquidationThreshold)
	if p.IsLiquidatable {
		rh.writeUint(1)
	} else {
		rh.writeUint(0)
	}
	rh.writeUint(uint64(p.BasePythPrice))
	rh.writeUint(uint64(int64(p.BasePythDecimals)))
}

func (rh *RequestHasher) writeUint(v uint64) {
	binary.LittleEndian.PutUint64(rh.buf[:], v)
	rh.h.Write(rh.buf[:])
}

func (rh *RequestHasher) writeFloat(v float64) {
	rh.writeUint(stdmath.Float64bits(v))
}

func (rh *RequestHasher) writeString(s string) {
	rh.writeUint(uint64(len(s)))
	rh.h.Write([]byte(s))
}
