package withdrawalfee

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var ErrSinkUnavailable = errors.New("withdrawal request sink unavailable")

// QueueReader exposes the fee market state of a withdrawal request queue.
type QueueReader interface {
	// ExcessRequests returns the excess carried into the current block.
	ExcessRequests() (uint64, error)
	// RequestCount returns the number of requests added in the current block.
	RequestCount() (uint64, error)
}

// Estimator recommends the value to attach to a batch of withdrawal requests.
type Estimator struct {
	sink QueueReader
}

func NewEstimator(sink QueueReader) *Estimator {
	return &Estimator{sink: sink}
}

// RecommendedFee returns the total fee for n requests included in the current
// block. The excess only moves at block boundaries, so every request in the
// batch is priced at the same per-request fee.
func (e *Estimator) RecommendedFee(n uint64) (*uint256.Int, error) {
	excess, err := e.excess()
	if err != nil {
		return nil, err
	}

	return TotalFee(excess, n)
}

// ProjectedFee returns the total fee for n requests priced at the excess the
// queue reaches once the current block closes with its queued requests plus
// the n new ones, and never below the current excess. The result covers
// inclusion in the current block as well as the next one.
func (e *Estimator) ProjectedFee(n uint64) (*uint256.Int, error) {
	excess, err := e.excess()
	if err != nil {
		return nil, err
	}

	count, err := e.sink.RequestCount()
	if err != nil {
		return nil, errors.Wrap(ErrSinkUnavailable, err.Error())
	}

	return TotalFee(projectedExcess(excess, count+n), n)
}

// projectedExcess is the excess a request added now may be charged at.
func projectedExcess(excess, count uint64) uint64 {
	return max(excess, NextExcess(excess, count))
}

func (e *Estimator) excess() (uint64, error) {
	if e == nil || e.sink == nil {
		return 0, errors.Wrap(ErrSinkUnavailable, "no sink configured")
	}

	excess, err := e.sink.ExcessRequests()
	if err != nil {
		return 0, errors.Wrap(ErrSinkUnavailable, err.Error())
	}

	return excess, nil
}
