// Package withdrawalfee prices execution layer triggered withdrawal requests
// the way the EIP-7002 predeploy does.
package withdrawalfee

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	MinWithdrawalRequestFee            = 1
	WithdrawalRequestFeeUpdateFraction = 17
	TargetWithdrawalRequestsPerBlock   = 2
	MaxWithdrawalRequestsPerBlock      = 16
)

// FakeExponential approximates factor * e ** (numerator / denominator) using a
// taylor expansion in integer arithmetic.
func FakeExponential(factor, numerator, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, errors.New("fake exponential: zero denominator")
	}

	output := new(uint256.Int)
	numeratorAccum := new(uint256.Int)

	if _, overflow := numeratorAccum.MulOverflow(factor, denominator); overflow {
		return nil, errors.Errorf("fake exponential: overflow in factor*denominator (factor=%v, denominator=%v)", factor, denominator)
	}

	divisor := new(uint256.Int)

	for i := uint64(1); numeratorAccum.Sign() > 0; i++ {
		if _, overflow := output.AddOverflow(output, numeratorAccum); overflow {
			return nil, errors.Errorf("fake exponential: overflow in accumulation (output=%v, accum=%v)", output, numeratorAccum)
		}

		if _, overflow := divisor.MulOverflow(denominator, uint256.NewInt(i)); overflow {
			return nil, errors.Errorf("fake exponential: overflow in denominator*%d", i)
		}

		if _, overflow := numeratorAccum.MulDivOverflow(numeratorAccum, numerator, divisor); overflow {
			return nil, errors.Errorf("fake exponential: overflow in accum*numerator/divisor (accum=%v, numerator=%v)", numeratorAccum, numerator)
		}
	}

	return output.Div(output, denominator), nil
}

// RequestFee returns the fee charged for one withdrawal request at the given
// queue excess.
func RequestFee(excess uint64) (*uint256.Int, error) {
	return FakeExponential(
		uint256.NewInt(MinWithdrawalRequestFee),
		uint256.NewInt(excess),
		uint256.NewInt(WithdrawalRequestFeeUpdateFraction),
	)
}

// TotalFee returns the fee for n requests submitted in the same block at the
// given excess.
func TotalFee(excess, n uint64) (*uint256.Int, error) {
	fee, err := RequestFee(excess)
	if err != nil {
		return nil, err
	}

	total, overflow := new(uint256.Int).MulOverflow(fee, uint256.NewInt(n))
	if overflow {
		return nil, errors.Errorf("total fee overflows for %d requests at excess %d", n, excess)
	}

	return total, nil
}

// NextExcess returns the excess after a block that carried count requests.
func NextExcess(excess, count uint64) uint64 {
	if excess+count > TargetWithdrawalRequestsPerBlock {
		return excess + count - TargetWithdrawalRequestsPerBlock
	}

	return 0
}
