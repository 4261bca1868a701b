package vault

import (
	"github.com/pkg/errors"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/withdrawalfee"
)

var (
	ErrUnauthorized            = access.ErrUnauthorized
	ErrZeroAddress             = access.ErrZeroAddress
	ErrExternalSinkUnavailable = withdrawalfee.ErrSinkUnavailable

	ErrInvalidAmount        = errors.New("invalid amount")
	ErrQuotaMismatch        = errors.New("approved records do not match the quota gap")
	ErrInvalidStakeAmount   = errors.New("stake amount does not align with pending deposit records")
	ErrInvalidRoleRemoval   = errors.New("staker cannot be removed from depositors")
	ErrExternalCallFailed   = errors.New("external call failed")
	ErrInvalidDepositRecord = errors.New("invalid deposit record")
	ErrTransferFailed       = errors.New("transfer failed")
	ErrUnknownValidator     = errors.New("validator was not deposited by this vault")
	ErrExitAlreadyRequested = errors.New("exit already requested")
	ErrInvalidFeeRate       = errors.New("fee rate exceeds 10000 basis points")
)
