package deposit

import (
	"bytes"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	ethpb "github.com/prysmaticlabs/prysm/v5/proto/prysm/v1alpha1"
)

const (
	PubkeyLength                = 48
	WithdrawalCredentialsLength = 32
	SignatureLength             = 96

	// MinDepositAmount is the smallest deposit the beacon deposit contract accepts, in gwei.
	MinDepositAmount uint64 = 1_000_000_000
)

var (
	ErrInvalidRecord = errors.New("invalid deposit record")

	gwei = uint256.NewInt(1_000_000_000)
)

// Record is one validator's deposit instruction. Amount is denominated in gwei
// as in the beacon chain DepositData container; Value returns it in wei.
type Record struct {
	Pubkey                []byte
	WithdrawalCredentials []byte
	Signature             []byte
	Amount                uint64
	DataRoot              [32]byte
}

// Value returns the deposit amount in wei.
func (r *Record) Value() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(r.Amount), gwei)
}

// DepositData returns the beacon chain container the record describes.
func (r *Record) DepositData() *ethpb.Deposit_Data {
	return &ethpb.Deposit_Data{
		PublicKey:             r.Pubkey,
		WithdrawalCredentials: r.WithdrawalCredentials,
		Amount:                r.Amount,
		Signature:             r.Signature,
	}
}

// ComputeDataRoot returns the SSZ hash tree root of the record's DepositData.
func (r *Record) ComputeDataRoot() ([32]byte, error) {
	return r.DepositData().HashTreeRoot()
}

// Validate checks field lengths, the amount and that DataRoot matches the
// record's contents.
func (r *Record) Validate() error {
	if len(r.Pubkey) != PubkeyLength {
		return errors.Wrapf(ErrInvalidRecord, "pubkey length %d, want %d", len(r.Pubkey), PubkeyLength)
	}

	if len(r.WithdrawalCredentials) != WithdrawalCredentialsLength {
		return errors.Wrapf(ErrInvalidRecord, "withdrawal credentials length %d, want %d",
			len(r.WithdrawalCredentials), WithdrawalCredentialsLength)
	}

	if len(r.Signature) != SignatureLength {
		return errors.Wrapf(ErrInvalidRecord, "signature length %d, want %d", len(r.Signature), SignatureLength)
	}

	if r.Amount < MinDepositAmount {
		return errors.Wrapf(ErrInvalidRecord, "amount %d gwei below minimum %d", r.Amount, MinDepositAmount)
	}

	root, err := r.ComputeDataRoot()
	if err != nil {
		return errors.Wrapf(ErrInvalidRecord, "failed to compute deposit data root: %v", err)
	}

	if !bytes.Equal(root[:], r.DataRoot[:]) {
		return errors.Wrapf(ErrInvalidRecord, "deposit data root mismatch for pubkey %s: computed %s, supplied %s",
			r.PubkeyHex(), hex.EncodeToString(root[:]), hex.EncodeToString(r.DataRoot[:]))
	}

	return nil
}

// WithdrawalCredentials returns the 0x01 execution address credentials that
// send a validator's withdrawals to addr.
func WithdrawalCredentials(addr common.Address) []byte {
	creds := make([]byte, WithdrawalCredentialsLength)
	creds[0] = 0x01
	copy(creds[12:], addr.Bytes())

	return creds
}

// PubkeyHex returns the 0x-prefixed hex encoding of the validator pubkey.
func (r *Record) PubkeyHex() string {
	return "0x" + hex.EncodeToString(r.Pubkey)
}

// TotalValue sums the wei value of records.
func TotalValue(records []*Record) *uint256.Int {
	total := new(uint256.Int)

	for _, r := range records {
		total.Add(total, r.Value())
	}

	return total
}

// GweiFromWei converts a wei amount into gwei. It fails when the amount is not
// a whole number of gwei or does not fit into 64 bits.
func GweiFromWei(value *uint256.Int) (uint64, error) {
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(value, gwei, rem)

	if !rem.IsZero() {
		return 0, errors.Errorf("value %s wei is not a whole number of gwei", value.Dec())
	}

	if !quo.IsUint64() {
		return 0, errors.Errorf("value %s wei overflows gwei amount", value.Dec())
	}

	return quo.Uint64(), nil
}
