package sink

import (
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/withdrawalfee"
)

// ExcessInhibitor is the excess stored before the predeploy is activated.
const ExcessInhibitor = math.MaxUint64

var (
	ErrNotActivated         = errors.New("withdrawal request contract not activated")
	ErrInsufficientFee      = errors.New("insufficient withdrawal request fee")
	ErrInvalidRequestPubkey = errors.New("invalid validator pubkey")

	// WithdrawalRequestPredeploy is the EIP-7002 system contract address.
	WithdrawalRequestPredeploy = common.HexToAddress("0x00000961Ef480Eb55e80D19ad83579A64c007002")
)

// WithdrawalRequest is one queued execution layer triggered exit or partial
// withdrawal. An amount of zero requests a full exit.
type WithdrawalRequest struct {
	Source common.Address
	Pubkey []byte
	Amount uint64
}

// WithdrawalRequestContract models the EIP-7002 predeploy: a fee market over
// a request queue whose excess is updated once per block.
type WithdrawalRequestContract struct {
	address common.Address

	mu     sync.RWMutex
	excess uint64
	count  uint64
	queue  []*WithdrawalRequest
}

// NewWithdrawalRequestContract returns an activated contract with zero excess.
func NewWithdrawalRequestContract(address common.Address) *WithdrawalRequestContract {
	return &WithdrawalRequestContract{address: address}
}

func (c *WithdrawalRequestContract) Address() common.Address {
	return c.address
}

// SetExcess overwrites the stored excess. ExcessInhibitor deactivates the contract.
func (c *WithdrawalRequestContract) SetExcess(excess uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.excess = excess
}

func (c *WithdrawalRequestContract) ExcessRequests() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.excess == ExcessInhibitor {
		return 0, ErrNotActivated
	}

	return c.excess, nil
}

func (c *WithdrawalRequestContract) RequestCount() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.excess == ExcessInhibitor {
		return 0, ErrNotActivated
	}

	return c.count, nil
}

// Fee returns the fee currently charged per request.
func (c *WithdrawalRequestContract) Fee() (*uint256.Int, error) {
	excess, err := c.ExcessRequests()
	if err != nil {
		return nil, err
	}

	return withdrawalfee.RequestFee(excess)
}

// AddRequest queues a request paid with value, which must cover the current fee.
func (c *WithdrawalRequestContract) AddRequest(tx *chain.Tx, source common.Address, pubkey []byte, amount uint64, value *uint256.Int) error {
	if len(pubkey) != deposit.PubkeyLength {
		return errors.Wrapf(ErrInvalidRequestPubkey, "length %d", len(pubkey))
	}

	fee, err := c.Fee()
	if err != nil {
		return err
	}

	if value.Lt(fee) {
		return errors.Wrapf(ErrInsufficientFee, "attached %s wei, fee is %s wei", value.Dec(), fee.Dec())
	}

	if err := tx.Transfer(source, c.address, value); err != nil {
		return err
	}

	request := &WithdrawalRequest{
		Source: source,
		Pubkey: append([]byte(nil), pubkey...),
		Amount: amount,
	}

	c.mu.Lock()
	c.queue = append(c.queue, request)
	c.count++
	c.mu.Unlock()

	tx.OnRevert(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.queue = c.queue[:len(c.queue)-1]
		c.count--
	})

	log.WithFields(logrus.Fields{
		"source": source.Hex(),
		"amount": amount,
		"fee":    fee.Dec(),
	}).Debug("Withdrawal request queued")

	return nil
}

// Pending returns the queued requests not yet dequeued.
func (c *WithdrawalRequestContract) Pending() []*WithdrawalRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*WithdrawalRequest, len(c.queue))
	copy(out, c.queue)

	return out
}

// EndBlock runs the end-of-block system call: it dequeues up to
// MaxWithdrawalRequestsPerBlock requests and updates the excess.
func (c *WithdrawalRequestContract) EndBlock() []*WithdrawalRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.excess == ExcessInhibitor {
		return nil
	}

	n := len(c.queue)
	if n > withdrawalfee.MaxWithdrawalRequestsPerBlock {
		n = withdrawalfee.MaxWithdrawalRequestsPerBlock
	}

	dequeued := c.queue[:n:n]
	c.queue = append([]*WithdrawalRequest(nil), c.queue[n:]...)

	c.excess = withdrawalfee.NextExcess(c.excess, c.count)
	c.count = 0

	return dequeued
}
