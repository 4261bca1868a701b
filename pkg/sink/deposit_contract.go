package sink

import (
	"bytes"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

var (
	ErrDepositRejected = errors.New("deposit rejected")

	// MainnetDepositContract is the beacon deposit contract address on mainnet.
	MainnetDepositContract = common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
)

// DepositEvent is one accepted deposit, in acceptance order.
type DepositEvent struct {
	Index  uint64
	From   common.Address
	Record *deposit.Record
}

// DepositContract models the beacon deposit contract: it checks the deposit
// arguments the way the contract does, keeps the deposited value and logs
// every accepted deposit.
type DepositContract struct {
	address common.Address

	mu       sync.RWMutex
	deposits []*DepositEvent
}

func NewDepositContract(address common.Address) *DepositContract {
	return &DepositContract{address: address}
}

func (c *DepositContract) Address() common.Address {
	return c.address
}

// Deposit accepts value from the caller on behalf of the validator described
// by record. The amount is derived from value; the supplied data root must
// match the root recomputed with that amount.
func (c *DepositContract) Deposit(tx *chain.Tx, from common.Address, value *uint256.Int, record *deposit.Record) error {
	amount, err := deposit.GweiFromWei(value)
	if err != nil {
		return errors.Wrap(ErrDepositRejected, err.Error())
	}

	if amount < deposit.MinDepositAmount {
		return errors.Wrapf(ErrDepositRejected, "deposit value %d gwei too low", amount)
	}

	checked := &deposit.Record{
		Pubkey:                record.Pubkey,
		WithdrawalCredentials: record.WithdrawalCredentials,
		Signature:             record.Signature,
		Amount:                amount,
		DataRoot:              record.DataRoot,
	}

	if err := checked.Validate(); err != nil {
		return errors.Wrap(ErrDepositRejected, err.Error())
	}

	if err := tx.Transfer(from, c.address, value); err != nil {
		return errors.Wrap(ErrDepositRejected, err.Error())
	}

	c.mu.Lock()
	event := &DepositEvent{
		Index:  uint64(len(c.deposits)),
		From:   from,
		Record: checked,
	}
	c.deposits = append(c.deposits, event)
	c.mu.Unlock()

	tx.OnRevert(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.deposits = c.deposits[:event.Index]
	})

	log.WithFields(logrus.Fields{
		"index":  event.Index,
		"pubkey": record.PubkeyHex(),
		"amount": amount,
	}).Debug("Deposit accepted")

	return nil
}

// DepositCount returns the number of accepted deposits.
func (c *DepositContract) DepositCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return uint64(len(c.deposits))
}

// Deposits returns the accepted deposits in order.
func (c *DepositContract) Deposits() []*DepositEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*DepositEvent, len(c.deposits))
	copy(out, c.deposits)

	return out
}

// HasDeposited reports whether a deposit for pubkey was accepted.
func (c *DepositContract) HasDeposited(pubkey []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.deposits {
		if bytes.Equal(d.Record.Pubkey, pubkey) {
			return true
		}
	}

	return false
}
