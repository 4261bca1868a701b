package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransferRejected    = errors.New("transfer rejected by recipient")
)

// State is a transaction-serialized value ledger. Every mutation happens inside
// a transaction opened with Atomic; transactions never interleave.
type State struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
	rejects  map[common.Address]bool
}

// Tx is an open transaction on State. It must not be retained after the
// transaction body returns.
type Tx struct {
	s       *State
	journal journal
}

func New() *State {
	return &State{
		balances: make(map[common.Address]*uint256.Int),
		rejects:  make(map[common.Address]bool),
	}
}

// Atomic runs fn as a single transaction. If fn returns an error every change
// made through tx is rolled back and the error is returned unchanged.
func (s *State) Atomic(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}

	if err := fn(tx); err != nil {
		tx.journal.revert(s)

		return err
	}

	return nil
}

// View runs fn against the current state and discards whatever it changed.
func (s *State) View(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s}
	defer tx.journal.revert(s)

	return fn(tx)
}

// Balance returns a copy of the balance held by addr.
func (s *State) Balance(addr common.Address) *uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.balance(addr)
}

// Credit adds value to addr outside of any contract call, e.g. consensus
// layer withdrawals or execution layer rewards sent to the fee recipient.
func (s *State) Credit(addr common.Address, amount *uint256.Int) {
	_ = s.Atomic(func(tx *Tx) error {
		tx.Mint(addr, amount)

		return nil
	})
}

// SetBalance overwrites the balance of addr.
func (s *State) SetBalance(addr common.Address, amount *uint256.Int) {
	_ = s.Atomic(func(tx *Tx) error {
		tx.SetBalance(addr, amount)

		return nil
	})
}

// RejectTransfers makes addr refuse incoming transfers, which models a
// recipient contract that reverts on receive.
func (s *State) RejectTransfers(addr common.Address, reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reject {
		s.rejects[addr] = true
	} else {
		delete(s.rejects, addr)
	}
}

// Balances returns a copy of all non-zero balances.
func (s *State) Balances() map[common.Address]*uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[common.Address]*uint256.Int, len(s.balances))

	for addr, bal := range s.balances {
		if bal.IsZero() {
			continue
		}

		out[addr] = new(uint256.Int).Set(bal)
	}

	return out
}

// Restore replaces every balance with the given set.
func (s *State) Restore(balances map[common.Address]*uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances = make(map[common.Address]*uint256.Int, len(balances))

	for addr, bal := range balances {
		s.balances[addr] = new(uint256.Int).Set(bal)
	}
}

func (s *State) balance(addr common.Address) *uint256.Int {
	if bal, ok := s.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}

	return new(uint256.Int)
}

// Balance returns a copy of the balance held by addr.
func (tx *Tx) Balance(addr common.Address) *uint256.Int {
	return tx.s.balance(addr)
}

// SetBalance overwrites the balance of addr.
func (tx *Tx) SetBalance(addr common.Address, amount *uint256.Int) {
	tx.setBalance(addr, new(uint256.Int).Set(amount))
}

// Mint creates value out of thin air and credits it to addr.
func (tx *Tx) Mint(addr common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}

	bal := tx.s.balance(addr)
	tx.setBalance(addr, bal.Add(bal, amount))
}

// Transfer moves amount from one account to another.
func (tx *Tx) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	if tx.s.rejects[to] {
		return errors.Wrapf(ErrTransferRejected, "transfer of %s wei to %s", amount.Dec(), to.Hex())
	}

	fromBal := tx.s.balance(from)
	if fromBal.Lt(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "%s holds %s wei, needs %s", from.Hex(), fromBal.Dec(), amount.Dec())
	}

	tx.setBalance(from, fromBal.Sub(fromBal, amount))

	toBal := tx.s.balance(to)
	tx.setBalance(to, toBal.Add(toBal, amount))

	log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": amount.Dec(),
	}).Debug("Value transferred")

	return nil
}

// OnRevert registers fn to be called if the transaction is rolled back.
func (tx *Tx) OnRevert(fn func()) {
	tx.journal = append(tx.journal, customChange{revert: fn})
}

func (tx *Tx) setBalance(addr common.Address, amount *uint256.Int) {
	var prev *uint256.Int
	if bal, ok := tx.s.balances[addr]; ok {
		prev = bal
	}

	tx.journal = append(tx.journal, balanceChange{account: addr, prev: prev})
	tx.s.balances[addr] = amount
}
