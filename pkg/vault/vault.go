package vault

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/withdrawalfee"
)

// DepositSink receives validator deposits, e.g. the beacon deposit contract.
type DepositSink interface {
	Deposit(tx *chain.Tx, from common.Address, value *uint256.Int, record *deposit.Record) error
}

// WithdrawalRequestSink receives execution layer triggered exits, e.g. the
// EIP-7002 predeploy.
type WithdrawalRequestSink interface {
	withdrawalfee.QueueReader

	Fee() (*uint256.Int, error)
	AddRequest(tx *chain.Tx, source common.Address, pubkey []byte, amount uint64, value *uint256.Int) error
}

// Config describes a vault at construction time.
type Config struct {
	Address      common.Address
	Admin        common.Address
	Staker       common.Address
	Operator     common.Address
	FeeRecipient common.Address
	FeeBps       uint64

	DepositSink    DepositSink
	WithdrawalSink WithdrawalRequestSink
}

// Vault holds one staker's capital on the host chain. It turns approved quota
// into validator deposits and settles everything the vault receives into
// fees, rewards and returned principal.
type Vault struct {
	address common.Address
	chain   *chain.State
	roles   *access.Roles
	feeBps  uint64

	depositSink    DepositSink
	withdrawalSink WithdrawalRequestSink
	estimator      *withdrawalfee.Estimator

	mu    sync.Mutex
	state *state
}

// state is everything a vault transaction may change. Transactions work on a
// clone which replaces the vault's state only once the transaction succeeded.
type state struct {
	quota      *uint256.Int
	approved   *uint256.Int
	records    []*deposit.Record
	consumed   int
	depositors map[common.Address]bool
	exits      map[string]bool
	settlement *Settlement
}

func newState() *state {
	return &state{
		quota:      new(uint256.Int),
		approved:   new(uint256.Int),
		depositors: make(map[common.Address]bool),
		exits:      make(map[string]bool),
		settlement: newSettlement(),
	}
}

func (s *state) clone() *state {
	out := &state{
		quota:      new(uint256.Int).Set(s.quota),
		approved:   new(uint256.Int).Set(s.approved),
		records:    append([]*deposit.Record(nil), s.records...),
		consumed:   s.consumed,
		depositors: make(map[common.Address]bool, len(s.depositors)),
		exits:      make(map[string]bool, len(s.exits)),
		settlement: s.settlement.clone(),
	}

	for addr := range s.depositors {
		out.depositors[addr] = true
	}

	for pubkey := range s.exits {
		out.exits[pubkey] = true
	}

	return out
}

// New creates an empty vault on st.
func New(st *chain.State, cfg *Config) (*Vault, error) {
	return newVault(st, cfg, newState())
}

func newVault(st *chain.State, cfg *Config, s *state) (*Vault, error) {
	if cfg.Address == (common.Address{}) {
		return nil, errors.Wrap(ErrZeroAddress, "vault address")
	}

	if cfg.FeeBps > MaxFeeBps {
		return nil, errors.Wrapf(ErrInvalidFeeRate, "%d", cfg.FeeBps)
	}

	roles, err := access.NewRoles(cfg.Admin, cfg.Staker, cfg.Operator, cfg.FeeRecipient)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		address:        cfg.Address,
		chain:          st,
		roles:          roles,
		feeBps:         cfg.FeeBps,
		depositSink:    cfg.DepositSink,
		withdrawalSink: cfg.WithdrawalSink,
		estimator:      withdrawalfee.NewEstimator(nil),
		state:          s,
	}

	if cfg.WithdrawalSink != nil {
		v.estimator = withdrawalfee.NewEstimator(cfg.WithdrawalSink)
	}

	return v, nil
}

func (v *Vault) Address() common.Address {
	return v.address
}

func (v *Vault) Staker() common.Address {
	return v.roles.Get(access.Staker)
}

func (v *Vault) Operator() common.Address {
	return v.roles.Get(access.Operator)
}

func (v *Vault) FeeRecipient() common.Address {
	return v.roles.Get(access.FeeRecipient)
}

func (v *Vault) Admin() common.Address {
	return v.roles.Get(access.Admin)
}

// FeeBps returns the operator's share of rewards in basis points.
func (v *Vault) FeeBps() uint64 {
	return v.feeBps
}

// Balance returns the vault's balance on the host chain.
func (v *Vault) Balance() *uint256.Int {
	return v.chain.Balance(v.address)
}

// SetOperator reassigns the operator. Only the admin may call it.
func (v *Vault) SetOperator(caller, operator common.Address) error {
	if err := v.roles.Set(caller, access.Operator, operator); err != nil {
		rejectedOperations.WithLabelValues("set_operator").Inc()

		return err
	}

	v.logger().WithField("operator", operator.Hex()).Info("Operator changed")

	return nil
}

// SetFeeRecipient reassigns the fee recipient. Only the admin may call it.
func (v *Vault) SetFeeRecipient(caller, recipient common.Address) error {
	if err := v.roles.Set(caller, access.FeeRecipient, recipient); err != nil {
		rejectedOperations.WithLabelValues("set_fee_recipient").Inc()

		return err
	}

	v.logger().WithField("fee_recipient", recipient.Hex()).Info("Fee recipient changed")

	return nil
}

// execute runs fn as one host chain transaction against a clone of the vault
// state, after settling the vault balance observed at the start of the call.
// The clone is committed only when fn succeeds; otherwise the chain reverts
// every transfer and sink call made through tx.
func (v *Vault) execute(operation string, fn func(tx *chain.Tx, s *state) error) error {
	err := v.chain.Atomic(func(tx *chain.Tx) error {
		v.mu.Lock()
		defer v.mu.Unlock()

		s := v.state.clone()
		s.settlement.Observe(tx.Balance(v.address), v.feeBps)

		if err := fn(tx, s); err != nil {
			return err
		}

		v.state = s

		return nil
	})
	if err != nil {
		rejectedOperations.WithLabelValues(operation).Inc()

		v.logger().WithError(err).WithField("operation", operation).Debug("Vault call rejected")
	}

	return err
}

// view runs fn against a settled copy of the vault state. Nothing fn does is kept.
func (v *Vault) view(fn func(s *state)) {
	_ = v.chain.View(func(tx *chain.Tx) error {
		v.mu.Lock()
		defer v.mu.Unlock()

		s := v.state.clone()
		s.settlement.Observe(tx.Balance(v.address), v.feeBps)

		fn(s)

		return nil
	})
}

func (v *Vault) requireRole(role access.Role, caller common.Address) error {
	if !v.roles.HasRole(role, caller) {
		return errors.Wrapf(ErrUnauthorized, "%s is not the %s", caller.Hex(), role)
	}

	return nil
}

func (v *Vault) logger() *logrus.Entry {
	return log.WithField("vault", v.address.Hex())
}
