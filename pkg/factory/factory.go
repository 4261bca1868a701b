package factory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	ErrVaultExists  = errors.New("staker already has a vault")
	ErrVaultUnknown = errors.New("staker has no vault")
)

// Defaults are copied into every vault at creation. Changing them later never
// affects existing vaults.
type Defaults struct {
	Operator     common.Address
	FeeRecipient common.Address
	FeeBps       uint64
}

func (d Defaults) validate() error {
	if d.Operator == (common.Address{}) {
		return errors.Wrap(vault.ErrZeroAddress, "default operator")
	}

	if d.FeeRecipient == (common.Address{}) {
		return errors.Wrap(vault.ErrZeroAddress, "default fee recipient")
	}

	if d.FeeBps > vault.MaxFeeBps {
		return errors.Wrapf(vault.ErrInvalidFeeRate, "%d", d.FeeBps)
	}

	return nil
}

// Meta is the persisted state of a factory besides its vaults.
type Meta struct {
	Address  common.Address
	Admin    common.Address
	Nonce    uint64
	Defaults Defaults
}

// Factory creates one vault per staker and keeps the staker to vault mapping.
type Factory struct {
	chain          *chain.State
	depositSink    vault.DepositSink
	withdrawalSink vault.WithdrawalRequestSink

	mu       sync.RWMutex
	address  common.Address
	admin    common.Address
	nonce    uint64
	defaults Defaults
	vaults   map[common.Address]*vault.Vault
}

// New returns a factory administered by admin. The factory address is the
// address admin's first contract creation would get.
func New(st *chain.State, admin common.Address, depositSink vault.DepositSink, withdrawalSink vault.WithdrawalRequestSink, defaults Defaults) (*Factory, error) {
	if admin == (common.Address{}) {
		return nil, errors.Wrap(vault.ErrZeroAddress, "admin")
	}

	if err := defaults.validate(); err != nil {
		return nil, err
	}

	return &Factory{
		chain:          st,
		depositSink:    depositSink,
		withdrawalSink: withdrawalSink,
		address:        crypto.CreateAddress(admin, 0),
		admin:          admin,
		nonce:          1,
		defaults:       defaults,
		vaults:         make(map[common.Address]*vault.Vault),
	}, nil
}

func (f *Factory) Address() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.address
}

// Defaults returns the defaults applied to the next vault.
func (f *Factory) Defaults() Defaults {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaults
}

// SetDefaults replaces the defaults for vaults created from now on.
func (f *Factory) SetDefaults(caller common.Address, defaults Defaults) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.admin {
		return errors.Wrapf(vault.ErrUnauthorized, "%s is not the admin", caller.Hex())
	}

	if err := defaults.validate(); err != nil {
		return err
	}

	f.defaults = defaults

	log.WithFields(logrus.Fields{
		"operator":      defaults.Operator.Hex(),
		"fee_recipient": defaults.FeeRecipient.Hex(),
		"fee_bps":       defaults.FeeBps,
	}).Info("Factory defaults updated")

	return nil
}

// CreateVault creates the vault of staker with a copy of the current defaults.
func (f *Factory) CreateVault(staker common.Address) (*vault.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if staker == (common.Address{}) {
		return nil, errors.Wrap(vault.ErrZeroAddress, "staker")
	}

	if _, ok := f.vaults[staker]; ok {
		return nil, errors.Wrapf(ErrVaultExists, "%s", staker.Hex())
	}

	v, err := vault.New(f.chain, &vault.Config{
		Address:        crypto.CreateAddress(f.address, f.nonce),
		Admin:          f.admin,
		Staker:         staker,
		Operator:       f.defaults.Operator,
		FeeRecipient:   f.defaults.FeeRecipient,
		FeeBps:         f.defaults.FeeBps,
		DepositSink:    f.depositSink,
		WithdrawalSink: f.withdrawalSink,
	})
	if err != nil {
		return nil, err
	}

	f.nonce++
	f.vaults[staker] = v

	log.WithFields(logrus.Fields{
		"staker": staker.Hex(),
		"vault":  v.Address().Hex(),
	}).Info("Vault created")

	return v, nil
}

// Vault returns the vault of staker.
func (f *Factory) Vault(staker common.Address) (*vault.Vault, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.vaults[staker]
	if !ok {
		return nil, errors.Wrapf(ErrVaultUnknown, "%s", staker.Hex())
	}

	return v, nil
}

// Vaults returns every vault ordered by staker address.
func (f *Factory) Vaults() []*vault.Vault {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*vault.Vault, 0, len(f.vaults))
	for _, v := range f.vaults {
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Staker(), out[j].Staker()

		return bytes.Compare(a[:], b[:]) < 0
	})

	return out
}

// Meta returns the factory state needed to rebuild it with RestoreMeta.
func (f *Factory) Meta() *Meta {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &Meta{
		Address:  f.address,
		Admin:    f.admin,
		Nonce:    f.nonce,
		Defaults: f.defaults,
	}
}

// RestoreMeta overwrites the factory's address, admin, nonce and defaults.
func (f *Factory) RestoreMeta(meta *Meta) error {
	if err := meta.Defaults.validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.address = meta.Address
	f.admin = meta.Admin
	f.nonce = meta.Nonce
	f.defaults = meta.Defaults

	return nil
}

// Restore rebuilds a vault from its snapshot and registers it.
func (f *Factory) Restore(snap *vault.Snapshot) (*vault.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.vaults[snap.Staker]; ok {
		return nil, errors.Wrapf(ErrVaultExists, "%s", snap.Staker.Hex())
	}

	v, err := vault.FromSnapshot(f.chain, snap, f.depositSink, f.withdrawalSink)
	if err != nil {
		return nil, err
	}

	f.vaults[snap.Staker] = v

	return v, nil
}
