package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/chain"
)

// AddDepositor allows addr to fund the vault.
func (v *Vault) AddDepositor(caller, addr common.Address) error {
	return v.execute("add_depositor", func(_ *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		if addr == (common.Address{}) {
			return errors.Wrap(ErrZeroAddress, "depositor")
		}

		if addr == v.Staker() {
			return nil
		}

		s.depositors[addr] = true

		v.logger().WithField("depositor", addr.Hex()).Info("Depositor added")

		return nil
	})
}

// RemoveDepositor revokes addr's permission to fund the vault. The staker
// cannot be removed.
func (v *Vault) RemoveDepositor(caller, addr common.Address) error {
	return v.execute("remove_depositor", func(_ *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		if addr == (common.Address{}) {
			return errors.Wrap(ErrZeroAddress, "depositor")
		}

		if addr == v.Staker() {
			return errors.Wrapf(ErrInvalidRoleRemoval, "%s", addr.Hex())
		}

		delete(s.depositors, addr)

		v.logger().WithField("depositor", addr.Hex()).Info("Depositor removed")

		return nil
	})
}

// IsDepositor reports whether addr may fund the vault.
func (v *Vault) IsDepositor(addr common.Address) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.isDepositor(v.state, addr)
}

// Depositors returns the explicitly added depositors. The staker is implied.
func (v *Vault) Depositors() []common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()

	return sortedAddresses(v.state.depositors)
}

func (v *Vault) isDepositor(s *state, addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}

	return addr == v.Staker() || s.depositors[addr]
}
