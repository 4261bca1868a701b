package access

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Role names a party that may call privileged vault entry points.
type Role int

const (
	Staker Role = iota
	Operator
	FeeRecipient
	Admin
)

var (
	ErrUnauthorized = errors.New("caller is not authorized")
	ErrZeroAddress  = errors.New("zero address")
)

func (r Role) String() string {
	switch r {
	case Staker:
		return "staker"
	case Operator:
		return "operator"
	case FeeRecipient:
		return "fee_recipient"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// Authorizer answers whether caller currently holds role.
type Authorizer interface {
	HasRole(role Role, caller common.Address) bool
}

// Roles holds the role assignment of a single vault. The staker is fixed at
// construction; operator and fee recipient may be reassigned by the admin.
type Roles struct {
	mu           sync.RWMutex
	admin        common.Address
	staker       common.Address
	operator     common.Address
	feeRecipient common.Address
}

var _ Authorizer = (*Roles)(nil)

func NewRoles(admin, staker, operator, feeRecipient common.Address) (*Roles, error) {
	for role, addr := range map[Role]common.Address{
		Staker:       staker,
		Operator:     operator,
		FeeRecipient: feeRecipient,
	} {
		if addr == (common.Address{}) {
			return nil, errors.Wrapf(ErrZeroAddress, "%s", role)
		}
	}

	return &Roles{
		admin:        admin,
		staker:       staker,
		operator:     operator,
		feeRecipient: feeRecipient,
	}, nil
}

// HasRole reports whether caller holds role. The zero address holds nothing.
func (r *Roles) HasRole(role Role, caller common.Address) bool {
	if caller == (common.Address{}) {
		return false
	}

	return r.Get(role) == caller
}

// Get returns the address currently assigned to role.
func (r *Roles) Get(role Role) common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch role {
	case Staker:
		return r.staker
	case Operator:
		return r.operator
	case FeeRecipient:
		return r.feeRecipient
	case Admin:
		return r.admin
	default:
		return common.Address{}
	}
}

// Set reassigns the operator or fee recipient. Only the admin may call it and
// the staker role cannot be reassigned.
func (r *Roles) Set(caller common.Address, role Role, addr common.Address) error {
	if !r.HasRole(Admin, caller) {
		return errors.Wrapf(ErrUnauthorized, "%s is not %s", caller.Hex(), Admin)
	}

	if addr == (common.Address{}) {
		return errors.Wrapf(ErrZeroAddress, "%s", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch role {
	case Operator:
		r.operator = addr
	case FeeRecipient:
		r.feeRecipient = addr
	default:
		return errors.Errorf("role %s cannot be reassigned", role)
	}

	return nil
}
