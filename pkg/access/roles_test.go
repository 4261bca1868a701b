package access

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0xad")
	staker   = common.HexToAddress("0x51")
	operator = common.HexToAddress("0x0e")
	feeRecv  = common.HexToAddress("0xfe")
)

func TestNewRoles(t *testing.T) {
	_, err := NewRoles(admin, common.Address{}, operator, feeRecv)
	require.ErrorIs(t, err, ErrZeroAddress)

	r, err := NewRoles(admin, staker, operator, feeRecv)
	require.NoError(t, err)

	assert.True(t, r.HasRole(Staker, staker))
	assert.True(t, r.HasRole(Operator, operator))
	assert.True(t, r.HasRole(FeeRecipient, feeRecv))
	assert.True(t, r.HasRole(Admin, admin))
	assert.False(t, r.HasRole(Operator, staker))
}

func TestRolesMayCoincide(t *testing.T) {
	r, err := NewRoles(common.Address{}, staker, staker, staker)
	require.NoError(t, err)

	assert.True(t, r.HasRole(Staker, staker))
	assert.True(t, r.HasRole(Operator, staker))
	assert.True(t, r.HasRole(FeeRecipient, staker))
	// no admin configured
	assert.False(t, r.HasRole(Admin, common.Address{}))
}

func TestSet(t *testing.T) {
	newOperator := common.HexToAddress("0x0f")

	tests := []struct {
		name    string
		caller  common.Address
		role    Role
		addr    common.Address
		wantErr error
	}{
		{name: "admin reassigns operator", caller: admin, role: Operator, addr: newOperator},
		{name: "admin reassigns fee recipient", caller: admin, role: FeeRecipient, addr: newOperator},
		{name: "non admin", caller: staker, role: Operator, addr: newOperator, wantErr: ErrUnauthorized},
		{name: "zero address", caller: admin, role: Operator, addr: common.Address{}, wantErr: ErrZeroAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRoles(admin, staker, operator, feeRecv)
			require.NoError(t, err)

			err = r.Set(tt.caller, tt.role, tt.addr)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, operator, r.Get(Operator))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.addr, r.Get(tt.role))
		})
	}

	r, err := NewRoles(admin, staker, operator, feeRecv)
	require.NoError(t, err)
	require.Error(t, r.Set(admin, Staker, newOperator))
	assert.Equal(t, staker, r.Get(Staker))
}
