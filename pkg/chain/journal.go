package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type journalEntry interface {
	undo(*State)
}

type journal []journalEntry

type (
	balanceChange struct {
		account common.Address
		prev    *uint256.Int
	}

	// Changes recorded by collaborators holding their own state.
	customChange struct {
		revert func()
	}
)

func (ch balanceChange) undo(s *State) {
	if ch.prev == nil {
		delete(s.balances, ch.account)

		return
	}

	s.balances[ch.account] = ch.prev
}

func (ch customChange) undo(_ *State) {
	ch.revert()
}

// revert replays the journal in reverse order.
func (j journal) revert(s *State) {
	for i := len(j) - 1; i >= 0; i-- {
		j[i].undo(s)
	}
}
