package state

import (
	"math/big"

	"halochain/core/types"
)

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the wallet account, returning a zero-balance account for
// addresses the ledger has never written.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(addrKey(accountPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	account := &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}
	return types.EnsureAccount(account), nil
}

// PutAccount persists the wallet account.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	account = types.EnsureAccount(account)
	return m.KVPut(addrKey(accountPrefix, addr), &storedAccount{
		Nonce:   account.Nonce,
		Balance: account.Balance,
	})
}

// TotalSupply returns the current token supply.
func (m *Manager) TotalSupply() (*big.Int, error) {
	supply := new(big.Int)
	ok, err := m.KVGet([]byte(supplyKey), supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SetTotalSupply persists the token supply.
func (m *Manager) SetTotalSupply(supply *big.Int) error {
	if supply == nil {
		supply = big.NewInt(0)
	}
	return m.KVPut([]byte(supplyKey), supply)
}

// Allowance returns the amount spender may move on behalf of owner.
func (m *Manager) Allowance(owner, spender [20]byte) (*big.Int, error) {
	allowance := new(big.Int)
	ok, err := m.KVGet(pairKey(allowancePrefix, owner, spender), allowance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return allowance, nil
}

// SetAllowance persists the owner→spender allowance.
func (m *Manager) SetAllowance(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.KVPut(pairKey(allowancePrefix, owner, spender), amount)
}

// HasRole reports whether addr holds the named role.
func (m *Manager) HasRole(role string, addr [20]byte) (bool, error) {
	var held bool
	ok, err := m.KVGet(addrKey(rolePrefix+role+"/", addr), &held)
	if err != nil {
		return false, err
	}
	return ok && held, nil
}

// SetRole grants or revokes the named role for addr.
func (m *Manager) SetRole(role string, addr [20]byte, held bool) error {
	key := addrKey(rolePrefix+role+"/", addr)
	if !held {
		return m.KVDelete(key)
	}
	return m.KVPut(key, held)
}

// IsPaused reports whether the named module is paused.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.KVGet(stringKey(pausePrefix, module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// SetPaused toggles the pause switch for the named module.
func (m *Manager) SetPaused(module string, paused bool) error {
	return m.KVPut(stringKey(pausePrefix, module), paused)
}
