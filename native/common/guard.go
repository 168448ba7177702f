package common

import (
	"sync/atomic"

	coreerrors "halochain/core/errors"
)

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects calls into a paused module.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return coreerrors.ErrModulePaused
	}
	return nil
}

// ReentrancyGuard rejects calls into the ledger while a transition is in
// flight. The execution model serializes transitions externally, so any
// contention is a collaborator calling back into an open transition; the
// guard turns that into a state error instead of corrupting state.
type ReentrancyGuard struct {
	entered atomic.Bool
}

// Enter marks the transition open, failing if one already is.
func (g *ReentrancyGuard) Enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return coreerrors.ErrReentrantCall
	}
	return nil
}

// Exit closes the transition.
func (g *ReentrancyGuard) Exit() {
	g.entered.Store(false)
}
