package halflife

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "halochain/core/errors"
	"halochain/core/types"
)

type mockLedgerState struct {
	accounts map[[20]byte]*types.Account
	receipts map[[20]byte]*PendingReceipt
	windows  map[[20]byte]*SettlementWindow
	credits  map[[20]byte]*big.Int
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{
		accounts: make(map[[20]byte]*types.Account),
		receipts: make(map[[20]byte]*PendingReceipt),
		windows:  make(map[[20]byte]*SettlementWindow),
		credits:  make(map[[20]byte]*big.Int),
	}
}

func (m *mockLedgerState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockLedgerState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockLedgerState) PendingReceipt(recipient [20]byte) (*PendingReceipt, bool, error) {
	r, ok := m.receipts[recipient]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (m *mockLedgerState) PutPendingReceipt(recipient [20]byte, r *PendingReceipt) error {
	m.receipts[recipient] = r.Clone()
	return nil
}

func (m *mockLedgerState) DeletePendingReceipt(recipient [20]byte) error {
	delete(m.receipts, recipient)
	return nil
}

func (m *mockLedgerState) SettlementWindow(recipient [20]byte) (*SettlementWindow, bool, error) {
	w, ok := m.windows[recipient]
	if !ok {
		return nil, false, nil
	}
	return w.Clone(), true, nil
}

func (m *mockLedgerState) PutSettlementWindow(recipient [20]byte, w *SettlementWindow) error {
	m.windows[recipient] = w.Clone()
	return nil
}

func (m *mockLedgerState) DeleteSettlementWindow(recipient [20]byte) error {
	delete(m.windows, recipient)
	return nil
}

func (m *mockLedgerState) IncentiveCredits(addr [20]byte) (*big.Int, error) {
	if v, ok := m.credits[addr]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockLedgerState) SetIncentiveCredits(addr [20]byte, amount *big.Int, _ int64) error {
	m.credits[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockLedgerState) balance(addr [20]byte) *big.Int {
	if acc, ok := m.accounts[addr]; ok {
		return acc.Balance
	}
	return big.NewInt(0)
}

type mockRiskMarker struct {
	marks map[[20]byte]int
}

func (m *mockRiskMarker) MarkReversal(addr [20]byte, _ int64) error {
	if m.marks == nil {
		m.marks = make(map[[20]byte]int)
	}
	m.marks[addr]++
	return nil
}

var (
	alice = [20]byte{0xaa}
	bob   = [20]byte{0xbb}
)

func newTestEngine(state *mockLedgerState, now int64) (*Engine, *mockRiskMarker, *int64) {
	clock := now
	marker := &mockRiskMarker{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetRiskMarker(marker)
	engine.SetNowFunc(func() int64 { return clock })
	return engine, marker, &clock
}

func TestRecordPendingWritesBothRecords(t *testing.T) {
	state := newMockLedgerState()
	engine, _, _ := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 4))

	receipt, ok, err := state.PendingReceipt(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice, receipt.Sender)
	require.Equal(t, 0, receipt.Amount.Cmp(big.NewInt(500)))
	require.Equal(t, int64(4_600), receipt.ExpiryTime)
	require.False(t, receipt.Reversed)
	require.False(t, receipt.Finalized)

	window, ok, err := state.SettlementWindow(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice, window.Originator)
	require.Equal(t, int64(4_600), window.CommitWindowEnd)
	require.Equal(t, int64(3_600), window.HalfLifeDuration)
	require.Equal(t, uint64(4), window.TransferCount)
}

func TestRecordPendingFinalizesExpiredSlot(t *testing.T) {
	state := newMockLedgerState()
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(160), 3_600, 1))
	*clock = 10_000 // past expiry

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(900), big.NewInt(0), 3_600, 2))

	// The expired slot paid its loyalty refund (160/8 split evenly) before
	// being overwritten.
	aliceCredits, _ := state.IncentiveCredits(alice)
	bobCredits, _ := state.IncentiveCredits(bob)
	require.Equal(t, 0, aliceCredits.Cmp(big.NewInt(10)))
	require.Equal(t, 0, bobCredits.Cmp(big.NewInt(10)))

	receipt, ok, _ := state.PendingReceipt(bob)
	require.True(t, ok)
	require.Equal(t, 0, receipt.Amount.Cmp(big.NewInt(900)))
}

func TestReverseRecipientBeforeExpiry(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, marker, _ := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 1))
	require.NoError(t, engine.ReverseRecipient(bob))

	require.Equal(t, 0, state.balance(alice).Cmp(big.NewInt(500)))
	require.Equal(t, 0, state.balance(bob).Cmp(big.NewInt(0)))

	// Both parties carry the reversal mark.
	require.Equal(t, 1, marker.marks[alice])
	require.Equal(t, 1, marker.marks[bob])

	// The slot stays, marked reversed, so a second attempt fails.
	err := engine.ReverseRecipient(bob)
	require.ErrorIs(t, err, coreerrors.ErrAlreadyReversed)

	// No loyalty refund on the reversal path.
	bobCredits, _ := state.IncentiveCredits(bob)
	require.Equal(t, 0, bobCredits.Sign())
}

func TestReverseRecipientAfterExpiryFails(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 1))
	*clock = 4_600
	err := engine.ReverseRecipient(bob)
	require.ErrorIs(t, err, coreerrors.ErrWindowExpired)
}

func TestFinalizeRecipient(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(160), 3_600, 1))

	err := engine.FinalizeRecipient(bob)
	require.ErrorIs(t, err, coreerrors.ErrWindowNotExpired)

	*clock = 4_600
	require.NoError(t, engine.FinalizeRecipient(bob))

	// Refund is fee/8 split evenly: 160/8 = 20, 10 each.
	aliceCredits, _ := state.IncentiveCredits(alice)
	bobCredits, _ := state.IncentiveCredits(bob)
	require.Equal(t, 0, aliceCredits.Cmp(big.NewInt(10)))
	require.Equal(t, 0, bobCredits.Cmp(big.NewInt(10)))

	// Finalization clears the slot.
	_, ok, _ := state.PendingReceipt(bob)
	require.False(t, ok)

	err = engine.FinalizeRecipient(bob)
	require.ErrorIs(t, err, coreerrors.ErrNoActiveWindow)
}

func TestSpendableBalanceLocksPendingAmount(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(800)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(0), 3_600, 1))

	spendable, err := engine.SpendableBalance(bob)
	require.NoError(t, err)
	require.Equal(t, 0, spendable.Cmp(big.NewInt(300)))

	// The lock lifts at expiry even before finalization runs.
	*clock = 4_600
	spendable, err = engine.SpendableBalance(bob)
	require.NoError(t, err)
	require.Equal(t, 0, spendable.Cmp(big.NewInt(800)))
}

func TestSpendableBalanceNeverNegative(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(100)}
	state.receipts[bob] = &PendingReceipt{Sender: alice, Amount: big.NewInt(500), FeeAssessed: big.NewInt(0), ExpiryTime: 9_000}
	engine, _, _ := newTestEngine(state, 1_000)

	spendable, err := engine.SpendableBalance(bob)
	require.NoError(t, err)
	require.Equal(t, 0, spendable.Sign())
}

func TestReverseSenderWithinWindow(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, marker, _ := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 1))

	// Only the recorded originator may pull funds back.
	mallory := [20]byte{0xcc}
	err := engine.ReverseSender(mallory, bob, big.NewInt(100))
	require.ErrorIs(t, err, coreerrors.ErrSenderMismatch)

	require.NoError(t, engine.ReverseSender(alice, bob, big.NewInt(200)))
	require.Equal(t, 0, state.balance(alice).Cmp(big.NewInt(200)))
	require.Equal(t, 0, state.balance(bob).Cmp(big.NewInt(300)))
	require.Equal(t, 1, marker.marks[alice])
	require.Equal(t, 1, marker.marks[bob])

	// The window is one-shot.
	err = engine.ReverseSender(alice, bob, big.NewInt(100))
	require.ErrorIs(t, err, coreerrors.ErrAlreadyReversed)
}

func TestReverseSenderRecipientBalanceLow(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(100)}
	engine, _, _ := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 1))
	err := engine.ReverseSender(alice, bob, big.NewInt(200))
	require.ErrorIs(t, err, coreerrors.ErrRecipientBalanceLow)
}

func TestReverseSenderAfterCommitWindow(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(20), 3_600, 1))
	*clock = 4_600
	err := engine.ReverseSender(alice, bob, big.NewInt(200))
	require.ErrorIs(t, err, coreerrors.ErrWindowExpired)
}

func TestCheckWindowExpiry(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(160), 3_600, 1))

	err := engine.CheckWindowExpiry(bob)
	require.ErrorIs(t, err, coreerrors.ErrWindowNotExpired)

	*clock = 4_600
	require.NoError(t, engine.CheckWindowExpiry(bob))

	// Live windows pay the loyalty refund before deletion.
	aliceCredits, _ := state.IncentiveCredits(alice)
	require.Equal(t, 0, aliceCredits.Cmp(big.NewInt(10)))

	_, ok, _ := state.SettlementWindow(bob)
	require.False(t, ok)

	err = engine.CheckWindowExpiry(bob)
	require.ErrorIs(t, err, coreerrors.ErrNoActiveWindow)
}

func TestCheckWindowExpiryReversedSweepsWithoutRefund(t *testing.T) {
	state := newMockLedgerState()
	state.accounts[bob] = &types.Account{Balance: big.NewInt(500)}
	engine, _, clock := newTestEngine(state, 1_000)

	require.NoError(t, engine.RecordPending(alice, bob, big.NewInt(500), big.NewInt(160), 3_600, 1))
	require.NoError(t, engine.ReverseSender(alice, bob, big.NewInt(500)))

	*clock = 4_600
	require.NoError(t, engine.CheckWindowExpiry(bob))

	aliceCredits, _ := state.IncentiveCredits(alice)
	require.Equal(t, 0, aliceCredits.Sign())
	_, ok, _ := state.SettlementWindow(bob)
	require.False(t, ok)
}
