package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "halochain/core/errors"
	"halochain/core/events"
	"halochain/core/types"
	"halochain/native/compliance"
	"halochain/native/fees"
	"halochain/storage"
)

var (
	admin = [20]byte{0x0a}
	alice = [20]byte{0x01}
	bob   = [20]byte{0x02}
	carol = [20]byte{0x03}
)

const day = int64(24 * 60 * 60)

// t0 is an arbitrary epoch offset so age-based risk terms behave
// deterministically.
const t0 = int64(1_000_000_000)

type testLedger struct {
	*Ledger
	clock    int64
	recorder *events.Recorder
	treasury [20]byte
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	ledger := NewLedger(storage.NewMemDB(), nil, nil)
	tl := &testLedger{Ledger: ledger, clock: t0, recorder: &events.Recorder{}}
	ledger.SetNowFunc(func() int64 { return tl.clock })
	ledger.SetEmitter(tl.recorder)
	require.NoError(t, ledger.Bootstrap(admin))
	params, err := ledger.State().Params()
	require.NoError(t, err)
	tl.treasury = params.Treasury
	return tl
}

func (tl *testLedger) advance(seconds int64) { tl.clock += seconds }

func (tl *testLedger) mustBalance(t *testing.T, addr [20]byte) *big.Int {
	t.Helper()
	balance, err := tl.BalanceOf(addr)
	require.NoError(t, err)
	return balance
}

// seed mints to addr and ages the wallet past the new-wallet risk window so
// transfers start from baseline risk.
func (tl *testLedger) seed(t *testing.T, addr [20]byte, amount *big.Int) {
	t.Helper()
	require.NoError(t, tl.Mint(admin, addr, amount))
}

func halo(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), fees.OneToken)
}

func (tl *testLedger) conservationCheck(t *testing.T, wallets ...[20]byte) {
	t.Helper()
	sum := big.NewInt(0)
	seen := map[[20]byte]bool{tl.treasury: true}
	sum.Add(sum, tl.mustBalance(t, tl.treasury))
	for _, w := range wallets {
		if seen[w] {
			continue
		}
		seen[w] = true
		sum.Add(sum, tl.mustBalance(t, w))
	}
	supply, err := tl.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, 0, sum.Cmp(supply), "token conservation violated: balances %s vs supply %s", sum, supply)
}

func TestBootstrapGrantsRoles(t *testing.T) {
	tl := newTestLedger(t)
	for _, role := range []string{RoleAdmin, RoleMinter, RoleBurner, RolePauser} {
		held, err := tl.State().HasRole(role, admin)
		require.NoError(t, err)
		require.True(t, held, "expected admin to hold %s", role)
	}
	// Re-running is a no-op, not an error.
	require.NoError(t, tl.Bootstrap(admin))
}

func TestMintRequiresRole(t *testing.T) {
	tl := newTestLedger(t)
	err := tl.Mint(alice, alice, halo(1))
	require.ErrorIs(t, err, coreerrors.ErrUnauthorizedRole)

	require.NoError(t, tl.Mint(admin, alice, halo(100)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(100)))
	supply, err := tl.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, 0, supply.Cmp(halo(100)))
}

func TestTransferHappyPath(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day) // age past the new-wallet window

	amount := halo(10)
	estimate, err := tl.EstimateTransferFeeDetails(alice, bob, amount)
	require.NoError(t, err)
	fee := estimate.Quote.TotalFee
	require.Positive(t, fee.Sign())
	require.Equal(t, 0, fee.Cmp(estimate.Quote.BaseFee), "baseline risk keeps the tiered fee")

	require.NoError(t, tl.Transfer(alice, bob, amount))

	// Sender pays amount plus fee, recipient holds the gross amount, the
	// treasury holds the fee.
	wantSender := new(big.Int).Sub(halo(100), new(big.Int).Add(amount, fee))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(wantSender))
	require.Equal(t, 0, tl.mustBalance(t, bob).Cmp(amount))
	require.Equal(t, 0, tl.mustBalance(t, tl.treasury).Cmp(fee))
	tl.conservationCheck(t, alice, bob)

	// 25% of the fee back to each party as credits.
	share := new(big.Int).Div(new(big.Int).Mul(fee, big.NewInt(fees.CreditShareBps)), big.NewInt(fees.BasisPoints))
	aliceCredits, err := tl.IncentiveCreditsOf(alice)
	require.NoError(t, err)
	require.Equal(t, 0, aliceCredits.Cmp(share))

	// The recipient's full balance is locked by the pending receipt.
	spendable, err := tl.SpendableBalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, 0, spendable.Sign())

	receipt, ok, err := tl.PendingReceiptOf(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice, receipt.Sender)
	require.Equal(t, 0, receipt.Amount.Cmp(amount))
	require.Equal(t, 0, receipt.FeeAssessed.Cmp(fee))

	// First pair transfer with no history: 10% repeat reduction, then the
	// empty-average outlier doubling. (3600 - 360) * 2 = 6480.
	require.Equal(t, tl.clock+6_480, receipt.ExpiryTime)

	window, ok, err := tl.SettlementWindowOf(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice, window.Originator)
	require.Equal(t, receipt.ExpiryTime, window.CommitWindowEnd)

	// Delay stays inside the configured bounds.
	params, err := tl.State().Params()
	require.NoError(t, err)
	require.GreaterOrEqual(t, window.HalfLifeDuration, params.HalfLifeMin)
	require.LessOrEqual(t, window.HalfLifeDuration, params.HalfLifeMax)

	// Nonce advanced.
	account, err := tl.State().GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.Nonce)
}

func TestTransferRepeatPairShortensDelay(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(1_000))
	tl.advance(8 * day)

	require.NoError(t, tl.Transfer(alice, bob, halo(10)))
	first, _, err := tl.SettlementWindowOf(bob)
	require.NoError(t, err)

	// Second identical transfer: pair count 2 and an established average,
	// so no outlier doubling. 3600 - 720 = 2880 < 6480.
	require.NoError(t, tl.Transfer(alice, bob, halo(10)))
	second, _, err := tl.SettlementWindowOf(bob)
	require.NoError(t, err)
	require.Less(t, second.HalfLifeDuration, first.HalfLifeDuration)
	require.Equal(t, int64(2_880), second.HalfLifeDuration)
}

func TestTransferValidation(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	require.ErrorIs(t, tl.Transfer(alice, alice, halo(1)), coreerrors.ErrSelfTransfer)
	require.ErrorIs(t, tl.Transfer(alice, [20]byte{}, halo(1)), coreerrors.ErrZeroAddress)
	require.ErrorIs(t, tl.Transfer(alice, bob, nil), coreerrors.ErrZeroAmount)
	require.ErrorIs(t, tl.Transfer(alice, bob, big.NewInt(-5)), coreerrors.ErrZeroAmount)
	require.ErrorIs(t, tl.Transfer(alice, bob, halo(100)), coreerrors.ErrInsufficientSpendable)
}

func TestFailedTransferLeavesNoPartialState(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	err := tl.Transfer(alice, bob, halo(10)) // cannot cover amount plus fee
	require.ErrorIs(t, err, coreerrors.ErrInsufficientSpendable)

	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(10)))
	require.Equal(t, 0, tl.mustBalance(t, bob).Sign())
	_, ok, err := tl.PendingReceiptOf(bob)
	require.NoError(t, err)
	require.False(t, ok)
	account, err := tl.State().GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(0), account.Nonce)
}

func TestTransferPaused(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	require.ErrorIs(t, tl.SetPaused(alice, ModuleTransfer, true), coreerrors.ErrUnauthorizedRole)
	require.NoError(t, tl.SetPaused(admin, ModuleTransfer, true))
	require.ErrorIs(t, tl.Transfer(alice, bob, halo(1)), coreerrors.ErrModulePaused)

	require.NoError(t, tl.SetPaused(admin, ModuleTransfer, false))
	require.NoError(t, tl.Transfer(alice, bob, halo(1)))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	require.ErrorIs(t, tl.TransferFrom(carol, alice, bob, halo(10)), coreerrors.ErrInsufficientAllowance)

	require.NoError(t, tl.Approve(alice, carol, halo(15)))
	require.NoError(t, tl.TransferFrom(carol, alice, bob, halo(10)))

	allowance, err := tl.State().Allowance(alice, carol)
	require.NoError(t, err)
	require.Equal(t, 0, allowance.Cmp(halo(5)))
	require.Equal(t, 0, tl.mustBalance(t, bob).Cmp(halo(10)))
}

func TestPrefundedFeesDrainFirst(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	prefund := halo(1)
	require.NoError(t, tl.PrefundFees(alice, prefund))
	require.Equal(t, 0, tl.mustBalance(t, tl.treasury).Cmp(prefund))
	got, err := tl.PrefundedFeesOf(alice)
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(prefund))

	amount := halo(10)
	estimate, err := tl.EstimateTransferFeeDetails(alice, bob, amount)
	require.NoError(t, err)
	require.Equal(t, 0, estimate.FromPrefund.Cmp(estimate.Quote.TotalFee), "prefund covers the whole fee")
	require.Equal(t, 0, estimate.FromBalance.Sign())

	balanceBefore := tl.mustBalance(t, alice)
	require.NoError(t, tl.Transfer(alice, bob, amount))

	// Only the gross amount left the wallet; the fee came out of prefund.
	want := new(big.Int).Sub(balanceBefore, amount)
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(want))
	remaining, err := tl.PrefundedFeesOf(alice)
	require.NoError(t, err)
	require.Equal(t, 0, remaining.Cmp(new(big.Int).Sub(prefund, estimate.Quote.TotalFee)))
	tl.conservationCheck(t, alice, bob)
}

func TestWithdrawPrefundedFees(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	require.NoError(t, tl.PrefundFees(alice, halo(2)))
	require.ErrorIs(t, tl.WithdrawPrefundedFees(alice, halo(3)), coreerrors.ErrInsufficientPrefund)
	require.NoError(t, tl.WithdrawPrefundedFees(alice, halo(2)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(10)))
	require.Equal(t, 0, tl.mustBalance(t, tl.treasury).Sign())
}

func TestRecipientReversalScenario(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	amount := halo(10)
	estimate, err := tl.EstimateTransferFeeDetails(alice, bob, amount)
	require.NoError(t, err)
	fee := estimate.Quote.TotalFee

	require.NoError(t, tl.Transfer(alice, bob, amount))
	require.NoError(t, tl.ReverseRecipientTransfer(bob))

	// The gross amount went back; the fee stayed with the treasury.
	wantAlice := new(big.Int).Sub(halo(100), fee)
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(wantAlice))
	require.Equal(t, 0, tl.mustBalance(t, bob).Sign())
	require.Equal(t, 0, tl.mustBalance(t, tl.treasury).Cmp(fee))
	tl.conservationCheck(t, alice, bob)

	// Both parties' risk scores now carry the reversal evidence.
	aliceScore, err := tl.RiskScoreOf(alice)
	require.NoError(t, err)
	bobScore, err := tl.RiskScoreOf(bob)
	require.NoError(t, err)
	require.Greater(t, aliceScore, uint64(10_000))
	require.Greater(t, bobScore, uint64(10_000))

	// The reversal is one-shot.
	require.ErrorIs(t, tl.ReverseRecipientTransfer(bob), coreerrors.ErrAlreadyReversed)
}

func TestFinalizeRecipientScenario(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	amount := halo(10)
	estimate, err := tl.EstimateTransferFeeDetails(alice, bob, amount)
	require.NoError(t, err)
	fee := estimate.Quote.TotalFee

	require.NoError(t, tl.Transfer(alice, bob, amount))
	require.ErrorIs(t, tl.FinalizeRecipientTransfer(carol, bob), coreerrors.ErrWindowNotExpired)

	receipt, _, err := tl.PendingReceiptOf(bob)
	require.NoError(t, err)
	tl.clock = receipt.ExpiryTime

	creditsBefore, err := tl.IncentiveCreditsOf(bob)
	require.NoError(t, err)

	// Finalization is permissionless.
	require.NoError(t, tl.FinalizeRecipientTransfer(carol, bob))

	// Loyalty refund: fee/8 split evenly, fee/16 to each side.
	half := new(big.Int).Div(new(big.Int).Div(fee, big.NewInt(fees.LoyaltyRefundDiv)), big.NewInt(2))
	creditsAfter, err := tl.IncentiveCreditsOf(bob)
	require.NoError(t, err)
	require.Equal(t, 0, new(big.Int).Sub(creditsAfter, creditsBefore).Cmp(half))

	// The lock lifted.
	spendable, err := tl.SpendableBalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, 0, spendable.Cmp(amount))
	_, ok, err := tl.PendingReceiptOf(bob)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEstimateMatchesTransferForTransferFundedSender(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	// Fund bob through an inbound transfer only. Receiving never writes a
	// risk profile, so bob's first outbound transfer creates one on the
	// spot and picks up the new-wallet bonus.
	require.NoError(t, tl.Transfer(alice, bob, halo(20)))
	receipt, _, err := tl.PendingReceiptOf(bob)
	require.NoError(t, err)
	tl.clock = receipt.ExpiryTime
	require.NoError(t, tl.FinalizeRecipientTransfer(carol, bob))

	_, ok, err := tl.State().RiskProfile(bob)
	require.NoError(t, err)
	require.False(t, ok, "inbound transfers must not create a profile")

	amount := halo(10)
	estimate, err := tl.EstimateTransferFeeDetails(bob, carol, amount)
	require.NoError(t, err)

	tl.recorder.Reset()
	require.NoError(t, tl.Transfer(bob, carol, amount))

	var assessed string
	for _, evt := range tl.recorder.Events {
		if evt.EventType() != EventTypeTransfer {
			continue
		}
		carrier, isLedger := evt.(ledgerEvent)
		require.True(t, isLedger)
		assessed = carrier.Event().Attributes["totalFee"]
	}
	require.Equal(t, estimate.Quote.TotalFee.String(), assessed,
		"quoted fee must match the fee the transfer assesses")
}

func TestSenderReversalScenario(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	amount := halo(10)
	require.NoError(t, tl.Transfer(alice, bob, amount))

	// Only the recorded originator may claw back.
	require.ErrorIs(t, tl.ReverseSenderTransfer(carol, bob, halo(1)), coreerrors.ErrSenderMismatch)

	balanceBefore := tl.mustBalance(t, alice)
	require.NoError(t, tl.ReverseSenderTransfer(alice, bob, halo(4)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(new(big.Int).Add(balanceBefore, halo(4))))
	require.Equal(t, 0, tl.mustBalance(t, bob).Cmp(halo(6)))
	tl.conservationCheck(t, alice, bob)

	require.ErrorIs(t, tl.ReverseSenderTransfer(alice, bob, halo(1)), coreerrors.ErrAlreadyReversed)
}

func TestCheckSenderHalfLifeExpiry(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	require.NoError(t, tl.Transfer(alice, bob, halo(10)))
	require.ErrorIs(t, tl.CheckSenderHalfLifeExpiry(carol, bob), coreerrors.ErrWindowNotExpired)

	window, _, err := tl.SettlementWindowOf(bob)
	require.NoError(t, err)
	tl.clock = window.CommitWindowEnd

	require.NoError(t, tl.CheckSenderHalfLifeExpiry(carol, bob))
	_, ok, err := tl.SettlementWindowOf(bob)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBurnReducesSupply(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	require.NoError(t, tl.Burn(alice, halo(4)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(6)))
	supply, err := tl.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, 0, supply.Cmp(halo(6)))

	require.ErrorIs(t, tl.Burn(alice, halo(100)), coreerrors.ErrInsufficientSpendable)
}

func TestBurnFromNeedsRoleOrAllowance(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(10))

	require.ErrorIs(t, tl.BurnFrom(carol, alice, halo(1)), coreerrors.ErrInsufficientAllowance)

	require.NoError(t, tl.Approve(alice, carol, halo(2)))
	require.NoError(t, tl.BurnFrom(carol, alice, halo(2)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(8)))

	// The burner role bypasses allowances.
	require.NoError(t, tl.BurnFrom(admin, alice, halo(3)))
	require.Equal(t, 0, tl.mustBalance(t, alice).Cmp(halo(5)))
}

func TestFlagAbnormalRaisesScore(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(1_000))

	require.ErrorIs(t, tl.FlagAbnormalTransaction(alice, bob), coreerrors.ErrUnauthorizedRole)

	before, err := tl.RiskScoreOf(bob)
	require.NoError(t, err)
	require.NoError(t, tl.FlagAbnormalTransaction(admin, bob))
	require.NoError(t, tl.FlagAbnormalTransaction(admin, bob))
	tl.advance(8 * day) // age out the new-wallet bonus from profile creation
	after, err := tl.RiskScoreOf(bob)
	require.NoError(t, err)
	require.Equal(t, before+1_000, after)

	// The elevated score feeds straight into quoting: transfers toward the
	// flagged wallet cost more than transfers toward a clean one. Alice's
	// profile aged past the new-wallet window, so both quotes share the
	// same sender score.
	clean, err := tl.EstimateTransferFeeDetails(alice, carol, halo(100))
	require.NoError(t, err)
	flagged, err := tl.EstimateTransferFeeDetails(alice, bob, halo(100))
	require.NoError(t, err)
	require.Equal(t, 1, flagged.Quote.TotalFee.Cmp(clean.Quote.TotalFee),
		"flagged recipient must raise the quote: clean %s flagged %s",
		clean.Quote.TotalFee, flagged.Quote.TotalFee)
}

func TestAdminParamUpdates(t *testing.T) {
	tl := newTestLedger(t)

	require.ErrorIs(t, tl.SetHalfLifeDuration(alice, 1_800), coreerrors.ErrUnauthorizedRole)
	require.NoError(t, tl.SetHalfLifeDuration(admin, 1_800))
	params, err := tl.State().Params()
	require.NoError(t, err)
	require.Equal(t, int64(1_800), params.HalfLifeDuration)

	// Out-of-range updates are rejected atomically.
	require.ErrorIs(t, tl.SetHalfLifeBounds(admin, 5_000, 4_000), coreerrors.ErrParamOutOfRange)
	params, err = tl.State().Params()
	require.NoError(t, err)
	require.Equal(t, int64(60), params.HalfLifeMin)

	require.NoError(t, tl.SetTreasury(admin, carol))
	params, err = tl.State().Params()
	require.NoError(t, err)
	require.Equal(t, carol, params.Treasury)
}

type fakeRegistry struct {
	approved   map[[20]byte]bool
	custodians map[[20]byte][20]byte
}

func (f *fakeRegistry) IsApproved(addr [20]byte) bool { return f.approved[addr] }

func (f *fakeRegistry) Custodian(addr [20]byte) ([20]byte, bool) {
	c, ok := f.custodians[addr]
	return c, ok
}

func TestComplianceGate(t *testing.T) {
	registry := &fakeRegistry{approved: map[[20]byte]bool{alice: true}}
	ledger := NewLedger(storage.NewMemDB(), registry, nil)
	clock := t0
	ledger.SetNowFunc(func() int64 { return clock })
	require.NoError(t, ledger.Bootstrap(admin))

	require.ErrorIs(t, ledger.Mint(admin, bob, halo(1)), coreerrors.ErrRecipientNotApproved)
	require.NoError(t, ledger.Mint(admin, alice, halo(10)))

	require.ErrorIs(t, ledger.Transfer(alice, bob, halo(1)), coreerrors.ErrRecipientNotApproved)
	registry.approved[bob] = true
	require.NoError(t, ledger.Transfer(alice, bob, halo(1)))

	registry.approved[alice] = false
	require.ErrorIs(t, ledger.Transfer(alice, bob, halo(1)), coreerrors.ErrSenderNotApproved)
}

func TestInterbankLiabilityLifecycle(t *testing.T) {
	bankA := [20]byte{0xb1}
	bankB := [20]byte{0xb2}
	registry := &fakeRegistry{
		approved:   map[[20]byte]bool{alice: true, bob: true},
		custodians: map[[20]byte][20]byte{alice: bankA, bob: bankB},
	}
	ledger := NewLedger(storage.NewMemDB(), nil, nil)
	netting := compliance.NewNettingLedger(ledger.State())
	ledger.SetCompliance(registry, netting)
	clock := t0
	ledger.SetNowFunc(func() int64 { return clock })
	require.NoError(t, ledger.Bootstrap(admin))
	require.NoError(t, ledger.Mint(admin, alice, halo(100)))
	clock += 8 * day

	amount := halo(10)
	require.NoError(t, ledger.Transfer(alice, bob, amount))

	net, err := netting.Net(bankA, bankB)
	require.NoError(t, err)
	require.Equal(t, 0, net.Cmp(amount), "transfer across custodians books a liability")

	require.NoError(t, ledger.ReverseRecipientTransfer(bob))
	net, err = netting.Net(bankA, bankB)
	require.NoError(t, err)
	require.Equal(t, 0, net.Sign(), "reversal clears the liability")
}

func TestTransferEventCarriesFeeBreakdown(t *testing.T) {
	tl := newTestLedger(t)
	tl.seed(t, alice, halo(100))
	tl.advance(8 * day)

	tl.recorder.Reset()
	require.NoError(t, tl.Transfer(alice, bob, halo(10)))

	var transfer *types.Event
	for _, evt := range tl.recorder.Events {
		if evt.EventType() != EventTypeTransfer {
			continue
		}
		carrier, ok := evt.(ledgerEvent)
		require.True(t, ok)
		transfer = carrier.Event()
	}
	require.NotNil(t, transfer, "expected a %s event", EventTypeTransfer)
	for _, attr := range []string{"sender", "recipient", "gross", "totalFee", "halfLife"} {
		require.Contains(t, transfer.Attributes, attr)
	}
	require.Equal(t, halo(10).String(), transfer.Attributes["gross"])
}
