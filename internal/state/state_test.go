package state_test

import (
	"testing"

	"BankLedger/internal/fault"
	"BankLedger/internal/state"
)

// ============================================================================
// Test: AccountManager
// ============================================================================

func TestAccountManager_Create(t *testing.T) {
	am := state.NewAccountManager()

	acct, err := am.Create("alice", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Identity != "alice" || acct.CreatedAt != 100 {
		t.Errorf("account fields: %+v", acct)
	}
	if am.Count() != 1 {
		t.Errorf("count: got %d, want 1", am.Count())
	}
}

func TestAccountManager_CreateDuplicate(t *testing.T) {
	am := state.NewAccountManager()
	if _, err := am.Create("alice", 100); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := am.Create("alice", 101)
	if fault.KindOf(err) != fault.KindAlreadyExists {
		t.Errorf("duplicate create: got %v, want already_exists", err)
	}
}

func TestAccountManager_CreateEmptyIdentity(t *testing.T) {
	am := state.NewAccountManager()
	if _, err := am.Create("", 100); fault.KindOf(err) != fault.KindValidation {
		t.Errorf("empty identity: got %v, want validation", err)
	}
}

func TestAccountManager_Require(t *testing.T) {
	am := state.NewAccountManager()

	_, err := am.Require("deposit", "ghost")
	if fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("missing account: got %v, want not_found", err)
	}

	if _, err := am.Create("alice", 100); err != nil {
		t.Fatalf("create: %v", err)
	}
	acct, err := am.Require("deposit", "alice")
	if err != nil || acct.Identity != "alice" {
		t.Errorf("require existing: acct=%+v err=%v", acct, err)
	}
}

// ============================================================================
// Test: SavingsManager
// ============================================================================

func TestSavingsManager_PendingInterestNoPosition(t *testing.T) {
	sm := state.NewSavingsManager()

	pending, err := sm.PendingInterest("alice", 1_000, 500)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("no position should accrue nothing, got %d", pending)
	}
}

func TestSavingsManager_PendingInterestOneYear(t *testing.T) {
	sm := state.NewSavingsManager()
	sm.Touch("alice", 1_000)

	// 1000 principal at 5% over one 365-day year = 50
	pending, err := sm.PendingInterest("alice", 1_000, 1_000+365*86_400)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 50 {
		t.Errorf("got %d, want 50", pending)
	}
}

func TestSavingsManager_PendingInterestZeroElapsed(t *testing.T) {
	sm := state.NewSavingsManager()
	sm.Touch("alice", 1_000)

	pending, err := sm.PendingInterest("alice", 1_000, 1_000)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("zero elapsed should accrue nothing, got %d", pending)
	}
}

func TestSavingsManager_TouchNeverRewindsClock(t *testing.T) {
	sm := state.NewSavingsManager()
	pos := sm.Touch("alice", 1_000)
	sm.Touch("alice", 900)

	if pos.LastAccrualTs != 1_000 {
		t.Errorf("clock rewound: got %d, want 1_000", pos.LastAccrualTs)
	}
}

func TestSavingsManager_TouchAdvancesClock(t *testing.T) {
	sm := state.NewSavingsManager()
	sm.Touch("alice", 1_000)
	pos := sm.Touch("alice", 2_000)

	if pos.LastAccrualTs != 2_000 {
		t.Errorf("clock: got %d, want 2_000", pos.LastAccrualTs)
	}

	// Interest accrued before the fold is gone from the pending view.
	pending, err := sm.PendingInterest("alice", 1_000, 2_000)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending after fold: got %d, want 0", pending)
	}
}

// ============================================================================
// Test: LoanManager
// ============================================================================

func TestLoanManager_Originate(t *testing.T) {
	lm := state.NewLoanManager()

	// 1000 at 8% for 30 days: interest floors to 6, total due 1006.
	loan, index, err := lm.Originate("alice", 1_000, 30, 100)
	if err != nil {
		t.Fatalf("originate: %v", err)
	}
	if index != 0 {
		t.Errorf("index: got %d, want 0", index)
	}
	if loan.TotalDue != 1_006 {
		t.Errorf("total due: got %d, want 1_006", loan.TotalDue)
	}
	if loan.InterestRateBps != state.BankLoanRateBps {
		t.Errorf("rate: got %d, want %d", loan.InterestRateBps, state.BankLoanRateBps)
	}
	if loan.DurationSeconds != 30*86_400 {
		t.Errorf("duration: got %d, want %d", loan.DurationSeconds, 30*86_400)
	}
	if !loan.Active || loan.RepaidAmount != 0 {
		t.Errorf("new loan state: %+v", loan)
	}
}

func TestLoanManager_OriginateIndexesPerBorrower(t *testing.T) {
	lm := state.NewLoanManager()

	_, i0, _ := lm.Originate("alice", 100, 30, 100)
	_, i1, _ := lm.Originate("alice", 200, 30, 101)
	_, j0, _ := lm.Originate("bob", 300, 30, 102)

	if i0 != 0 || i1 != 1 || j0 != 0 {
		t.Errorf("indexes: alice %d,%d bob %d", i0, i1, j0)
	}
	if lm.Count("alice") != 2 || lm.Count("bob") != 1 {
		t.Errorf("counts: alice=%d bob=%d", lm.Count("alice"), lm.Count("bob"))
	}
}

func TestLoanManager_OriginateValidation(t *testing.T) {
	lm := state.NewLoanManager()

	if _, _, err := lm.Originate("alice", 0, 30, 100); fault.KindOf(err) != fault.KindValidation {
		t.Errorf("zero amount: got %v, want validation", err)
	}
	if _, _, err := lm.Originate("alice", 100, 0, 100); fault.KindOf(err) != fault.KindValidation {
		t.Errorf("zero duration: got %v, want validation", err)
	}
}

func TestLoanManager_RepaymentLifecycle(t *testing.T) {
	lm := state.NewLoanManager()
	loan, _, err := lm.Originate("alice", 1_000, 30, 100)
	if err != nil {
		t.Fatalf("originate: %v", err)
	}

	// Partial repayment keeps the loan active.
	if _, err := lm.ValidateRepayment("alice", 0, 500); err != nil {
		t.Fatalf("validate partial: %v", err)
	}
	lm.ApplyRepayment(loan, 500)
	if !loan.Active || loan.Remaining() != 506 {
		t.Errorf("after partial: active=%v remaining=%d", loan.Active, loan.Remaining())
	}

	// Exact remainder settles and closes.
	if _, err := lm.ValidateRepayment("alice", 0, 506); err != nil {
		t.Fatalf("validate final: %v", err)
	}
	lm.ApplyRepayment(loan, 506)
	if loan.Active || loan.Remaining() != 0 {
		t.Errorf("after settle: active=%v remaining=%d", loan.Active, loan.Remaining())
	}

	// Closed loans reject further repayment.
	if _, err := lm.ValidateRepayment("alice", 0, 1); fault.KindOf(err) != fault.KindInvalidState {
		t.Errorf("repay closed loan: got %v, want invalid_state", err)
	}
}

func TestLoanManager_OverRepaymentRejected(t *testing.T) {
	lm := state.NewLoanManager()
	if _, _, err := lm.Originate("alice", 1_000, 30, 100); err != nil {
		t.Fatalf("originate: %v", err)
	}

	// Remaining due is 1006; one unit more is rejected, not capped.
	if _, err := lm.ValidateRepayment("alice", 0, 1_007); fault.KindOf(err) != fault.KindOverRepayment {
		t.Errorf("overpay: got %v, want over_repayment", err)
	}
}

func TestLoanManager_RepaymentBadIndex(t *testing.T) {
	lm := state.NewLoanManager()

	if _, err := lm.ValidateRepayment("alice", 0, 100); fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("no loans: got %v, want not_found", err)
	}

	if _, _, err := lm.Originate("alice", 1_000, 30, 100); err != nil {
		t.Fatalf("originate: %v", err)
	}
	if _, err := lm.ValidateRepayment("alice", 1, 100); fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("index past end: got %v, want not_found", err)
	}
	if _, err := lm.ValidateRepayment("alice", -1, 100); fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("negative index: got %v, want not_found", err)
	}
}

func TestLoanManager_OutstandingPrincipal(t *testing.T) {
	lm := state.NewLoanManager()
	loan, _, _ := lm.Originate("alice", 1_000, 30, 100)
	lm.Originate("bob", 500, 30, 101)

	if got := lm.OutstandingPrincipal(); got != 1_500 {
		t.Errorf("outstanding: got %d, want 1_500", got)
	}

	lm.ApplyRepayment(loan, loan.TotalDue)
	if got := lm.OutstandingPrincipal(); got != 500 {
		t.Errorf("outstanding after settle: got %d, want 500", got)
	}
}

// ============================================================================
// Test: OfferManager
// ============================================================================

func TestOfferManager_CreateMonotonicIDs(t *testing.T) {
	om := state.NewOfferManager()

	first, err := om.Create("lender", 1_000, 1_200, 60, 50)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := om.Create("lender", 2_000, 1_000, 30, 40)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.ID != 0 || second.ID != 1 {
		t.Errorf("ids: got %d, %d", first.ID, second.ID)
	}
	if om.NextID() != 2 {
		t.Errorf("next id: got %d, want 2", om.NextID())
	}
}

func TestOfferManager_IDsNotReusedAfterCancel(t *testing.T) {
	om := state.NewOfferManager()

	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)
	om.ApplyCancel(offer)

	next, _ := om.Create("lender", 1_000, 1_200, 60, 50)
	if next.ID != 1 {
		t.Errorf("cancelled id reused: got %d, want 1", next.ID)
	}
}

func TestOfferManager_CreateValidation(t *testing.T) {
	om := state.NewOfferManager()

	cases := []struct {
		name                                      string
		amount, rate, durationDays, minCollateral int64
	}{
		{"zero amount", 0, 1_200, 60, 50},
		{"negative rate", 1_000, -1, 60, 50},
		{"zero duration", 1_000, 1_200, 0, 50},
		{"zero collateral percent", 1_000, 1_200, 60, 0},
		{"collateral percent over 100", 1_000, 1_200, 60, 101},
	}
	for _, tc := range cases {
		_, err := om.Create("lender", tc.amount, tc.rate, tc.durationDays, tc.minCollateral)
		if fault.KindOf(err) != fault.KindValidation {
			t.Errorf("%s: got %v, want validation", tc.name, err)
		}
	}
}

func TestOfferManager_ValidateAccept(t *testing.T) {
	om := state.NewOfferManager()
	created, _ := om.Create("lender", 1_000, 1_200, 60, 50)

	offer, collateral, totalDue, err := om.ValidateAccept("borrower", created.ID)
	if err != nil {
		t.Fatalf("validate accept: %v", err)
	}
	if offer.ID != created.ID {
		t.Errorf("offer id: got %d, want %d", offer.ID, created.ID)
	}
	if collateral != 500 {
		t.Errorf("collateral: got %d, want 500", collateral)
	}
	// 1000 at 12% for 60 days = 19.7..., floors to 19.
	if totalDue != 1_019 {
		t.Errorf("total due: got %d, want 1_019", totalDue)
	}
}

func TestOfferManager_AcceptOwnOfferRejected(t *testing.T) {
	om := state.NewOfferManager()
	created, _ := om.Create("lender", 1_000, 1_200, 60, 50)

	_, _, _, err := om.ValidateAccept("lender", created.ID)
	if fault.KindOf(err) != fault.KindValidation {
		t.Errorf("self accept: got %v, want validation", err)
	}
}

func TestOfferManager_AcceptMissingOffer(t *testing.T) {
	om := state.NewOfferManager()

	_, _, _, err := om.ValidateAccept("borrower", 99)
	if fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("missing offer: got %v, want not_found", err)
	}
}

func TestOfferManager_AcceptNonOpenOffer(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)
	om.ApplyCancel(offer)

	_, _, _, err := om.ValidateAccept("borrower", offer.ID)
	if fault.KindOf(err) != fault.KindInvalidState {
		t.Errorf("accept cancelled: got %v, want invalid_state", err)
	}
}

func TestOfferManager_ApplyAccept(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)

	om.ApplyAccept(offer, "borrower", 500, 1_019, 200)

	if offer.State != state.OfferStateMatched {
		t.Errorf("state: got %v, want matched", offer.State)
	}
	if offer.Borrower != "borrower" || offer.CollateralHeld != 500 ||
		offer.TotalDue != 1_019 || offer.MatchedAt != 200 {
		t.Errorf("matched fields: %+v", offer)
	}
	if offer.Active() {
		t.Error("matched offer should not be active")
	}
}

func TestOfferManager_CancelRules(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)

	if _, err := om.ValidateCancel("intruder", offer.ID); fault.KindOf(err) != fault.KindValidation {
		t.Errorf("non-lender cancel: got %v, want validation", err)
	}
	if _, err := om.ValidateCancel("lender", 99); fault.KindOf(err) != fault.KindNotFound {
		t.Errorf("missing offer: got %v, want not_found", err)
	}

	got, err := om.ValidateCancel("lender", offer.ID)
	if err != nil {
		t.Fatalf("validate cancel: %v", err)
	}
	om.ApplyCancel(got)

	if offer.State != state.OfferStateCancelled {
		t.Errorf("state: got %v, want cancelled", offer.State)
	}
	// Cancelled is terminal.
	if _, err := om.ValidateCancel("lender", offer.ID); fault.KindOf(err) != fault.KindInvalidState {
		t.Errorf("double cancel: got %v, want invalid_state", err)
	}
}

func TestOfferManager_RepaymentLifecycle(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)
	om.ApplyAccept(offer, "borrower", 500, 1_019, 200)

	// Partial repayment holds the collateral.
	if _, err := om.ValidateRepayment("borrower", offer.ID, 1_000); err != nil {
		t.Fatalf("validate partial: %v", err)
	}
	if release := om.ApplyRepayment(offer, 1_000); release != 0 {
		t.Errorf("partial release: got %d, want 0", release)
	}
	if offer.Remaining() != 19 {
		t.Errorf("remaining: got %d, want 19", offer.Remaining())
	}

	// Overpaying the remainder is rejected.
	if _, err := om.ValidateRepayment("borrower", offer.ID, 20); fault.KindOf(err) != fault.KindOverRepayment {
		t.Errorf("overpay: got %v, want over_repayment", err)
	}

	// Exact remainder settles and releases the full collateral.
	if _, err := om.ValidateRepayment("borrower", offer.ID, 19); err != nil {
		t.Fatalf("validate final: %v", err)
	}
	if release := om.ApplyRepayment(offer, 19); release != 500 {
		t.Errorf("settle release: got %d, want 500", release)
	}
	if offer.CollateralHeld != 0 {
		t.Errorf("collateral held after settle: got %d, want 0", offer.CollateralHeld)
	}

	// Settled offers reject further repayment.
	if _, err := om.ValidateRepayment("borrower", offer.ID, 1); fault.KindOf(err) != fault.KindInvalidState {
		t.Errorf("repay settled: got %v, want invalid_state", err)
	}
}

func TestOfferManager_RepaymentWrongBorrower(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)
	om.ApplyAccept(offer, "borrower", 500, 1_019, 200)

	if _, err := om.ValidateRepayment("intruder", offer.ID, 100); fault.KindOf(err) != fault.KindValidation {
		t.Errorf("wrong borrower: got %v, want validation", err)
	}
}

func TestOfferManager_RepaymentOnOpenOffer(t *testing.T) {
	om := state.NewOfferManager()
	offer, _ := om.Create("lender", 1_000, 1_200, 60, 50)

	if _, err := om.ValidateRepayment("borrower", offer.ID, 100); fault.KindOf(err) != fault.KindInvalidState {
		t.Errorf("repay open offer: got %v, want invalid_state", err)
	}
}

func TestOfferManager_ActiveOffersSorted(t *testing.T) {
	om := state.NewOfferManager()
	a, _ := om.Create("lender", 100, 1_000, 30, 50)
	b, _ := om.Create("lender", 200, 1_000, 30, 50)
	c, _ := om.Create("lender", 300, 1_000, 30, 50)
	om.ApplyCancel(b)

	active := om.ActiveOffers()
	if len(active) != 2 {
		t.Fatalf("active: got %d, want 2", len(active))
	}
	if active[0].ID != a.ID || active[1].ID != c.ID {
		t.Errorf("active order: %d, %d", active[0].ID, active[1].ID)
	}
}

func TestOfferManager_Restore(t *testing.T) {
	om := state.NewOfferManager()
	om.Create("lender", 100, 1_000, 30, 50)
	om.Create("lender", 200, 1_000, 30, 50)

	restored := state.NewOfferManager()
	restored.Restore(om.All(), om.NextID())

	if restored.NextID() != 2 {
		t.Errorf("next id after restore: got %d, want 2", restored.NextID())
	}
	next, err := restored.Create("lender", 300, 1_000, 30, 50)
	if err != nil {
		t.Fatalf("create after restore: %v", err)
	}
	if next.ID != 2 {
		t.Errorf("id after restore: got %d, want 2", next.ID)
	}
}
