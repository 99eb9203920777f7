package ledger_test

import (
	"testing"

	"github.com/google/uuid"

	"BankLedger/internal/ledger"
)

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_UserPath(t *testing.T) {
	key := ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable)

	path := key.AccountPath()
	if path != "user:alice:available" {
		t.Errorf("got %q, want %q", path, "user:alice:available")
	}
}

func TestAccountKey_SystemPath(t *testing.T) {
	key := ledger.NewSystemAccountKey(ledger.SubTypeSystemTreasury)

	path := key.AccountPath()
	if path != "system:treasury" {
		t.Errorf("got %q, want %q", path, "system:treasury")
	}
}

func TestAccountKey_ExternalPath(t *testing.T) {
	key := ledger.NewExternalAccountKey(ledger.SubTypeExternalWithdrawals)

	path := key.AccountPath()
	if path != "external:withdrawals" {
		t.Errorf("got %q, want %q", path, "external:withdrawals")
	}
}

func TestParseAccountPath_RoundTrip(t *testing.T) {
	keys := []ledger.AccountKey{
		ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable),
		ledger.NewUserAccountKey("bob", ledger.SubTypeSavings),
		ledger.NewUserAccountKey("carol", ledger.SubTypeEscrow),
		ledger.NewUserAccountKey("dave", ledger.SubTypeCollateral),
		ledger.NewSystemAccountKey(ledger.SubTypeSystemTreasury),
		ledger.NewSystemAccountKey(ledger.SubTypeSystemInterest),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalWithdrawals),
	}

	for _, key := range keys {
		path := key.AccountPath()
		parsed := ledger.ParseAccountPath(path)
		if parsed != key {
			t.Errorf("round-trip failed for %q: got %+v, want %+v", path, parsed, key)
		}
	}
}

func TestParseAccountPath_IdentityWithColon(t *testing.T) {
	// Identity is split on the LAST colon, so colons inside the
	// identity survive a round-trip.
	key := ledger.NewUserAccountKey("org:team:alice", ledger.SubTypeSavings)

	parsed := ledger.ParseAccountPath(key.AccountPath())
	if parsed.Identity != "org:team:alice" {
		t.Errorf("identity: got %q, want %q", parsed.Identity, "org:team:alice")
	}
	if parsed.SubType != ledger.SubTypeSavings {
		t.Errorf("sub-type: got %v, want savings", parsed.SubType)
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_InitialBalanceZero(t *testing.T) {
	bt := ledger.NewBalanceTracker()

	if got := bt.GetAvailable("alice"); got != 0 {
		t.Errorf("initial available should be 0, got %d", got)
	}
}

func TestBalanceTracker_ApplyJournal(t *testing.T) {
	bt := ledger.NewBalanceTracker()

	// Deposit: debit user:available, credit external:deposits
	j := ledger.Journal{
		JournalID:     uuid.New(),
		BatchID:       uuid.New(),
		DebitAccount:  ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable),
		CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits),
		Amount:        1_000,
	}

	bt.ApplyJournal(j)

	if got := bt.GetAvailable("alice"); got != 1_000 {
		t.Errorf("available: got %d, want 1_000", got)
	}
	external := bt.GetBalance(ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits))
	if external != -1_000 {
		t.Errorf("external:deposits: got %d, want -1_000", external)
	}
	if total := bt.ComputeGlobalBalance(); total != 0 {
		t.Errorf("global balance should stay zero, got %d", total)
	}
}

func TestBalanceTracker_SubAccountQueries(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable), 100)
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeSavings), 200)
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeEscrow), 300)
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeCollateral), 400)

	if got := bt.GetAvailable("alice"); got != 100 {
		t.Errorf("available: got %d, want 100", got)
	}
	if got := bt.GetSavings("alice"); got != 200 {
		t.Errorf("savings: got %d, want 200", got)
	}
	if got := bt.GetEscrow("alice"); got != 300 {
		t.Errorf("escrow: got %d, want 300", got)
	}
	if got := bt.GetCollateral("alice"); got != 400 {
		t.Errorf("collateral: got %d, want 400", got)
	}
	if got := bt.ComputeUserHoldings(); got != 1_000 {
		t.Errorf("user holdings: got %d, want 1_000", got)
	}
}

func TestBalanceTracker_ValidateSufficientAvailable(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable), 50)

	if err := bt.ValidateSufficientAvailable("alice", 50); err != nil {
		t.Errorf("exact cover should pass: %v", err)
	}
	if err := bt.ValidateSufficientAvailable("alice", 51); err == nil {
		t.Error("over-cover should fail")
	}
}

func TestBalanceTracker_ValidateUserNonNegative(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeSavings), -1)

	if err := bt.ValidateUserNonNegative("alice"); err == nil {
		t.Error("negative savings should fail the non-negative check")
	}

	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeSavings), 0)
	if err := bt.ValidateUserNonNegative("alice"); err != nil {
		t.Errorf("zero balances should pass: %v", err)
	}
}

// ============================================================================
// Test: Batch validation
// ============================================================================

func TestBatch_ValidateEmpty(t *testing.T) {
	batch := &ledger.Batch{BatchID: uuid.New()}
	if err := batch.Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
}

func TestBatch_ValidateNonPositiveAmount(t *testing.T) {
	batchID := uuid.New()
	batch := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{
			{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				DebitAccount:  ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable),
				CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits),
				Amount:        0,
			},
		},
	}
	if err := batch.Validate(); err == nil {
		t.Error("zero amount should fail validation")
	}
}

func TestBatch_ValidateMismatchedBatchID(t *testing.T) {
	batch := &ledger.Batch{
		BatchID: uuid.New(),
		Journals: []ledger.Journal{
			{
				JournalID:     uuid.New(),
				BatchID:       uuid.New(),
				DebitAccount:  ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable),
				CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits),
				Amount:        100,
			},
		},
	}
	if err := batch.Validate(); err == nil {
		t.Error("mismatched batch_id should fail validation")
	}
}

func TestBatch_ValidateSelfTransfer(t *testing.T) {
	batchID := uuid.New()
	key := ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable)
	batch := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{
			{JournalID: uuid.New(), BatchID: batchID, DebitAccount: key, CreditAccount: key, Amount: 100},
		},
	}
	if err := batch.Validate(); err == nil {
		t.Error("same debit and credit account should fail validation")
	}
}

// ============================================================================
// Test: JournalGenerator
// ============================================================================

// applyOrFatal validates and applies a generated batch, then asserts the
// ledger stayed zero-sum afterwards.
func applyOrFatal(t *testing.T, bt *ledger.BalanceTracker, batch *ledger.Batch) {
	t.Helper()
	if err := bt.ApplyBatch(batch); err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if total := bt.ComputeGlobalBalance(); total != 0 {
		t.Fatalf("ledger not zero-sum after batch: %d", total)
	}
}

func TestGenerator_Deposit(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, records, err := gen.GenerateDeposit("alice", 1_000, "req-1", 100)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("alice"); got != 1_000 {
		t.Errorf("available: got %d, want 1_000", got)
	}
	if len(records) != 1 || records[0].Type != ledger.RecordTypeDeposit {
		t.Errorf("unexpected records: %+v", records)
	}
	if records[0].From != ledger.CounterpartyExternal || records[0].To != "alice" {
		t.Errorf("record endpoints: %+v", records[0])
	}
}

func TestGenerator_WithdrawInsufficient(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	_, _, err := gen.GenerateWithdraw("alice", 1, "req-1", 100)
	if err == nil {
		t.Error("withdraw from empty account should fail the pre-check")
	}
}

func TestGenerator_Transfer(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, _, err := gen.GenerateDeposit("alice", 1_000, "req-1", 100)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	applyOrFatal(t, bt, batch)

	batch, records, err := gen.GenerateTransfer("alice", "bob", 400, "req-2", 101)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("alice"); got != 600 {
		t.Errorf("alice available: got %d, want 600", got)
	}
	if got := bt.GetAvailable("bob"); got != 400 {
		t.Errorf("bob available: got %d, want 400", got)
	}
	if records[0].From != "alice" || records[0].To != "bob" {
		t.Errorf("record endpoints: %+v", records[0])
	}
}

func TestGenerator_SavingsDepositWithAccrual(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, _, err := gen.GenerateDeposit("alice", 1_000, "req-1", 100)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	applyOrFatal(t, bt, batch)

	// Accrued interest of 50 is bank-funded; principal move of 300 is
	// user-funded. Two legs, one batch.
	batch, records, err := gen.GenerateSavingsDeposit("alice", 300, 50, "req-2", 101)
	if err != nil {
		t.Fatalf("savings deposit: %v", err)
	}
	if len(batch.Journals) != 2 {
		t.Fatalf("journals: got %d, want 2", len(batch.Journals))
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("alice"); got != 700 {
		t.Errorf("available: got %d, want 700", got)
	}
	if got := bt.GetSavings("alice"); got != 350 {
		t.Errorf("savings: got %d, want 350", got)
	}
	interest := bt.GetBalance(ledger.NewSystemAccountKey(ledger.SubTypeSystemInterest))
	if interest != -50 {
		t.Errorf("system:interest: got %d, want -50", interest)
	}
	if len(records) != 2 || records[0].Type != ledger.RecordTypeInterestAccrued {
		t.Errorf("accrual record should come first: %+v", records)
	}
}

func TestGenerator_SavingsWithdrawCoversWithAccrual(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeSavings), 100)
	bt.SetBalance(ledger.NewSystemAccountKey(ledger.SubTypeSystemInterest), -100)

	// Principal 100 plus pending accrual 10 covers a withdrawal of 105.
	batch, _, err := gen.GenerateSavingsWithdraw("alice", 105, 10, "req-1", 100)
	if err != nil {
		t.Fatalf("savings withdraw: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetSavings("alice"); got != 5 {
		t.Errorf("savings: got %d, want 5", got)
	}
	if got := bt.GetAvailable("alice"); got != 105 {
		t.Errorf("available: got %d, want 105", got)
	}
}

func TestGenerator_SavingsWithdrawInsufficient(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeSavings), 100)

	_, _, err := gen.GenerateSavingsWithdraw("alice", 111, 10, "req-1", 100)
	if err == nil {
		t.Error("withdraw above principal+accrual should fail")
	}
}

func TestGenerator_LoanDisbursalAndRepayment(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, _, err := gen.GenerateLoanDisbursal("alice", 1_000, "req-1", 100)
	if err != nil {
		t.Fatalf("disbursal: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("alice"); got != 1_000 {
		t.Errorf("available: got %d, want 1_000", got)
	}
	treasury := bt.GetBalance(ledger.NewSystemAccountKey(ledger.SubTypeSystemTreasury))
	if treasury != -1_000 {
		t.Errorf("system:treasury: got %d, want -1_000", treasury)
	}

	batch, _, err = gen.GenerateLoanRepayment("alice", 600, "req-2", 101)
	if err != nil {
		t.Fatalf("repayment: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("alice"); got != 400 {
		t.Errorf("available after repay: got %d, want 400", got)
	}
	treasury = bt.GetBalance(ledger.NewSystemAccountKey(ledger.SubTypeSystemTreasury))
	if treasury != -400 {
		t.Errorf("system:treasury after repay: got %d, want -400", treasury)
	}
}

func TestGenerator_OfferLifecycle(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	for _, seed := range []struct {
		identity string
		amount   int64
	}{{"lender", 1_000}, {"borrower", 600}} {
		batch, _, err := gen.GenerateDeposit(seed.identity, seed.amount, "seed-"+seed.identity, 100)
		if err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
		applyOrFatal(t, bt, batch)
	}

	// Escrow the offer amount.
	batch, _, err := gen.GenerateOfferEscrow("lender", 1_000, "req-1", 101)
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	applyOrFatal(t, bt, batch)
	if got := bt.GetEscrow("lender"); got != 1_000 {
		t.Errorf("lender escrow: got %d, want 1_000", got)
	}
	if got := bt.GetAvailable("lender"); got != 0 {
		t.Errorf("lender available: got %d, want 0", got)
	}

	// Accept: collateral hold 500, then funding 1_000 from escrow.
	batch, _, err = gen.GenerateOfferAccept("lender", "borrower", 1_000, 500, "req-2", 102)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(batch.Journals) != 2 {
		t.Fatalf("journals: got %d, want 2", len(batch.Journals))
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetEscrow("lender"); got != 0 {
		t.Errorf("lender escrow after accept: got %d, want 0", got)
	}
	if got := bt.GetCollateral("borrower"); got != 500 {
		t.Errorf("borrower collateral: got %d, want 500", got)
	}
	if got := bt.GetAvailable("borrower"); got != 1_100 {
		t.Errorf("borrower available: got %d, want 1_100", got)
	}

	// Final repayment releases the held collateral in the same batch.
	batch, records, err := gen.GenerateOfferRepayment("borrower", "lender", 1_080, 500, "req-3", 103)
	if err != nil {
		t.Fatalf("repayment: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("lender"); got != 1_080 {
		t.Errorf("lender available after settle: got %d, want 1_080", got)
	}
	if got := bt.GetCollateral("borrower"); got != 0 {
		t.Errorf("borrower collateral after settle: got %d, want 0", got)
	}
	if got := bt.GetAvailable("borrower"); got != 520 {
		t.Errorf("borrower available after settle: got %d, want 520", got)
	}
	if len(records) != 2 || records[1].Type != ledger.RecordTypeCollateralReleased {
		t.Errorf("release record should follow repayment: %+v", records)
	}
}

func TestGenerator_OfferEscrowRelease(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(0, bt)

	batch, _, err := gen.GenerateDeposit("lender", 500, "req-1", 100)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	applyOrFatal(t, bt, batch)

	batch, _, err = gen.GenerateOfferEscrow("lender", 500, "req-2", 101)
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	applyOrFatal(t, bt, batch)

	batch, _, err = gen.GenerateOfferEscrowRelease("lender", 500, "req-3", 102)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	applyOrFatal(t, bt, batch)

	if got := bt.GetAvailable("lender"); got != 500 {
		t.Errorf("available after cancel: got %d, want 500", got)
	}
	if got := bt.GetEscrow("lender"); got != 0 {
		t.Errorf("escrow after cancel: got %d, want 0", got)
	}
}

func TestGenerator_SequenceAdvances(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	gen := ledger.NewJournalGenerator(7, bt)

	batch, _, err := gen.GenerateDeposit("alice", 100, "req-1", 100)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if batch.Sequence != 7 {
		t.Errorf("first batch sequence: got %d, want 7", batch.Sequence)
	}
	applyOrFatal(t, bt, batch)

	batch, _, err = gen.GenerateDeposit("alice", 100, "req-2", 101)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if batch.Sequence != 8 {
		t.Errorf("second batch sequence: got %d, want 8", batch.Sequence)
	}
}

// ============================================================================
// Test: InvariantValidator
// ============================================================================

func TestInvariantValidator_GlobalBalance(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)

	if err := v.ValidateGlobalBalance(); err != nil {
		t.Errorf("empty ledger should be zero-sum: %v", err)
	}

	// A raw SetBalance with no matching counter-entry breaks zero-sum.
	bt.SetBalance(ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable), 1)
	if err := v.ValidateGlobalBalance(); err == nil {
		t.Error("unbalanced ledger should fail")
	}
}

func TestInvariantValidator_UserNonNegativeTouchedOnly(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	v := ledger.NewInvariantValidator(bt)

	// Bob is negative, but the batch only touches alice.
	bt.SetBalance(ledger.NewUserAccountKey("bob", ledger.SubTypeAvailable), -5)

	batchID := uuid.New()
	batch := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{
			{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				DebitAccount:  ledger.NewUserAccountKey("alice", ledger.SubTypeAvailable),
				CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits),
				Amount:        100,
			},
		},
	}
	if err := v.ValidateUserNonNegative(batch); err != nil {
		t.Errorf("untouched identity should not fail the batch check: %v", err)
	}
}

// ============================================================================
// Test: History
// ============================================================================

func TestHistory_AppendAssignsSequence(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(
		ledger.TransactionRecord{From: ledger.CounterpartyExternal, To: "alice", Amount: 100, Type: ledger.RecordTypeDeposit},
		ledger.TransactionRecord{From: "alice", To: "bob", Amount: 40, Type: ledger.RecordTypeTransfer},
	)

	all := h.All()
	if len(all) != 2 {
		t.Fatalf("len: got %d, want 2", len(all))
	}
	if all[0].Sequence != 0 || all[1].Sequence != 1 {
		t.Errorf("sequences: got %d, %d", all[0].Sequence, all[1].Sequence)
	}
}

// The core forwards the same slice it appends to persistence, so the
// assigned sequences must land in the caller's records, not a copy.
func TestHistory_AppendStampsCallerSlice(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(ledger.TransactionRecord{From: ledger.CounterpartyExternal, To: "alice", Amount: 1, Type: ledger.RecordTypeDeposit})

	records := []ledger.TransactionRecord{
		{From: ledger.CounterpartyExternal, To: "alice", Amount: 100, Type: ledger.RecordTypeDeposit},
		{From: "alice", To: "bob", Amount: 40, Type: ledger.RecordTypeTransfer},
	}
	h.Append(records...)

	if records[0].Sequence != 1 || records[1].Sequence != 2 {
		t.Errorf("caller records not stamped: got %d, %d, want 1, 2",
			records[0].Sequence, records[1].Sequence)
	}
}

func TestHistory_PerIdentityIndex(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(
		ledger.TransactionRecord{From: ledger.CounterpartyExternal, To: "alice", Amount: 100, Type: ledger.RecordTypeDeposit},
		ledger.TransactionRecord{From: "alice", To: "bob", Amount: 40, Type: ledger.RecordTypeTransfer},
		ledger.TransactionRecord{From: ledger.CounterpartyExternal, To: "carol", Amount: 7, Type: ledger.RecordTypeDeposit},
	)

	alice := h.ForIdentity("alice")
	if len(alice) != 2 {
		t.Fatalf("alice records: got %d, want 2", len(alice))
	}
	if alice[0].Type != ledger.RecordTypeDeposit || alice[1].Type != ledger.RecordTypeTransfer {
		t.Errorf("alice record order: %+v", alice)
	}

	bob := h.ForIdentity("bob")
	if len(bob) != 1 || bob[0].Amount != 40 {
		t.Errorf("bob records: %+v", bob)
	}

	if got := h.ForIdentity("nobody"); len(got) != 0 {
		t.Errorf("unknown identity should have no records: %+v", got)
	}
}

func TestHistory_SelfMovementIndexedOnce(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(ledger.TransactionRecord{From: "alice", To: "alice", Amount: 10, Type: ledger.RecordTypeSavingsDeposit})

	if got := h.ForIdentity("alice"); len(got) != 1 {
		t.Errorf("self movement should index once: %+v", got)
	}
}

func TestHistory_SentinelsNotIndexed(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(ledger.TransactionRecord{From: ledger.CounterpartyBank, To: "alice", Amount: 10, Type: ledger.RecordTypeInterestAccrued})

	if got := h.ForIdentity(ledger.CounterpartyBank); len(got) != 0 {
		t.Errorf("sentinel counterparty should not be indexed: %+v", got)
	}
}

func TestHistory_Restore(t *testing.T) {
	h := ledger.NewHistory()
	h.Append(ledger.TransactionRecord{From: ledger.CounterpartyExternal, To: "alice", Amount: 1, Type: ledger.RecordTypeDeposit})

	stored := h.All()

	restored := ledger.NewHistory()
	restored.Restore(stored)

	if restored.Len() != 1 {
		t.Fatalf("len after restore: got %d, want 1", restored.Len())
	}
	if got := restored.ForIdentity("alice"); len(got) != 1 {
		t.Errorf("index after restore: %+v", got)
	}
}
