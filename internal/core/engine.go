package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"BankLedger/internal/fault"
	"BankLedger/internal/ledger"
	"BankLedger/internal/money"
	"BankLedger/internal/observability"
	"BankLedger/internal/request"
	"BankLedger/internal/state"

	"github.com/google/uuid"
)

// Engine is the single-threaded request processor. All balance mutations
// flow through ProcessRequest; callers outside the core goroutine must
// never touch the managers directly.
type Engine struct {
	sequence   int64
	hasher     *StateHasher
	tracker    *ledger.BalanceTracker
	journalGen *ledger.JournalGenerator
	validator  *ledger.InvariantValidator
	history    *ledger.History

	accounts *state.AccountManager
	savings  *state.SavingsManager
	loans    *state.LoanManager
	offers   *state.OfferManager

	idempotency *IdempotencyChecker
	nonces      *NonceValidator
	metrics     *observability.Metrics

	// replaying suppresses the dedup lookup and output emission while
	// re-processing the oplog on startup.
	replaying bool

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput is what the engine emits per applied request: the envelope
// for the request log, the balanced journal batch, the history records,
// and the caller-facing result.
type CoreOutput struct {
	Envelope *request.Envelope
	Batch    *ledger.Batch
	Records  []ledger.TransactionRecord
	Result   *Result
}

// Result is the caller-facing outcome of a request. Fields are populated
// per request type; unused fields stay zero.
type Result struct {
	RequestType request.Type
	Sequence    int64
	Duplicate   bool

	Balance          int64
	SavingsPrincipal int64
	LoanIndex        int64
	TotalDue         int64
	RemainingDue     int64
	OfferID          uint64
}

func NewEngine(
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *Engine {
	tracker := ledger.NewBalanceTracker()

	return &Engine{
		sequence:       startSequence,
		hasher:         NewStateHasher(),
		tracker:        tracker,
		journalGen:     ledger.NewJournalGenerator(startSequence, tracker),
		validator:      ledger.NewInvariantValidator(tracker),
		history:        ledger.NewHistory(),
		accounts:       state.NewAccountManager(),
		savings:        state.NewSavingsManager(),
		loans:          state.NewLoanManager(),
		offers:         state.NewOfferManager(),
		idempotency:    NewIdempotencyChecker(1_000_000, dbChecker),
		nonces:         NewNonceValidator(),
		metrics:        metrics,
		persistChan:    persistChan,
		projectionChan: projectionChan,
	}
}

// ProcessRequest is the main processing pipeline:
// idempotency → nonce → dispatch → validate batch → apply → hash → emit.
// Handlers run all fault checks before any state mutation, so a rejected
// request leaves the core untouched.
func (c *Engine) ProcessRequest(req request.Request) (*Result, error) {
	start := time.Now()
	reqType := req.RequestType().String()
	idempotencyKey := req.IdempotencyKey()

	// Step 1: Idempotency check (two-tier). Skipped during replay: the
	// oplog rows being replayed are in the dedup store by definition.
	isDuplicate := false
	if !c.replaying {
		isDuplicate = c.idempotency.IsDuplicate(reqType, idempotencyKey)
	}

	// Step 2: Nonce validation
	if err := c.nonces.Validate(reqType, req.Caller(), req.Nonce(), isDuplicate); err != nil {
		c.countRejected(reqType, err)
		return nil, err
	}

	// If duplicate, skip processing. The caller gets the duplicate marker
	// and can look up the original result in the request log.
	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreRequestsRejected.WithLabelValues(reqType, "duplicate").Inc()
		}
		return &Result{RequestType: req.RequestType(), Duplicate: true}, nil
	}

	// Step 3: Dispatch. The generator is pinned to the engine's sequence
	// first: journal-less requests advance the envelope sequence but not
	// the generator's, and batches must stamp the envelope's number.
	c.journalGen.SetSequence(c.sequence)
	batch, records, result, err := c.dispatch(req)
	if err != nil {
		c.countRejected(reqType, err)
		return nil, err
	}

	// Step 4: Validate and apply the journal batch. Empty batches
	// (CreateAccount) skip straight to the envelope.
	if len(batch.Journals) > 0 {
		if err := c.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
		}
		if err := c.tracker.ApplyBatch(batch); err != nil {
			return nil, fmt.Errorf("apply batch failed: %w", err)
		}
	}

	// Step 5: Record history
	c.history.Append(records...)

	// Step 6: State hash chain
	stateDigest := c.computeStateDigest(batch)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	// The payload is the wire-format JSON of the request; replay parses
	// it back through the ingestion parser.
	payload, err := json.Marshal(req)
	if err != nil {
		panic(fmt.Sprintf("FATAL: marshal request payload: %v", err))
	}

	envelope := &request.Envelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		RequestType:    req.RequestType(),
		Identity:       req.Caller(),
		Nonce:          req.Nonce(),
		Timestamp:      req.SubmittedAt(),
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	result.RequestType = req.RequestType()
	result.Sequence = c.sequence
	c.sequence++

	// Step 7: Post-checks
	if err := c.postCheckInvariants(req); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 8: Emit. Persistence uses a BLOCKING send so no applied
	// request is ever lost; projections use a non-blocking send and
	// rebuild from the request log if they fall behind.
	output := CoreOutput{
		Envelope: envelope,
		Batch:    batch,
		Records:  records,
		Result:   result,
	}
	if c.persistChan != nil && !c.replaying {
		c.persistChan <- output
	}
	if c.projectionChan != nil && !c.replaying {
		select {
		case c.projectionChan <- output:
		default:
			// Dropped — projection catches up via rebuild
		}
	}

	// Step 9: Mark processed, advance nonce
	c.idempotency.MarkProcessed(reqType, idempotencyKey)
	c.nonces.Advance(req.Caller())

	if c.metrics != nil {
		c.metrics.CoreRequestsApplied.WithLabelValues(reqType).Inc()
		c.metrics.CoreRequestDuration.WithLabelValues(reqType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	return result, nil
}

func (c *Engine) countRejected(reqType string, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.CoreRequestsRejected.WithLabelValues(reqType, fault.KindOf(err).String()).Inc()
}

func (c *Engine) dispatch(req request.Request) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	switch r := req.(type) {
	case *request.CreateAccount:
		return c.handleCreateAccount(r)
	case *request.Deposit:
		return c.handleDeposit(r)
	case *request.Withdraw:
		return c.handleWithdraw(r)
	case *request.Transfer:
		return c.handleTransfer(r)
	case *request.SavingsDeposit:
		return c.handleSavingsDeposit(r)
	case *request.SavingsWithdraw:
		return c.handleSavingsWithdraw(r)
	case *request.TakeLoan:
		return c.handleTakeLoan(r)
	case *request.RepayLoan:
		return c.handleRepayLoan(r)
	case *request.CreateLoanOffer:
		return c.handleCreateLoanOffer(r)
	case *request.AcceptLoanOffer:
		return c.handleAcceptLoanOffer(r)
	case *request.CancelLoanOffer:
		return c.handleCancelLoanOffer(r)
	case *request.RepayLoanOffer:
		return c.handleRepayLoanOffer(r)
	default:
		return nil, nil, nil, fault.New(fault.KindValidation, "dispatch", "unknown request type: %T", req)
	}
}

// emptyBatch builds a journal-less batch for state-only requests so the
// request still gets an envelope in the request log.
func (c *Engine) emptyBatch(requestRef string, timestamp int64) *ledger.Batch {
	return &ledger.Batch{
		BatchID:    uuid.New(),
		RequestRef: requestRef,
		Sequence:   c.sequence,
		Timestamp:  timestamp,
		Journals:   []ledger.Journal{},
	}
}

func (c *Engine) handleCreateAccount(req *request.CreateAccount) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	if _, err := c.accounts.Create(req.Identity, req.Timestamp); err != nil {
		return nil, nil, nil, err
	}
	return c.emptyBatch(req.IdempotencyKey(), req.Timestamp), nil, &Result{}, nil
}

func (c *Engine) handleDeposit(req *request.Deposit) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "deposit"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}
	if req.Amount <= 0 {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "amount must be positive, got %d", req.Amount)
	}

	available := c.tracker.GetAvailable(req.Identity)
	newBalance, err := money.CheckedAdd(available, req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateDeposit(req.Identity, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	return batch, records, &Result{Balance: newBalance}, nil
}

func (c *Engine) handleWithdraw(req *request.Withdraw) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "withdraw"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}
	if req.Amount <= 0 {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "amount must be positive, got %d", req.Amount)
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < requested %d", available, req.Amount)
	}

	batch, records, err := c.journalGen.GenerateWithdraw(req.Identity, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	return batch, records, &Result{Balance: available - req.Amount}, nil
}

func (c *Engine) handleTransfer(req *request.Transfer) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "transfer"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}
	if _, err := c.accounts.Require(op, req.To); err != nil {
		return nil, nil, nil, err
	}
	if req.To == req.Identity {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "cannot transfer to self")
	}
	if req.Amount <= 0 {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "amount must be positive, got %d", req.Amount)
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < requested %d", available, req.Amount)
	}
	if _, err := money.CheckedAdd(c.tracker.GetAvailable(req.To), req.Amount); err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateTransfer(req.Identity, req.To, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	return batch, records, &Result{Balance: available - req.Amount}, nil
}

// pendingSavingsInterest computes the interest owed to an identity since
// its last accrual, without mutating the savings position.
func (c *Engine) pendingSavingsInterest(identity string, now int64) (principal, interest int64, err error) {
	principal = c.tracker.GetSavings(identity)
	interest, err = c.savings.PendingInterest(identity, principal, now)
	return principal, interest, err
}

func (c *Engine) handleSavingsDeposit(req *request.SavingsDeposit) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "savings_deposit"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}
	if req.Amount <= 0 {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "amount must be positive, got %d", req.Amount)
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < requested %d", available, req.Amount)
	}

	principal, interest, err := c.pendingSavingsInterest(req.Identity, req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	afterAccrual, err := money.CheckedAdd(principal, interest)
	if err != nil {
		return nil, nil, nil, err
	}
	newPrincipal, err := money.CheckedAdd(afterAccrual, req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateSavingsDeposit(req.Identity, req.Amount, interest, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.savings.Touch(req.Identity, req.Timestamp)

	return batch, records, &Result{Balance: available - req.Amount, SavingsPrincipal: newPrincipal}, nil
}

func (c *Engine) handleSavingsWithdraw(req *request.SavingsWithdraw) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "savings_withdraw"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}
	if req.Amount <= 0 {
		return nil, nil, nil, fault.New(fault.KindValidation, op, "amount must be positive, got %d", req.Amount)
	}

	principal, interest, err := c.pendingSavingsInterest(req.Identity, req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	afterAccrual, err := money.CheckedAdd(principal, interest)
	if err != nil {
		return nil, nil, nil, err
	}
	if afterAccrual < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"savings %d < requested %d", afterAccrual, req.Amount)
	}

	available := c.tracker.GetAvailable(req.Identity)
	newBalance, err := money.CheckedAdd(available, req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateSavingsWithdraw(req.Identity, req.Amount, interest, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.savings.Touch(req.Identity, req.Timestamp)

	return batch, records, &Result{Balance: newBalance, SavingsPrincipal: afterAccrual - req.Amount}, nil
}

func (c *Engine) handleTakeLoan(req *request.TakeLoan) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "take_loan"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	newBalance, err := money.CheckedAdd(available, req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	loan, index, err := c.loans.Originate(req.Identity, req.Amount, req.DurationDays, req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateLoanDisbursal(req.Identity, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}

	return batch, records, &Result{
		Balance:   newBalance,
		LoanIndex: int64(index),
		TotalDue:  loan.TotalDue,
	}, nil
}

func (c *Engine) handleRepayLoan(req *request.RepayLoan) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "repay_loan"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	loan, err := c.loans.ValidateRepayment(req.Identity, int(req.LoanIndex), req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < requested %d", available, req.Amount)
	}

	batch, records, err := c.journalGen.GenerateLoanRepayment(req.Identity, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.loans.ApplyRepayment(loan, req.Amount)

	return batch, records, &Result{
		Balance:      available - req.Amount,
		LoanIndex:    req.LoanIndex,
		TotalDue:     loan.TotalDue,
		RemainingDue: loan.Remaining(),
	}, nil
}

func (c *Engine) handleCreateLoanOffer(req *request.CreateLoanOffer) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "create_loan_offer"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	if req.Amount > 0 && available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < offer amount %d", available, req.Amount)
	}

	offer, err := c.offers.Create(req.Identity, req.Amount, req.InterestRateBps, req.DurationDays, req.MinCollateralPercent)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateOfferEscrow(req.Identity, req.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}

	return batch, records, &Result{Balance: available - req.Amount, OfferID: offer.ID}, nil
}

func (c *Engine) handleAcceptLoanOffer(req *request.AcceptLoanOffer) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "accept_loan_offer"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	offer, collateral, totalDue, err := c.offers.ValidateAccept(req.Identity, req.OfferID)
	if err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < collateral {
		return nil, nil, nil, fault.New(fault.KindInsufficientCollateral, op,
			"available %d < required collateral %d", available, collateral)
	}
	newBalance, err := money.CheckedAdd(available-collateral, offer.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateOfferAccept(offer.Lender, req.Identity, offer.Amount, collateral, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.offers.ApplyAccept(offer, req.Identity, collateral, totalDue, req.Timestamp)

	return batch, records, &Result{
		Balance:  newBalance,
		TotalDue: totalDue,
		OfferID:  offer.ID,
	}, nil
}

func (c *Engine) handleCancelLoanOffer(req *request.CancelLoanOffer) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "cancel_loan_offer"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	offer, err := c.offers.ValidateCancel(req.Identity, req.OfferID)
	if err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	newBalance, err := money.CheckedAdd(available, offer.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	batch, records, err := c.journalGen.GenerateOfferEscrowRelease(req.Identity, offer.Amount, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.offers.ApplyCancel(offer)

	return batch, records, &Result{Balance: newBalance, OfferID: offer.ID}, nil
}

func (c *Engine) handleRepayLoanOffer(req *request.RepayLoanOffer) (*ledger.Batch, []ledger.TransactionRecord, *Result, error) {
	const op = "repay_loan_offer"

	if _, err := c.accounts.Require(op, req.Identity); err != nil {
		return nil, nil, nil, err
	}

	offer, err := c.offers.ValidateRepayment(req.Identity, req.OfferID, req.Amount)
	if err != nil {
		return nil, nil, nil, err
	}

	available := c.tracker.GetAvailable(req.Identity)
	if available < req.Amount {
		return nil, nil, nil, fault.New(fault.KindInsufficientFunds, op,
			"available %d < requested %d", available, req.Amount)
	}
	if _, err := money.CheckedAdd(c.tracker.GetAvailable(offer.Lender), req.Amount); err != nil {
		return nil, nil, nil, err
	}

	// Settlement releases the held collateral back to the borrower.
	// ValidateRepayment already rejected over-repayment, so the loan
	// settles exactly when amount == remaining.
	var release int64
	if req.Amount == offer.Remaining() {
		release = offer.CollateralHeld
	}

	batch, records, err := c.journalGen.GenerateOfferRepayment(req.Identity, offer.Lender, req.Amount, release, req.IdempotencyKey(), req.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	c.offers.ApplyRepayment(offer, req.Amount)

	return batch, records, &Result{
		Balance:      available - req.Amount + release,
		TotalDue:     offer.TotalDue,
		RemainingDue: offer.Remaining(),
		OfferID:      offer.ID,
	}, nil
}

// computeStateDigest builds canonical bytes over the accounts touched by
// the batch: sorted account paths with their post-apply balances.
func (c *Engine) computeStateDigest(batch *ledger.Batch) []byte {
	affected := make(map[ledger.AccountKey]bool)

	if batch != nil {
		for _, j := range batch.Journals {
			affected[j.DebitAccount] = true
			affected[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affected))
	for key := range affected {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, c.tracker.GetBalance(key))
	}
	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates balance invariants after batch application
func (c *Engine) postCheckInvariants(req request.Request) error {
	// No user sub-account may go negative for the identities a request touches
	if err := c.tracker.ValidateUserNonNegative(req.Caller()); err != nil {
		return fmt.Errorf("post-check user balances: %w", err)
	}
	if xfer, ok := req.(*request.Transfer); ok {
		if err := c.tracker.ValidateUserNonNegative(xfer.To); err != nil {
			return fmt.Errorf("post-check user balances: %w", err)
		}
	}

	// Periodic conservation check: every journal moves value between two
	// accounts, so the sum over all accounts must stay zero.
	if c.sequence > 0 && c.sequence%1000 == 0 {
		if err := c.validator.ValidateGlobalBalance(); err != nil {
			return fmt.Errorf("post-check conservation (at seq %d): %w", c.sequence, err)
		}
	}

	return nil
}

// --- Snapshot Restore & Startup Methods ---

// SnapshotState holds the serializable in-memory state for restore.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        map[ledger.AccountKey]int64
	Accounts        []*state.Account
	Savings         []*state.SavingsPosition
	Loans           map[string][]*state.Loan
	Offers          []*state.LoanOffer
	NextOfferID     uint64
	Nonces          map[string]int64
	History         []ledger.TransactionRecord
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the engine's in-memory state. On warm
// restart the caller loads the latest snapshot, restores, then replays
// the request log from Sequence+1.
func (c *Engine) RestoreFromSnapshot(snap *SnapshotState) {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.hasher.SetPrevHash(snap.StateHash)

	for key, balance := range snap.Balances {
		c.tracker.SetBalance(key, balance)
	}
	for _, acct := range snap.Accounts {
		c.accounts.Restore(acct)
	}
	for _, pos := range snap.Savings {
		c.savings.Restore(pos)
	}
	for borrower, loans := range snap.Loans {
		c.loans.Restore(borrower, loans)
	}
	c.offers.Restore(snap.Offers, snap.NextOfferID)
	c.nonces.Restore(snap.Nonces)
	c.history.Restore(snap.History)

	c.journalGen.SetSequence(c.sequence)
}

// ReplayRequest re-processes a stored request during startup recovery.
// Identical to ProcessRequest except the dedup lookup is bypassed and
// nothing is emitted; the replayed rows are already persisted.
func (c *Engine) ReplayRequest(req request.Request) error {
	c.replaying = true
	defer func() { c.replaying = false }()

	_, err := c.ProcessRequest(req)
	if err == nil && c.metrics != nil {
		c.metrics.ReplayRequests.Inc()
	}
	return err
}

// WarmLRU loads recent idempotency keys into the LRU cache so replayed
// requests skip the cold-path DB lookup.
func (c *Engine) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the next sequence number to assign.
func (c *Engine) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *Engine) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// VerifyConservation checks that the sum over every account is zero.
// Restored state that fails this check must not be trusted.
func (c *Engine) VerifyConservation() error {
	return c.validator.ValidateGlobalBalance()
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *Engine) CreateSnapshotState() *SnapshotState {
	loans := make(map[string][]*state.Loan)
	for borrower, ls := range c.loans.AllByBorrower() {
		loans[borrower] = ls
	}

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.tracker.Snapshot(),
		Accounts:        c.accounts.All(),
		Savings:         c.savings.All(),
		Loans:           loans,
		Offers:          c.offers.All(),
		NextOfferID:     c.offers.NextID(),
		Nonces:          c.nonces.Snapshot(),
		History:         c.history.All(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
