package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches and the matching
// transaction history records for each operation. Pre-checks here are the
// last line of defence — the core validates before calling in, so a
// failure from this package means a handler bug, not a user error.
type JournalGenerator struct {
	sequence int64
	tracker  *BalanceTracker
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence: startSequence,
		tracker:  tracker,
	}
}

// SetSequence pins the generator to the caller's sequence. The core calls
// this before every dispatch so batches stamp the envelope's number even
// after journal-less requests.
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func (jg *JournalGenerator) newBatch(requestRef string, timestamp int64, capacity int) *Batch {
	return &Batch{
		BatchID:    uuid.New(),
		RequestRef: requestRef,
		Sequence:   jg.sequence,
		Timestamp:  timestamp,
		Journals:   make([]Journal, 0, capacity),
	}
}

func (jg *JournalGenerator) addJournal(b *Batch, debit, credit AccountKey, amount int64, jt JournalType) {
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		RequestRef:    b.RequestRef,
		Sequence:      b.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     b.Timestamp,
	})
}

// GenerateDeposit moves funds: external:deposits → user:available
func (jg *JournalGenerator) GenerateDeposit(identity string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(identity, SubTypeAvailable),
		NewExternalAccountKey(SubTypeExternalDeposits),
		amount, JournalTypeDeposit)
	jg.sequence++

	records := []TransactionRecord{
		{From: CounterpartyExternal, To: identity, Amount: amount, Timestamp: timestamp, Type: RecordTypeDeposit},
	}
	return batch, records, nil
}

// GenerateWithdraw moves funds: user:available → external:withdrawals
func (jg *JournalGenerator) GenerateWithdraw(identity string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(identity, amount); err != nil {
		return nil, nil, fmt.Errorf("withdraw pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewExternalAccountKey(SubTypeExternalWithdrawals),
		NewUserAccountKey(identity, SubTypeAvailable),
		amount, JournalTypeWithdrawal)
	jg.sequence++

	records := []TransactionRecord{
		{From: identity, To: CounterpartyExternal, Amount: amount, Timestamp: timestamp, Type: RecordTypeWithdraw},
	}
	return batch, records, nil
}

// GenerateTransfer moves funds: from:available → to:available
func (jg *JournalGenerator) GenerateTransfer(from, to string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(from, amount); err != nil {
		return nil, nil, fmt.Errorf("transfer pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(to, SubTypeAvailable),
		NewUserAccountKey(from, SubTypeAvailable),
		amount, JournalTypeTransfer)
	jg.sequence++

	records := []TransactionRecord{
		{From: from, To: to, Amount: amount, Timestamp: timestamp, Type: RecordTypeTransfer},
	}
	return batch, records, nil
}

// GenerateSavingsDeposit moves funds: user:available → user:savings.
// accruedInterest > 0 adds the bank-funded accrual leg first:
// system:interest → user:savings.
func (jg *JournalGenerator) GenerateSavingsDeposit(identity string, amount, accruedInterest int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(identity, amount); err != nil {
		return nil, nil, fmt.Errorf("savings deposit pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 2)
	records := make([]TransactionRecord, 0, 2)

	if accruedInterest > 0 {
		jg.addJournal(batch,
			NewUserAccountKey(identity, SubTypeSavings),
			NewSystemAccountKey(SubTypeSystemInterest),
			accruedInterest, JournalTypeInterestAccrual)
		records = append(records, TransactionRecord{
			From: CounterpartyBank, To: identity, Amount: accruedInterest, Timestamp: timestamp, Type: RecordTypeInterestAccrued,
		})
	}

	jg.addJournal(batch,
		NewUserAccountKey(identity, SubTypeSavings),
		NewUserAccountKey(identity, SubTypeAvailable),
		amount, JournalTypeSavingsDeposit)
	records = append(records, TransactionRecord{
		From: identity, To: identity, Amount: amount, Timestamp: timestamp, Type: RecordTypeSavingsDeposit,
	})

	jg.sequence++
	return batch, records, nil
}

// GenerateSavingsWithdraw moves funds: user:savings → user:available,
// with the same optional accrual leg as GenerateSavingsDeposit.
// The sufficiency pre-check runs against principal AFTER accrual.
func (jg *JournalGenerator) GenerateSavingsWithdraw(identity string, amount, accruedInterest int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if jg.tracker.GetSavings(identity)+accruedInterest < amount {
		return nil, nil, fmt.Errorf("savings withdraw pre-check failed: have=%d, need=%d",
			jg.tracker.GetSavings(identity)+accruedInterest, amount)
	}

	batch := jg.newBatch(requestRef, timestamp, 2)
	records := make([]TransactionRecord, 0, 2)

	if accruedInterest > 0 {
		jg.addJournal(batch,
			NewUserAccountKey(identity, SubTypeSavings),
			NewSystemAccountKey(SubTypeSystemInterest),
			accruedInterest, JournalTypeInterestAccrual)
		records = append(records, TransactionRecord{
			From: CounterpartyBank, To: identity, Amount: accruedInterest, Timestamp: timestamp, Type: RecordTypeInterestAccrued,
		})
	}

	jg.addJournal(batch,
		NewUserAccountKey(identity, SubTypeAvailable),
		NewUserAccountKey(identity, SubTypeSavings),
		amount, JournalTypeSavingsWithdraw)
	records = append(records, TransactionRecord{
		From: identity, To: identity, Amount: amount, Timestamp: timestamp, Type: RecordTypeSavingsWithdraw,
	})

	jg.sequence++
	return batch, records, nil
}

// GenerateInterestAccrual folds pending interest alone (no principal move):
// system:interest → user:savings.
func (jg *JournalGenerator) GenerateInterestAccrual(identity string, interest int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(identity, SubTypeSavings),
		NewSystemAccountKey(SubTypeSystemInterest),
		interest, JournalTypeInterestAccrual)
	jg.sequence++

	records := []TransactionRecord{
		{From: CounterpartyBank, To: identity, Amount: interest, Timestamp: timestamp, Type: RecordTypeInterestAccrued},
	}
	return batch, records, nil
}

// GenerateLoanDisbursal moves funds: system:treasury → user:available
func (jg *JournalGenerator) GenerateLoanDisbursal(identity string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(identity, SubTypeAvailable),
		NewSystemAccountKey(SubTypeSystemTreasury),
		amount, JournalTypeLoanDisbursal)
	jg.sequence++

	records := []TransactionRecord{
		{From: CounterpartyBank, To: identity, Amount: amount, Timestamp: timestamp, Type: RecordTypeLoanDisbursed},
	}
	return batch, records, nil
}

// GenerateLoanRepayment moves funds: user:available → system:treasury
func (jg *JournalGenerator) GenerateLoanRepayment(identity string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(identity, amount); err != nil {
		return nil, nil, fmt.Errorf("loan repayment pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewSystemAccountKey(SubTypeSystemTreasury),
		NewUserAccountKey(identity, SubTypeAvailable),
		amount, JournalTypeLoanRepayment)
	jg.sequence++

	records := []TransactionRecord{
		{From: identity, To: CounterpartyBank, Amount: amount, Timestamp: timestamp, Type: RecordTypeLoanRepayment},
	}
	return batch, records, nil
}

// GenerateOfferEscrow reserves lender funds: lender:available → lender:escrow
func (jg *JournalGenerator) GenerateOfferEscrow(lender string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(lender, amount); err != nil {
		return nil, nil, fmt.Errorf("offer escrow pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(lender, SubTypeEscrow),
		NewUserAccountKey(lender, SubTypeAvailable),
		amount, JournalTypeOfferEscrow)
	jg.sequence++

	records := []TransactionRecord{
		{From: lender, To: lender, Amount: amount, Timestamp: timestamp, Type: RecordTypeP2POfferCreated},
	}
	return batch, records, nil
}

// GenerateOfferEscrowRelease returns escrow: lender:escrow → lender:available
func (jg *JournalGenerator) GenerateOfferEscrowRelease(lender string, amount int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	batch := jg.newBatch(requestRef, timestamp, 1)
	jg.addJournal(batch,
		NewUserAccountKey(lender, SubTypeAvailable),
		NewUserAccountKey(lender, SubTypeEscrow),
		amount, JournalTypeOfferEscrowRelease)
	jg.sequence++

	records := []TransactionRecord{
		{From: lender, To: lender, Amount: amount, Timestamp: timestamp, Type: RecordTypeP2POfferCancelled},
	}
	return batch, records, nil
}

// GenerateOfferAccept funds a matched offer in two legs:
//  1. collateral hold: borrower:available → borrower:collateral
//  2. funding: lender:escrow → borrower:available
func (jg *JournalGenerator) GenerateOfferAccept(lender, borrower string, amount, collateral int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(borrower, collateral); err != nil {
		return nil, nil, fmt.Errorf("offer accept pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 2)
	jg.addJournal(batch,
		NewUserAccountKey(borrower, SubTypeCollateral),
		NewUserAccountKey(borrower, SubTypeAvailable),
		collateral, JournalTypeCollateralHold)
	jg.addJournal(batch,
		NewUserAccountKey(borrower, SubTypeAvailable),
		NewUserAccountKey(lender, SubTypeEscrow),
		amount, JournalTypeOfferFunding)
	jg.sequence++

	records := []TransactionRecord{
		{From: lender, To: borrower, Amount: amount, Timestamp: timestamp, Type: RecordTypeP2PLoanFunded},
	}
	return batch, records, nil
}

// GenerateOfferRepayment repays the lender: borrower:available → lender:available.
// releaseCollateral > 0 adds the final leg returning held collateral:
// borrower:collateral → borrower:available.
func (jg *JournalGenerator) GenerateOfferRepayment(borrower, lender string, amount, releaseCollateral int64, requestRef string, timestamp int64) (*Batch, []TransactionRecord, error) {
	if err := jg.tracker.ValidateSufficientAvailable(borrower, amount); err != nil {
		return nil, nil, fmt.Errorf("offer repayment pre-check failed: %w", err)
	}

	batch := jg.newBatch(requestRef, timestamp, 2)
	records := make([]TransactionRecord, 0, 2)

	jg.addJournal(batch,
		NewUserAccountKey(lender, SubTypeAvailable),
		NewUserAccountKey(borrower, SubTypeAvailable),
		amount, JournalTypeOfferRepayment)
	records = append(records, TransactionRecord{
		From: borrower, To: lender, Amount: amount, Timestamp: timestamp, Type: RecordTypeP2PLoanRepayment,
	})

	if releaseCollateral > 0 {
		jg.addJournal(batch,
			NewUserAccountKey(borrower, SubTypeAvailable),
			NewUserAccountKey(borrower, SubTypeCollateral),
			releaseCollateral, JournalTypeCollateralRelease)
		records = append(records, TransactionRecord{
			From: borrower, To: borrower, Amount: releaseCollateral, Timestamp: timestamp, Type: RecordTypeCollateralReleased,
		})
	}

	jg.sequence++
	return batch, records, nil
}
