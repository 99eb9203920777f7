package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeDeposit JournalType = iota
	JournalTypeWithdrawal
	JournalTypeTransfer
	JournalTypeSavingsDeposit
	JournalTypeSavingsWithdraw
	JournalTypeInterestAccrual
	JournalTypeLoanDisbursal
	JournalTypeLoanRepayment
	JournalTypeOfferEscrow
	JournalTypeOfferEscrowRelease
	JournalTypeCollateralHold
	JournalTypeCollateralRelease
	JournalTypeOfferFunding
	JournalTypeOfferRepayment
)

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups the entries of one operation
	RequestRef    string      // Idempotency key of the source request
	Sequence      int64       // Global operation sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	Amount        int64       // Smallest-unit amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Versioned input timestamp (epoch seconds)
}

// Batch represents the balanced set of journal entries for one operation
type Batch struct {
	BatchID    uuid.UUID
	RequestRef string
	Sequence   int64
	Timestamp  int64
	Journals   []Journal
}

// Validate ensures the batch is well-formed.
// Each journal entry is a balanced transfer by construction: a single
// positive amount moves from credit account to debit account, so
// Σ debits == Σ credits holds per-entry. Multi-leg operations (offer
// acceptance, final repayment with collateral release) use multiple
// entries under one batch_id, each individually balanced.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
