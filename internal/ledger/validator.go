package ledger

import "fmt"

// InvariantValidator checks ledger invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies the batch is balanced and well-formed
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateUserNonNegative checks no user sub-account went negative for
// the identities touched by a batch.
func (v *InvariantValidator) ValidateUserNonNegative(batch *Batch) error {
	seen := make(map[string]bool, 2)
	for _, j := range batch.Journals {
		for _, key := range []AccountKey{j.DebitAccount, j.CreditAccount} {
			if key.Scope != AccountScopeUser || seen[key.Identity] {
				continue
			}
			seen[key.Identity] = true
			if err := v.tracker.ValidateUserNonNegative(key.Identity); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateGlobalBalance verifies the ledger is zero-sum. Every movement is
// double-entry, so user holdings are always matched by external inflow and
// the bank's treasury/interest lines — the conservation law in one check.
func (v *InvariantValidator) ValidateGlobalBalance() error {
	total := v.tracker.ComputeGlobalBalance()
	if total != 0 {
		return fmt.Errorf("global balance is non-zero: %d", total)
	}
	return nil
}
