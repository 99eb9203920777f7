package ledger

import "fmt"

// BalanceTracker maintains in-memory account balances.
// Not thread-safe — only accessed from the single-writer core.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// SetBalance overwrites an account balance (snapshot restore only)
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	bt.balances[key] = balance
}

// === User balance queries ===

// GetAvailable returns the spendable balance for an identity
func (bt *BalanceTracker) GetAvailable(identity string) int64 {
	return bt.GetBalance(NewUserAccountKey(identity, SubTypeAvailable))
}

// GetSavings returns the savings principal for an identity
func (bt *BalanceTracker) GetSavings(identity string) int64 {
	return bt.GetBalance(NewUserAccountKey(identity, SubTypeSavings))
}

// GetEscrow returns the offer-reserved balance for an identity
func (bt *BalanceTracker) GetEscrow(identity string) int64 {
	return bt.GetBalance(NewUserAccountKey(identity, SubTypeEscrow))
}

// GetCollateral returns the collateral held for an identity
func (bt *BalanceTracker) GetCollateral(identity string) int64 {
	return bt.GetBalance(NewUserAccountKey(identity, SubTypeCollateral))
}

// === Invariant checks ===

// ValidateSufficientAvailable checks the identity can cover a debit
func (bt *BalanceTracker) ValidateSufficientAvailable(identity string, required int64) error {
	available := bt.GetAvailable(identity)
	if available < required {
		return fmt.Errorf("insufficient available balance: have=%d, need=%d", available, required)
	}
	return nil
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// ValidateUserNonNegative checks every user sub-account for an identity
func (bt *BalanceTracker) ValidateUserNonNegative(identity string) error {
	for _, sub := range []AccountSubType{SubTypeAvailable, SubTypeSavings, SubTypeEscrow, SubTypeCollateral} {
		if err := bt.ValidateNonNegative(NewUserAccountKey(identity, sub)); err != nil {
			return err
		}
	}
	return nil
}

// ComputeGlobalBalance sums all account balances (0 for a zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() int64 {
	var total int64
	for _, balance := range bt.balances {
		total += balance
	}
	return total
}

// ComputeUserHoldings sums every user-scoped account. Conservation: this
// equals external net inflow plus system-funded interest plus outstanding
// loan disbursals (the negated sum of system and external accounts).
func (bt *BalanceTracker) ComputeUserHoldings() int64 {
	var total int64
	for key, balance := range bt.balances {
		if key.Scope == AccountScopeUser {
			total += balance
		}
	}
	return total
}

// Snapshot returns a copy of all balances (for state hashing and persistence)
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	snapshot := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}
