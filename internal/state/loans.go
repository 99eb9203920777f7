package state

import (
	"BankLedger/internal/fault"
	"BankLedger/internal/money"
)

// BankLoanRateBps is the bank loan APY in basis points (8.0%), simple
// interest over the full loan duration, fixed at origination.
const BankLoanRateBps = 800

// Loan is one bank-originated loan. TotalDue is computed once at
// origination and never recomputed; only RepaidAmount and Active mutate.
type Loan struct {
	Borrower        string
	Principal       int64
	InterestRateBps int64
	StartTime       int64 // versioned input timestamp
	DurationSeconds int64
	Active          bool
	RepaidAmount    int64
	TotalDue        int64
}

// Remaining returns the amount still owed
func (l *Loan) Remaining() int64 {
	return l.TotalDue - l.RepaidAmount
}

// LoanManager owns all bank loans, indexed per borrower.
// Not thread-safe — only accessed from the single-writer core.
type LoanManager struct {
	loans map[string][]*Loan
}

func NewLoanManager() *LoanManager {
	return &LoanManager{
		loans: make(map[string][]*Loan),
	}
}

// Originate creates an active loan. TotalDue = principal + simple interest
// for the full duration at BankLoanRateBps. Returns the loan and its index
// in the borrower's loan list.
func (lm *LoanManager) Originate(borrower string, amount, durationDays, startTime int64) (*Loan, int, error) {
	if amount <= 0 {
		return nil, 0, fault.New(fault.KindValidation, "takeLoan", "non-positive amount: %d", amount)
	}
	if durationDays <= 0 {
		return nil, 0, fault.New(fault.KindValidation, "takeLoan", "non-positive duration: %d days", durationDays)
	}

	durationSeconds, err := money.MulDiv(durationDays, 86_400, 1)
	if err != nil {
		return nil, 0, err
	}
	interest, err := money.Accrue(amount, BankLoanRateBps, durationSeconds)
	if err != nil {
		return nil, 0, err
	}
	totalDue, err := money.CheckedAdd(amount, interest)
	if err != nil {
		return nil, 0, err
	}

	loan := &Loan{
		Borrower:        borrower,
		Principal:       amount,
		InterestRateBps: BankLoanRateBps,
		StartTime:       startTime,
		DurationSeconds: durationSeconds,
		Active:          true,
		RepaidAmount:    0,
		TotalDue:        totalDue,
	}

	index := len(lm.loans[borrower])
	lm.loans[borrower] = append(lm.loans[borrower], loan)
	return loan, index, nil
}

// ValidateRepayment checks a repayment without mutating the loan.
// Amounts beyond the remaining due are rejected, never silently capped.
func (lm *LoanManager) ValidateRepayment(borrower string, loanIndex int, amount int64) (*Loan, error) {
	loans := lm.loans[borrower]
	if loanIndex < 0 || loanIndex >= len(loans) {
		return nil, fault.New(fault.KindNotFound, "repayLoan", "no loan %d for %s", loanIndex, borrower)
	}
	loan := loans[loanIndex]

	if !loan.Active {
		return nil, fault.New(fault.KindInvalidState, "repayLoan", "loan %d is not active", loanIndex)
	}
	if amount <= 0 {
		return nil, fault.New(fault.KindValidation, "repayLoan", "non-positive amount: %d", amount)
	}
	if amount > loan.Remaining() {
		return nil, fault.New(fault.KindOverRepayment, "repayLoan",
			"amount %d exceeds remaining due %d", amount, loan.Remaining())
	}
	return loan, nil
}

// ApplyRepayment mutates the loan after ValidateRepayment and the matching
// journal batch both passed. Closes the loan once fully repaid.
func (lm *LoanManager) ApplyRepayment(loan *Loan, amount int64) {
	loan.RepaidAmount += amount
	if loan.RepaidAmount >= loan.TotalDue {
		loan.Active = false
	}
}

// Get returns a borrower's loan by index
func (lm *LoanManager) Get(borrower string, loanIndex int) (*Loan, bool) {
	loans := lm.loans[borrower]
	if loanIndex < 0 || loanIndex >= len(loans) {
		return nil, false
	}
	return loans[loanIndex], true
}

// Count returns how many loans a borrower has taken (active or closed)
func (lm *LoanManager) Count(borrower string) int {
	return len(lm.loans[borrower])
}

// OutstandingPrincipal sums the principal of all active loans — the
// "disbursed but not yet repaid" line of the conservation check.
func (lm *LoanManager) OutstandingPrincipal() int64 {
	var total int64
	for _, loans := range lm.loans {
		for _, l := range loans {
			if l.Active {
				total += l.Principal
			}
		}
	}
	return total
}

// AllByBorrower returns the full loan map (snapshot persistence)
func (lm *LoanManager) AllByBorrower() map[string][]*Loan {
	out := make(map[string][]*Loan, len(lm.loans))
	for borrower, loans := range lm.loans {
		copied := make([]*Loan, len(loans))
		copy(copied, loans)
		out[borrower] = copied
	}
	return out
}

// Restore re-registers a borrower's loans from a snapshot
func (lm *LoanManager) Restore(borrower string, loans []*Loan) {
	lm.loans[borrower] = loans
}
