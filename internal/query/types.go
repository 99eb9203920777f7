package query

// BalanceResponse represents an account's balance state for API queries.
type BalanceResponse struct {
	Identity string `json:"identity"`

	// Ledger balances (from projection tables)
	Available  int64 `json:"available"`
	Savings    int64 `json:"savings"`
	Escrow     int64 `json:"escrow"`
	Collateral int64 `json:"collateral"`
	Total      int64 `json:"total"` // available + savings + escrow + collateral

	// Metadata
	AsOfSequence int64 `json:"as_of_sequence"` // last applied sequence
}

// SavingsResponse represents a savings position with interest derived
// at query time. PendingInterest is computed from the stored principal
// and last accrual timestamp; it becomes a ledger balance only when the
// next savings operation runs through the core.
type SavingsResponse struct {
	Identity        string `json:"identity"`
	Principal       int64  `json:"principal"`
	PendingInterest int64  `json:"pending_interest"`
	ProjectedTotal  int64  `json:"projected_total"` // principal + pending_interest
	LastAccrualTs   int64  `json:"last_accrual_ts"`
	RateBps         int64  `json:"rate_bps"`
	AsOfSequence    int64  `json:"as_of_sequence"`
}

// LoanResponse represents a bank loan for API queries.
type LoanResponse struct {
	Borrower        string `json:"borrower"`
	LoanIndex       int    `json:"loan_index"`
	Principal       int64  `json:"principal"`
	InterestRateBps int64  `json:"interest_rate_bps"`
	StartTime       int64  `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	TotalDue        int64  `json:"total_due"`
	RepaidAmount    int64  `json:"repaid_amount"`
	Remaining       int64  `json:"remaining"`
	Active          bool   `json:"active"`
	AsOfSequence    int64  `json:"as_of_sequence"`
}

// OfferResponse represents a peer-to-peer loan offer for API queries.
type OfferResponse struct {
	OfferID              int64  `json:"offer_id"`
	Lender               string `json:"lender"`
	Amount               int64  `json:"amount"`
	InterestRateBps      int64  `json:"interest_rate_bps"`
	DurationDays         int64  `json:"duration_days"`
	MinCollateralPercent int64  `json:"min_collateral_percent"`
	State                int32  `json:"state"` // 0 open, 1 matched, 2 cancelled
	Borrower             string `json:"borrower,omitempty"`
	CollateralHeld       int64  `json:"collateral_held"`
	MatchedAt            int64  `json:"matched_at,omitempty"`
	TotalDue             int64  `json:"total_due"`
	RepaidAmount         int64  `json:"repaid_amount"`
	AsOfSequence         int64  `json:"as_of_sequence"`
}

// TransactionResponse represents one entry of an account's transaction
// history. From and To carry identities or the sentinel counterparties
// "external" and "bank".
type TransactionResponse struct {
	Sequence   int64  `json:"sequence"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
	RecordType int32  `json:"record_type"`
	Timestamp  int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	GlobalImbalance int64   `json:"global_imbalance"`
	AsOfSequence    int64   `json:"as_of_sequence"`
}
