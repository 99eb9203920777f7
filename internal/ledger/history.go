package ledger

// RecordType tags a completed value movement in the transaction history
type RecordType int32

const (
	RecordTypeDeposit RecordType = iota
	RecordTypeWithdraw
	RecordTypeTransfer
	RecordTypeSavingsDeposit
	RecordTypeSavingsWithdraw
	RecordTypeInterestAccrued
	RecordTypeLoanDisbursed
	RecordTypeLoanRepayment
	RecordTypeP2POfferCreated
	RecordTypeP2POfferCancelled
	RecordTypeP2PLoanFunded
	RecordTypeP2PLoanRepayment
	RecordTypeCollateralReleased
)

func (rt RecordType) String() string {
	switch rt {
	case RecordTypeDeposit:
		return "Deposit"
	case RecordTypeWithdraw:
		return "Withdraw"
	case RecordTypeTransfer:
		return "Transfer"
	case RecordTypeSavingsDeposit:
		return "SavingsDeposit"
	case RecordTypeSavingsWithdraw:
		return "SavingsWithdraw"
	case RecordTypeInterestAccrued:
		return "InterestAccrued"
	case RecordTypeLoanDisbursed:
		return "LoanDisbursed"
	case RecordTypeLoanRepayment:
		return "LoanRepayment"
	case RecordTypeP2POfferCreated:
		return "P2POfferCreated"
	case RecordTypeP2POfferCancelled:
		return "P2POfferCancelled"
	case RecordTypeP2PLoanFunded:
		return "P2PLoanFunded"
	case RecordTypeP2PLoanRepayment:
		return "P2PLoanRepayment"
	case RecordTypeCollateralReleased:
		return "CollateralReleased"
	default:
		return "Unknown"
	}
}

// Sentinel endpoints for movements that cross the system boundary.
const (
	CounterpartyExternal = "external"
	CounterpartyBank     = "bank"
)

// TransactionRecord is one immutable entry in the transaction history.
// Ordering is append order; records are never mutated or removed.
type TransactionRecord struct {
	Sequence  int64      // position in the global history
	From      string     // sending identity, or a sentinel counterparty
	To        string     // receiving identity, or a sentinel counterparty
	Amount    int64      // smallest-unit amount, always positive
	Timestamp int64      // versioned input timestamp (epoch seconds)
	Type      RecordType // movement tag
}

// History is the append-only, per-identity indexed transaction log.
// Not thread-safe — only accessed from the single-writer core.
type History struct {
	records []TransactionRecord
	byIdent map[string][]int // identity -> record indexes, append order
}

func NewHistory() *History {
	return &History{
		byIdent: make(map[string][]int),
	}
}

// Append adds records to the log, assigning each its history sequence.
// The caller's records are stamped in place, so the slice passed in can
// be forwarded downstream with the assigned sequences. Sentinel
// counterparties are not indexed.
func (h *History) Append(records ...TransactionRecord) {
	for i := range records {
		idx := len(h.records)
		records[i].Sequence = int64(idx)
		h.records = append(h.records, records[i])

		r := records[i]
		if r.From != CounterpartyExternal && r.From != CounterpartyBank {
			h.byIdent[r.From] = append(h.byIdent[r.From], idx)
		}
		if r.To != r.From && r.To != CounterpartyExternal && r.To != CounterpartyBank {
			h.byIdent[r.To] = append(h.byIdent[r.To], idx)
		}
	}
}

// Len returns the total number of records
func (h *History) Len() int {
	return len(h.records)
}

// ForIdentity returns the identity's records in append order.
// The returned slice is a copy; mutating it does not touch the log.
func (h *History) ForIdentity(identity string) []TransactionRecord {
	idxs := h.byIdent[identity]
	out := make([]TransactionRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, h.records[i])
	}
	return out
}

// All returns a copy of the full log in append order.
func (h *History) All() []TransactionRecord {
	out := make([]TransactionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Restore rebuilds the log from persisted records (snapshot recovery).
func (h *History) Restore(records []TransactionRecord) {
	h.records = h.records[:0]
	h.byIdent = make(map[string][]int)
	h.Append(records...)
}
