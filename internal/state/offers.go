package state

import (
	"sort"

	"BankLedger/internal/fault"
	"BankLedger/internal/money"
)

// OfferState is the loan offer lifecycle. Matched and Cancelled are
// terminal: no transition leaves them.
type OfferState int32

const (
	OfferStateOpen OfferState = iota
	OfferStateMatched
	OfferStateCancelled
)

func (s OfferState) String() string {
	switch s {
	case OfferStateOpen:
		return "open"
	case OfferStateMatched:
		return "matched"
	case OfferStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LoanOffer is one lender-posted offer. The id space is append-only and
// never reused, even after cancellation.
type LoanOffer struct {
	ID                   uint64
	Lender               string
	Amount               int64
	InterestRateBps      int64
	DurationDays         int64
	MinCollateralPercent int64
	State                OfferState
	Borrower             string // set when matched

	// Repayment tracking on the matched offer, mirroring bank loan
	// semantics keyed by offer id instead of loan index.
	CollateralHeld int64
	MatchedAt      int64
	TotalDue       int64
	RepaidAmount   int64
}

// Active reports whether the offer is still open for matching
func (o *LoanOffer) Active() bool {
	return o.State == OfferStateOpen
}

// Remaining returns the amount a matched borrower still owes
func (o *LoanOffer) Remaining() int64 {
	return o.TotalDue - o.RepaidAmount
}

// OfferManager owns the P2P loan offer book.
// Not thread-safe — only accessed from the single-writer core.
type OfferManager struct {
	offers map[uint64]*LoanOffer
	nextID uint64
}

func NewOfferManager() *OfferManager {
	return &OfferManager{
		offers: make(map[uint64]*LoanOffer),
	}
}

// Create posts a new open offer and allocates the next monotonic id.
// Escrow of the lender's funds is journaled by the caller before this runs.
func (om *OfferManager) Create(lender string, amount, rateBps, durationDays, minCollateralPercent int64) (*LoanOffer, error) {
	if amount <= 0 {
		return nil, fault.New(fault.KindValidation, "createLoanOffer", "non-positive amount: %d", amount)
	}
	if rateBps < 0 {
		return nil, fault.New(fault.KindValidation, "createLoanOffer", "negative rate: %d bps", rateBps)
	}
	if durationDays <= 0 {
		return nil, fault.New(fault.KindValidation, "createLoanOffer", "non-positive duration: %d days", durationDays)
	}
	if minCollateralPercent <= 0 || minCollateralPercent > 100 {
		return nil, fault.New(fault.KindValidation, "createLoanOffer",
			"collateral percent out of range: %d", minCollateralPercent)
	}

	offer := &LoanOffer{
		ID:                   om.nextID,
		Lender:               lender,
		Amount:               amount,
		InterestRateBps:      rateBps,
		DurationDays:         durationDays,
		MinCollateralPercent: minCollateralPercent,
		State:                OfferStateOpen,
	}
	om.offers[offer.ID] = offer
	om.nextID++
	return offer, nil
}

// ValidateAccept checks a match without mutating the offer. Returns the
// offer, the required collateral, and the total due fixed at match time
// (offer amount plus simple interest at the offered rate for the full
// duration), so ApplyAccept cannot fail after the journal batch is built.
func (om *OfferManager) ValidateAccept(borrower string, offerID uint64) (offer *LoanOffer, collateral, totalDue int64, err error) {
	offer, ok := om.offers[offerID]
	if !ok {
		return nil, 0, 0, fault.New(fault.KindNotFound, "acceptLoanOffer", "no offer %d", offerID)
	}
	if offer.State != OfferStateOpen {
		return nil, 0, 0, fault.New(fault.KindInvalidState, "acceptLoanOffer",
			"offer %d is %s, not open", offerID, offer.State)
	}
	if borrower == offer.Lender {
		return nil, 0, 0, fault.New(fault.KindValidation, "acceptLoanOffer",
			"lender cannot accept own offer %d", offerID)
	}

	collateral, err = money.CollateralRequired(offer.Amount, offer.MinCollateralPercent)
	if err != nil {
		return nil, 0, 0, err
	}

	durationSeconds, err := money.MulDiv(offer.DurationDays, 86_400, 1)
	if err != nil {
		return nil, 0, 0, err
	}
	interest, err := money.Accrue(offer.Amount, offer.InterestRateBps, durationSeconds)
	if err != nil {
		return nil, 0, 0, err
	}
	totalDue, err = money.CheckedAdd(offer.Amount, interest)
	if err != nil {
		return nil, 0, 0, err
	}
	return offer, collateral, totalDue, nil
}

// ApplyAccept transitions Open → Matched after ValidateAccept and the
// matching journal batch both passed.
func (om *OfferManager) ApplyAccept(offer *LoanOffer, borrower string, collateral, totalDue, matchedAt int64) {
	offer.State = OfferStateMatched
	offer.Borrower = borrower
	offer.CollateralHeld = collateral
	offer.MatchedAt = matchedAt
	offer.TotalDue = totalDue
}

// ValidateCancel checks a cancellation without mutating the offer
func (om *OfferManager) ValidateCancel(lender string, offerID uint64) (*LoanOffer, error) {
	offer, ok := om.offers[offerID]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "cancelLoanOffer", "no offer %d", offerID)
	}
	if offer.State != OfferStateOpen {
		return nil, fault.New(fault.KindInvalidState, "cancelLoanOffer",
			"offer %d is %s, not open", offerID, offer.State)
	}
	if offer.Lender != lender {
		return nil, fault.New(fault.KindValidation, "cancelLoanOffer",
			"caller is not the lender of offer %d", offerID)
	}
	return offer, nil
}

// ApplyCancel transitions Open → Cancelled
func (om *OfferManager) ApplyCancel(offer *LoanOffer) {
	offer.State = OfferStateCancelled
}

// ValidateRepayment checks a matched-offer repayment without mutation,
// mirroring bank loan repayment rules keyed by offer id.
func (om *OfferManager) ValidateRepayment(borrower string, offerID uint64, amount int64) (*LoanOffer, error) {
	offer, ok := om.offers[offerID]
	if !ok {
		return nil, fault.New(fault.KindNotFound, "repayLoanOffer", "no offer %d", offerID)
	}
	if offer.State != OfferStateMatched {
		return nil, fault.New(fault.KindInvalidState, "repayLoanOffer",
			"offer %d is %s, not matched", offerID, offer.State)
	}
	if offer.RepaidAmount >= offer.TotalDue {
		return nil, fault.New(fault.KindInvalidState, "repayLoanOffer", "offer %d already settled", offerID)
	}
	if offer.Borrower != borrower {
		return nil, fault.New(fault.KindValidation, "repayLoanOffer",
			"caller is not the borrower of offer %d", offerID)
	}
	if amount <= 0 {
		return nil, fault.New(fault.KindValidation, "repayLoanOffer", "non-positive amount: %d", amount)
	}
	if amount > offer.Remaining() {
		return nil, fault.New(fault.KindOverRepayment, "repayLoanOffer",
			"amount %d exceeds remaining due %d", amount, offer.Remaining())
	}
	return offer, nil
}

// ApplyRepayment mutates the matched offer. Returns the collateral to
// release: the full held amount once the offer settles, zero before.
func (om *OfferManager) ApplyRepayment(offer *LoanOffer, amount int64) int64 {
	offer.RepaidAmount += amount
	if offer.RepaidAmount >= offer.TotalDue {
		release := offer.CollateralHeld
		offer.CollateralHeld = 0
		return release
	}
	return 0
}

// Get returns an offer by id
func (om *OfferManager) Get(offerID uint64) (*LoanOffer, bool) {
	offer, ok := om.offers[offerID]
	return offer, ok
}

// ActiveOffers returns all open offers in ascending id order
func (om *OfferManager) ActiveOffers() []*LoanOffer {
	out := make([]*LoanOffer, 0, len(om.offers))
	for _, o := range om.offers {
		if o.Active() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextID returns the next offer id to be allocated
func (om *OfferManager) NextID() uint64 {
	return om.nextID
}

// All returns every offer (snapshot persistence)
func (om *OfferManager) All() []*LoanOffer {
	out := make([]*LoanOffer, 0, len(om.offers))
	for _, o := range om.offers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore re-registers offers and the id counter from a snapshot
func (om *OfferManager) Restore(offers []*LoanOffer, nextID uint64) {
	for _, o := range offers {
		om.offers[o.ID] = o
	}
	if nextID > om.nextID {
		om.nextID = nextID
	}
}
