package request

import "github.com/google/uuid"

type CreateLoanOffer struct {
	RequestID            uuid.UUID `json:"request_id"`
	Identity             string    `json:"identity"` // lender
	Amount               int64     `json:"amount"`
	InterestRateBps      int64     `json:"interest_rate_bps"`
	DurationDays         int64     `json:"duration_days"`
	MinCollateralPercent int64     `json:"min_collateral_percent"`
	RequestNonce         int64     `json:"nonce"`
	Timestamp            int64     `json:"timestamp"`
}

func (r *CreateLoanOffer) IdempotencyKey() string { return r.RequestID.String() }
func (r *CreateLoanOffer) RequestType() Type      { return TypeCreateLoanOffer }
func (r *CreateLoanOffer) Caller() string         { return r.Identity }
func (r *CreateLoanOffer) Nonce() int64           { return r.RequestNonce }
func (r *CreateLoanOffer) SubmittedAt() int64     { return r.Timestamp }

type AcceptLoanOffer struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"` // borrower
	OfferID      uint64    `json:"offer_id"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *AcceptLoanOffer) IdempotencyKey() string { return r.RequestID.String() }
func (r *AcceptLoanOffer) RequestType() Type      { return TypeAcceptLoanOffer }
func (r *AcceptLoanOffer) Caller() string         { return r.Identity }
func (r *AcceptLoanOffer) Nonce() int64           { return r.RequestNonce }
func (r *AcceptLoanOffer) SubmittedAt() int64     { return r.Timestamp }

type CancelLoanOffer struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"` // lender
	OfferID      uint64    `json:"offer_id"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *CancelLoanOffer) IdempotencyKey() string { return r.RequestID.String() }
func (r *CancelLoanOffer) RequestType() Type      { return TypeCancelLoanOffer }
func (r *CancelLoanOffer) Caller() string         { return r.Identity }
func (r *CancelLoanOffer) Nonce() int64           { return r.RequestNonce }
func (r *CancelLoanOffer) SubmittedAt() int64     { return r.Timestamp }

type RepayLoanOffer struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"` // borrower
	OfferID      uint64    `json:"offer_id"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *RepayLoanOffer) IdempotencyKey() string { return r.RequestID.String() }
func (r *RepayLoanOffer) RequestType() Type      { return TypeRepayLoanOffer }
func (r *RepayLoanOffer) Caller() string         { return r.Identity }
func (r *RepayLoanOffer) Nonce() int64           { return r.RequestNonce }
func (r *RepayLoanOffer) SubmittedAt() int64     { return r.Timestamp }
