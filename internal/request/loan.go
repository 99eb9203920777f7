package request

import "github.com/google/uuid"

type TakeLoan struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"`
	DurationDays int64     `json:"duration_days"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *TakeLoan) IdempotencyKey() string { return r.RequestID.String() }
func (r *TakeLoan) RequestType() Type      { return TypeTakeLoan }
func (r *TakeLoan) Caller() string         { return r.Identity }
func (r *TakeLoan) Nonce() int64           { return r.RequestNonce }
func (r *TakeLoan) SubmittedAt() int64     { return r.Timestamp }

type RepayLoan struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	LoanIndex    int64     `json:"loan_index"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *RepayLoan) IdempotencyKey() string { return r.RequestID.String() }
func (r *RepayLoan) RequestType() Type      { return TypeRepayLoan }
func (r *RepayLoan) Caller() string         { return r.Identity }
func (r *RepayLoan) Nonce() int64           { return r.RequestNonce }
func (r *RepayLoan) SubmittedAt() int64     { return r.Timestamp }
