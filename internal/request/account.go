package request

import "github.com/google/uuid"

// JSON tags match the wire format; the same encoding is stored in
// oplog.requests and re-parsed on replay.

type CreateAccount struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *CreateAccount) IdempotencyKey() string { return r.RequestID.String() }
func (r *CreateAccount) RequestType() Type      { return TypeCreateAccount }
func (r *CreateAccount) Caller() string         { return r.Identity }
func (r *CreateAccount) Nonce() int64           { return r.RequestNonce }
func (r *CreateAccount) SubmittedAt() int64     { return r.Timestamp }

type Deposit struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"` // smallest unit
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *Deposit) IdempotencyKey() string { return r.RequestID.String() }
func (r *Deposit) RequestType() Type      { return TypeDeposit }
func (r *Deposit) Caller() string         { return r.Identity }
func (r *Deposit) Nonce() int64           { return r.RequestNonce }
func (r *Deposit) SubmittedAt() int64     { return r.Timestamp }

type Withdraw struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *Withdraw) IdempotencyKey() string { return r.RequestID.String() }
func (r *Withdraw) RequestType() Type      { return TypeWithdraw }
func (r *Withdraw) Caller() string         { return r.Identity }
func (r *Withdraw) Nonce() int64           { return r.RequestNonce }
func (r *Withdraw) SubmittedAt() int64     { return r.Timestamp }

type Transfer struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"` // sender
	To           string    `json:"to"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *Transfer) IdempotencyKey() string { return r.RequestID.String() }
func (r *Transfer) RequestType() Type      { return TypeTransfer }
func (r *Transfer) Caller() string         { return r.Identity }
func (r *Transfer) Nonce() int64           { return r.RequestNonce }
func (r *Transfer) SubmittedAt() int64     { return r.Timestamp }
