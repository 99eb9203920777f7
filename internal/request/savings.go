package request

import "github.com/google/uuid"

type SavingsDeposit struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *SavingsDeposit) IdempotencyKey() string { return r.RequestID.String() }
func (r *SavingsDeposit) RequestType() Type      { return TypeSavingsDeposit }
func (r *SavingsDeposit) Caller() string         { return r.Identity }
func (r *SavingsDeposit) Nonce() int64           { return r.RequestNonce }
func (r *SavingsDeposit) SubmittedAt() int64     { return r.Timestamp }

type SavingsWithdraw struct {
	RequestID    uuid.UUID `json:"request_id"`
	Identity     string    `json:"identity"`
	Amount       int64     `json:"amount"`
	RequestNonce int64     `json:"nonce"`
	Timestamp    int64     `json:"timestamp"`
}

func (r *SavingsWithdraw) IdempotencyKey() string { return r.RequestID.String() }
func (r *SavingsWithdraw) RequestType() Type      { return TypeSavingsWithdraw }
func (r *SavingsWithdraw) Caller() string         { return r.Identity }
func (r *SavingsWithdraw) Nonce() int64           { return r.RequestNonce }
func (r *SavingsWithdraw) SubmittedAt() int64     { return r.Timestamp }
