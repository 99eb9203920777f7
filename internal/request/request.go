package request

// Type discriminator for operation requests
type Type int32

const (
	TypeUnknown Type = iota
	TypeCreateAccount
	TypeDeposit
	TypeWithdraw
	TypeTransfer
	TypeSavingsDeposit
	TypeSavingsWithdraw
	TypeTakeLoan
	TypeRepayLoan
	TypeCreateLoanOffer
	TypeAcceptLoanOffer
	TypeCancelLoanOffer
	TypeRepayLoanOffer
)

// Request is the interface all operation requests implement. The set of
// implementations is closed: the core dispatches with an exhaustive type
// switch, so adding an operation is a compile-time-checked change.
type Request interface {
	// IdempotencyKey returns the stable dedup key (the request UUID)
	IdempotencyKey() string

	// RequestType returns the discriminator
	RequestType() Type

	// Caller returns the already-authenticated identity submitting the request
	Caller() string

	// Nonce returns the caller's monotonic replay-protection counter
	Nonce() int64

	// SubmittedAt returns the versioned input timestamp (epoch seconds).
	// The core never reads a wall clock; all time flows in here.
	SubmittedAt() int64
}

func (t Type) String() string {
	switch t {
	case TypeCreateAccount:
		return "CreateAccount"
	case TypeDeposit:
		return "Deposit"
	case TypeWithdraw:
		return "Withdraw"
	case TypeTransfer:
		return "Transfer"
	case TypeSavingsDeposit:
		return "SavingsDeposit"
	case TypeSavingsWithdraw:
		return "SavingsWithdraw"
	case TypeTakeLoan:
		return "TakeLoan"
	case TypeRepayLoan:
		return "RepayLoan"
	case TypeCreateLoanOffer:
		return "CreateLoanOffer"
	case TypeAcceptLoanOffer:
		return "AcceptLoanOffer"
	case TypeCancelLoanOffer:
		return "CancelLoanOffer"
	case TypeRepayLoanOffer:
		return "RepayLoanOffer"
	default:
		return "Unknown"
	}
}
