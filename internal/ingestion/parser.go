package ingestion

import (
	"encoding/json"
	"fmt"

	"BankLedger/internal/request"

	"github.com/google/uuid"
)

// ParseRawRequest converts a RawRequest (JSON bytes + request type string)
// into a typed request.Request. The ingestion shell validates and parses
// before anything reaches the core goroutine.
func ParseRawRequest(raw RawRequest) (request.Request, error) {
	switch raw.RequestType {
	case "CreateAccount":
		return parseCreateAccount(raw.Data)
	case "Deposit":
		return parseDeposit(raw.Data)
	case "Withdraw":
		return parseWithdraw(raw.Data)
	case "Transfer":
		return parseTransfer(raw.Data)
	case "SavingsDeposit":
		return parseSavingsDeposit(raw.Data)
	case "SavingsWithdraw":
		return parseSavingsWithdraw(raw.Data)
	case "TakeLoan":
		return parseTakeLoan(raw.Data)
	case "RepayLoan":
		return parseRepayLoan(raw.Data)
	case "CreateLoanOffer":
		return parseCreateLoanOffer(raw.Data)
	case "AcceptLoanOffer":
		return parseAcceptLoanOffer(raw.Data)
	case "CancelLoanOffer":
		return parseCancelLoanOffer(raw.Data)
	case "RepayLoanOffer":
		return parseRepayLoanOffer(raw.Data)
	default:
		return nil, fmt.Errorf("unknown request type: %s", raw.RequestType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers. Every request
// carries the common envelope fields: request_id, identity, nonce,
// timestamp (epoch seconds).

type requestHeaderJSON struct {
	RequestID string `json:"request_id"`
	Identity  string `json:"identity"`
	Nonce     int64  `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
}

func (h *requestHeaderJSON) parseID() (uuid.UUID, error) {
	id, err := uuid.Parse(h.RequestID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse request_id: %w", err)
	}
	return id, nil
}

func parseCreateAccount(data []byte) (*request.CreateAccount, error) {
	var j requestHeaderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateAccount: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.CreateAccount{
		RequestID:    id,
		Identity:     j.Identity,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type amountJSON struct {
	requestHeaderJSON
	Amount int64 `json:"amount"`
}

func parseDeposit(data []byte) (*request.Deposit, error) {
	var j amountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Deposit: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.Deposit{
		RequestID:    id,
		Identity:     j.Identity,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

func parseWithdraw(data []byte) (*request.Withdraw, error) {
	var j amountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdraw: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.Withdraw{
		RequestID:    id,
		Identity:     j.Identity,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type transferJSON struct {
	requestHeaderJSON
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func parseTransfer(data []byte) (*request.Transfer, error) {
	var j transferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Transfer: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.Transfer{
		RequestID:    id,
		Identity:     j.Identity,
		To:           j.To,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

func parseSavingsDeposit(data []byte) (*request.SavingsDeposit, error) {
	var j amountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse SavingsDeposit: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.SavingsDeposit{
		RequestID:    id,
		Identity:     j.Identity,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

func parseSavingsWithdraw(data []byte) (*request.SavingsWithdraw, error) {
	var j amountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse SavingsWithdraw: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.SavingsWithdraw{
		RequestID:    id,
		Identity:     j.Identity,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type takeLoanJSON struct {
	requestHeaderJSON
	Amount       int64 `json:"amount"`
	DurationDays int64 `json:"duration_days"`
}

func parseTakeLoan(data []byte) (*request.TakeLoan, error) {
	var j takeLoanJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TakeLoan: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.TakeLoan{
		RequestID:    id,
		Identity:     j.Identity,
		Amount:       j.Amount,
		DurationDays: j.DurationDays,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type repayLoanJSON struct {
	requestHeaderJSON
	LoanIndex int64 `json:"loan_index"`
	Amount    int64 `json:"amount"`
}

func parseRepayLoan(data []byte) (*request.RepayLoan, error) {
	var j repayLoanJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RepayLoan: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.RepayLoan{
		RequestID:    id,
		Identity:     j.Identity,
		LoanIndex:    j.LoanIndex,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type createOfferJSON struct {
	requestHeaderJSON
	Amount               int64 `json:"amount"`
	InterestRateBps      int64 `json:"interest_rate_bps"`
	DurationDays         int64 `json:"duration_days"`
	MinCollateralPercent int64 `json:"min_collateral_percent"`
}

func parseCreateLoanOffer(data []byte) (*request.CreateLoanOffer, error) {
	var j createOfferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateLoanOffer: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.CreateLoanOffer{
		RequestID:            id,
		Identity:             j.Identity,
		Amount:               j.Amount,
		InterestRateBps:      j.InterestRateBps,
		DurationDays:         j.DurationDays,
		MinCollateralPercent: j.MinCollateralPercent,
		RequestNonce:         j.Nonce,
		Timestamp:            j.Timestamp,
	}, nil
}

type offerIDJSON struct {
	requestHeaderJSON
	OfferID uint64 `json:"offer_id"`
}

func parseAcceptLoanOffer(data []byte) (*request.AcceptLoanOffer, error) {
	var j offerIDJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AcceptLoanOffer: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.AcceptLoanOffer{
		RequestID:    id,
		Identity:     j.Identity,
		OfferID:      j.OfferID,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

func parseCancelLoanOffer(data []byte) (*request.CancelLoanOffer, error) {
	var j offerIDJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CancelLoanOffer: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.CancelLoanOffer{
		RequestID:    id,
		Identity:     j.Identity,
		OfferID:      j.OfferID,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}

type repayOfferJSON struct {
	requestHeaderJSON
	OfferID uint64 `json:"offer_id"`
	Amount  int64  `json:"amount"`
}

func parseRepayLoanOffer(data []byte) (*request.RepayLoanOffer, error) {
	var j repayOfferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RepayLoanOffer: %w", err)
	}
	id, err := j.parseID()
	if err != nil {
		return nil, err
	}
	return &request.RepayLoanOffer{
		RequestID:    id,
		Identity:     j.Identity,
		OfferID:      j.OfferID,
		Amount:       j.Amount,
		RequestNonce: j.Nonce,
		Timestamp:    j.Timestamp,
	}, nil
}
