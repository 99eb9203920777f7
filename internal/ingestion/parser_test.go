package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"BankLedger/internal/ingestion"
	"BankLedger/internal/request"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	return id
}

func rawFromJSON(t *testing.T, requestType string, v interface{}) ingestion.RawRequest {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawRequest{
		Subject:     "test",
		RequestType: requestType,
		Data:        data,
		Received:    time.Now(),
		AckFunc:     func() {},
		NakFunc:     func() {},
	}
}

func TestParseCreateAccount(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "alice",
		"nonce":      int64(0),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "CreateAccount", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ca, ok := req.(*request.CreateAccount)
	if !ok {
		t.Fatalf("expected *request.CreateAccount, got %T", req)
	}
	if ca.Identity != "alice" {
		t.Errorf("identity: got %s, want alice", ca.Identity)
	}
	if ca.RequestID.String() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("request_id: got %s", ca.RequestID)
	}
	if ca.RequestNonce != 0 {
		t.Errorf("nonce: got %d, want 0", ca.RequestNonce)
	}
	if ca.Timestamp != 1700000000 {
		t.Errorf("timestamp: got %d, want 1700000000", ca.Timestamp)
	}
	if ca.RequestType() != request.TypeCreateAccount {
		t.Errorf("request type: got %v, want CreateAccount", ca.RequestType())
	}
}

func TestParseDeposit(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "alice",
		"amount":     int64(1_000),
		"nonce":      int64(3),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "Deposit", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	dep, ok := req.(*request.Deposit)
	if !ok {
		t.Fatalf("expected *request.Deposit, got %T", req)
	}
	if dep.Amount != 1_000 {
		t.Errorf("amount: got %d, want 1_000", dep.Amount)
	}
	if dep.Nonce() != 3 {
		t.Errorf("nonce: got %d, want 3", dep.Nonce())
	}
}

func TestParseTransfer(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "alice",
		"to":         "bob",
		"amount":     int64(250),
		"nonce":      int64(7),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "Transfer", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	xfer, ok := req.(*request.Transfer)
	if !ok {
		t.Fatalf("expected *request.Transfer, got %T", req)
	}
	if xfer.Identity != "alice" || xfer.To != "bob" {
		t.Errorf("endpoints: %s -> %s", xfer.Identity, xfer.To)
	}
	if xfer.Amount != 250 {
		t.Errorf("amount: got %d, want 250", xfer.Amount)
	}
}

func TestParseTakeLoan(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":    "550e8400-e29b-41d4-a716-446655440000",
		"identity":      "alice",
		"amount":        int64(10_000),
		"duration_days": int64(90),
		"nonce":         int64(1),
		"timestamp":     int64(1700000000),
	}

	raw := rawFromJSON(t, "TakeLoan", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	loan, ok := req.(*request.TakeLoan)
	if !ok {
		t.Fatalf("expected *request.TakeLoan, got %T", req)
	}
	if loan.Amount != 10_000 {
		t.Errorf("amount: got %d, want 10_000", loan.Amount)
	}
	if loan.DurationDays != 90 {
		t.Errorf("duration_days: got %d, want 90", loan.DurationDays)
	}
}

func TestParseRepayLoan(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "alice",
		"loan_index": int64(2),
		"amount":     int64(500),
		"nonce":      int64(4),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "RepayLoan", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	repay, ok := req.(*request.RepayLoan)
	if !ok {
		t.Fatalf("expected *request.RepayLoan, got %T", req)
	}
	if repay.LoanIndex != 2 {
		t.Errorf("loan_index: got %d, want 2", repay.LoanIndex)
	}
	if repay.Amount != 500 {
		t.Errorf("amount: got %d, want 500", repay.Amount)
	}
}

func TestParseCreateLoanOffer(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":             "550e8400-e29b-41d4-a716-446655440000",
		"identity":               "lender",
		"amount":                 int64(5_000),
		"interest_rate_bps":      int64(1_200),
		"duration_days":          int64(60),
		"min_collateral_percent": int64(50),
		"nonce":                  int64(0),
		"timestamp":              int64(1700000000),
	}

	raw := rawFromJSON(t, "CreateLoanOffer", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	offer, ok := req.(*request.CreateLoanOffer)
	if !ok {
		t.Fatalf("expected *request.CreateLoanOffer, got %T", req)
	}
	if offer.Amount != 5_000 {
		t.Errorf("amount: got %d, want 5_000", offer.Amount)
	}
	if offer.InterestRateBps != 1_200 {
		t.Errorf("interest_rate_bps: got %d, want 1_200", offer.InterestRateBps)
	}
	if offer.DurationDays != 60 {
		t.Errorf("duration_days: got %d, want 60", offer.DurationDays)
	}
	if offer.MinCollateralPercent != 50 {
		t.Errorf("min_collateral_percent: got %d, want 50", offer.MinCollateralPercent)
	}
}

func TestParseAcceptLoanOffer(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "borrower",
		"offer_id":   uint64(17),
		"nonce":      int64(2),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "AcceptLoanOffer", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	accept, ok := req.(*request.AcceptLoanOffer)
	if !ok {
		t.Fatalf("expected *request.AcceptLoanOffer, got %T", req)
	}
	if accept.OfferID != 17 {
		t.Errorf("offer_id: got %d, want 17", accept.OfferID)
	}
}

func TestParseRepayLoanOffer(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "550e8400-e29b-41d4-a716-446655440000",
		"identity":   "borrower",
		"offer_id":   uint64(17),
		"amount":     int64(1_019),
		"nonce":      int64(5),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "RepayLoanOffer", payload)
	req, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	repay, ok := req.(*request.RepayLoanOffer)
	if !ok {
		t.Fatalf("expected *request.RepayLoanOffer, got %T", req)
	}
	if repay.OfferID != 17 || repay.Amount != 1_019 {
		t.Errorf("fields: %+v", repay)
	}
}

func TestParseUnknownRequestType(t *testing.T) {
	raw := rawFromJSON(t, "MintGold", map[string]interface{}{})
	if _, err := ingestion.ParseRawRequest(raw); err == nil {
		t.Error("unknown request type should fail")
	}
}

func TestParseInvalidRequestID(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "not-a-uuid",
		"identity":   "alice",
		"nonce":      int64(0),
		"timestamp":  int64(1700000000),
	}

	raw := rawFromJSON(t, "CreateAccount", payload)
	if _, err := ingestion.ParseRawRequest(raw); err == nil {
		t.Error("malformed request_id should fail")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	raw := ingestion.RawRequest{
		Subject:     "test",
		RequestType: "Deposit",
		Data:        []byte("{not json"),
		Received:    time.Now(),
		AckFunc:     func() {},
		NakFunc:     func() {},
	}
	if _, err := ingestion.ParseRawRequest(raw); err == nil {
		t.Error("malformed JSON should fail")
	}
}

// The engine stores each applied request's wire JSON in the request log;
// replay feeds it back through this parser. Marshal a typed request and
// confirm the parser reconstructs it.
func TestParseRoundTripFromRequestStruct(t *testing.T) {
	orig := &request.Transfer{
		Identity:     "alice",
		To:           "bob",
		Amount:       250,
		RequestNonce: 7,
		Timestamp:    1700000000,
	}
	orig.RequestID = mustUUID(t, "550e8400-e29b-41d4-a716-446655440000")

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	raw := ingestion.RawRequest{
		RequestType: orig.RequestType().String(),
		Data:        data,
		AckFunc:     func() {},
		NakFunc:     func() {},
	}
	parsed, err := ingestion.ParseRawRequest(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got, ok := parsed.(*request.Transfer)
	if !ok {
		t.Fatalf("expected *request.Transfer, got %T", parsed)
	}
	if *got != *orig {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", got, orig)
	}
}
