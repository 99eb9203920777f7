package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"BankLedger/internal/money"
	"BankLedger/internal/state"
)

// ErrNotFound is returned when the queried row does not exist in the
// projections. Distinct from the core's fault taxonomy; queries never
// enter the core.
var ErrNotFound = errors.New("query: not found")

// Service provides read-only access to the projection tables. All
// responses include as_of_sequence so callers can reason about
// freshness relative to the write path: the projection worker applies
// outputs asynchronously, so a just-applied request may not be visible
// yet.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetBalance returns the full balance breakdown for an identity.
func (s *Service) GetBalance(ctx context.Context, identity string) (*BalanceResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &BalanceResponse{Identity: identity, AsOfSequence: asOfSeq}
	err = s.db.QueryRowContext(ctx, `
		SELECT available, savings, escrow, collateral
		FROM projections.accounts
		WHERE identity = $1
	`, identity).Scan(&resp.Available, &resp.Savings, &resp.Escrow, &resp.Collateral)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	resp.Total = resp.Available + resp.Savings + resp.Escrow + resp.Collateral
	return resp, nil
}

// GetSavings returns an identity's savings position. PendingInterest is
// derived at query time from the stored last accrual timestamp and the
// caller-supplied now; it matches what the core would credit if a
// savings operation ran at that instant.
func (s *Service) GetSavings(ctx context.Context, identity string, now int64) (*SavingsResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	resp := &SavingsResponse{Identity: identity, RateBps: state.SavingsRateBps, AsOfSequence: asOfSeq}
	err = s.db.QueryRowContext(ctx, `
		SELECT principal, last_accrual_ts
		FROM projections.savings_positions
		WHERE identity = $1
	`, identity).Scan(&resp.Principal, &resp.LastAccrualTs)
	if err == sql.ErrNoRows {
		// No savings activity yet; an empty position with zero interest.
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	if now > resp.LastAccrualTs {
		interest, err := money.Accrue(resp.Principal, state.SavingsRateBps, now-resp.LastAccrualTs)
		if err != nil {
			return nil, err
		}
		resp.PendingInterest = interest
	}
	resp.ProjectedTotal = resp.Principal + resp.PendingInterest
	return resp, nil
}

// GetLoan returns one bank loan by borrower and index.
func (s *Service) GetLoan(ctx context.Context, borrower string, loanIndex int) (*LoanResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	resp := &LoanResponse{Borrower: borrower, LoanIndex: loanIndex, AsOfSequence: asOfSeq}
	err = s.db.QueryRowContext(ctx, `
		SELECT principal, interest_rate_bps, start_time, duration_seconds,
		       total_due, repaid_amount, active
		FROM projections.loans
		WHERE borrower = $1 AND loan_index = $2
	`, borrower, loanIndex).Scan(
		&resp.Principal, &resp.InterestRateBps, &resp.StartTime, &resp.DurationSeconds,
		&resp.TotalDue, &resp.RepaidAmount, &resp.Active,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	resp.Remaining = resp.TotalDue - resp.RepaidAmount
	return resp, nil
}

// GetLoans returns all bank loans for a borrower, oldest first.
func (s *Service) GetLoans(ctx context.Context, borrower string) ([]LoanResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT loan_index, principal, interest_rate_bps, start_time, duration_seconds,
		       total_due, repaid_amount, active
		FROM projections.loans
		WHERE borrower = $1
		ORDER BY loan_index
	`, borrower)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []LoanResponse
	for rows.Next() {
		l := LoanResponse{Borrower: borrower, AsOfSequence: asOfSeq}
		if err := rows.Scan(
			&l.LoanIndex, &l.Principal, &l.InterestRateBps, &l.StartTime,
			&l.DurationSeconds, &l.TotalDue, &l.RepaidAmount, &l.Active,
		); err != nil {
			return nil, err
		}
		l.Remaining = l.TotalDue - l.RepaidAmount
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// GetLoanCount returns the number of loans a borrower has taken,
// including closed ones. The count equals the next loan index.
func (s *Service) GetLoanCount(ctx context.Context, borrower string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM projections.loans WHERE borrower = $1
	`, borrower).Scan(&count)
	return count, err
}

// GetOffer returns one loan offer by id regardless of state.
func (s *Service) GetOffer(ctx context.Context, offerID int64) (*OfferResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	resp := &OfferResponse{OfferID: offerID, AsOfSequence: asOfSeq}
	var borrower sql.NullString
	var matchedAt sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT lender, amount, interest_rate_bps, duration_days, min_collateral_percent,
		       state, borrower, collateral_held, matched_at, total_due, repaid_amount
		FROM projections.offers
		WHERE offer_id = $1
	`, offerID).Scan(
		&resp.Lender, &resp.Amount, &resp.InterestRateBps, &resp.DurationDays,
		&resp.MinCollateralPercent, &resp.State, &borrower, &resp.CollateralHeld,
		&matchedAt, &resp.TotalDue, &resp.RepaidAmount,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	resp.Borrower = borrower.String
	resp.MatchedAt = matchedAt.Int64
	return resp, nil
}

// GetActiveOffers returns open offers in ascending id order. Supports
// cursor-based pagination via afterOfferID.
func (s *Service) GetActiveOffers(ctx context.Context, limit int, afterOfferID *int64) ([]OfferResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT offer_id, lender, amount, interest_rate_bps, duration_days, min_collateral_percent
		FROM projections.offers
		WHERE state = 0
	`
	args := []interface{}{}
	argIdx := 1

	if afterOfferID != nil {
		query += fmt.Sprintf(" AND offer_id > $%d", argIdx)
		args = append(args, *afterOfferID)
		argIdx++
	}

	query += " ORDER BY offer_id"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []OfferResponse
	for rows.Next() {
		o := OfferResponse{AsOfSequence: asOfSeq}
		if err := rows.Scan(
			&o.OfferID, &o.Lender, &o.Amount, &o.InterestRateBps,
			&o.DurationDays, &o.MinCollateralPercent,
		); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// GetTransactionHistory returns transaction records touching an
// identity, newest first, with cursor-based pagination.
func (s *Service) GetTransactionHistory(ctx context.Context, identity string, limit int, beforeSequence *int64) ([]TransactionResponse, error) {
	query := `
		SELECT sequence, from_ident, to_ident, amount, record_type, timestamp
		FROM oplog.records
		WHERE (from_ident = $1 OR to_ident = $1)
	`
	args := []interface{}{identity}
	argIdx := 2

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TransactionResponse
	for rows.Next() {
		var r TransactionResponse
		if err := rows.Scan(
			&r.Sequence, &r.From, &r.To, &r.Amount, &r.RecordType, &r.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// VerifyIntegrity checks the hash chain in the oplog and the global
// zero-sum invariant over the projected accounts. Admin API.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{AsOfSequence: asOfSeq}

	// Each request's prev_hash must equal the previous request's state_hash.
	rows, err := s.db.QueryContext(ctx, `
		SELECT r1.sequence
		FROM oplog.requests r1
		JOIN oplog.requests r2 ON r2.sequence = r1.sequence - 1
		WHERE r1.prev_hash != r2.state_hash
		ORDER BY r1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Projected user balances must equal the journal-derived user
	// totals up to the watermark. The journal itself is balanced by
	// construction, so drift here means a projection bug.
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE((
			SELECT SUM(available + savings + escrow + collateral)
			FROM projections.accounts
		), 0) - COALESCE((
			SELECT SUM(delta) FROM (
				SELECT SUM(amount) AS delta FROM oplog.journal
				WHERE debit_account LIKE 'user:%' AND sequence <= $1
				UNION ALL
				SELECT -SUM(amount) FROM oplog.journal
				WHERE credit_account LIKE 'user:%' AND sequence <= $1
			) sides
		), 0)
	`, asOfSeq).Scan(&report.GlobalImbalance)
	if err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && report.GlobalImbalance == 0
	return report, nil
}

func (s *Service) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sequence FROM projections.watermark WHERE id = 1
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	return seq, err
}
