package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"BankLedger/internal/observability"
	"BankLedger/internal/request"
	"BankLedger/internal/state"
)

// Output mirrors the data the projection worker needs per applied request.
// The orchestrator bridges between core.CoreOutput and this.
type Output struct {
	Sequence    int64
	RequestType request.Type
	Identity    string
	Timestamp   int64
	Payload     []byte // JSON-encoded request, same bytes as the oplog

	// Result fields forwarded from the core
	OfferID          uint64
	LoanIndex        int64
	TotalDue         int64
	RemainingDue     int64
	SavingsPrincipal int64

	Journals []JournalEntry
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	Amount        int64
	JournalType   int32
}

// Worker updates the read-model tables from applied requests. Its input
// channel is non-blocking on the core side, so updates may be dropped
// under load; projections are eventually consistent and rebuildable
// from oplog.
type Worker struct {
	db        *sql.DB
	inputChan <-chan Output
	metrics   *observability.Metrics
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan Output, metrics *observability.Metrics) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
	}
}

// Run starts the projection loop.
func (pw *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			start := time.Now()
			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue — projections are rebuilt from oplog on drift
			}
			pw.lastSeq = output.Sequence

			if pw.metrics != nil {
				pw.metrics.ProjectionUpdateDur.WithLabelValues("main").Observe(time.Since(start).Seconds())
				pw.metrics.ProjectionSequence.Set(float64(output.Sequence))
			}
		}
	}
}

func (pw *Worker) processOutput(ctx context.Context, output Output) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range output.Journals {
		if err := pw.applyJournal(ctx, tx, output, j); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
	}

	if err := pw.applyStateChange(ctx, tx, output); err != nil {
		return fmt.Errorf("state projection: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE projections.watermark SET last_sequence = $1, updated_at = NOW() WHERE id = 1
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// applyJournal moves the journal amount between account columns. Core
// semantics: debit increases the account, credit decreases it. Only user
// accounts are projected; system and external lines stay in oplog.
func (pw *Worker) applyJournal(ctx context.Context, tx *sql.Tx, output Output, j JournalEntry) error {
	if err := pw.applyUserDelta(ctx, tx, output, j.DebitAccount, j.Amount); err != nil {
		return err
	}
	return pw.applyUserDelta(ctx, tx, output, j.CreditAccount, -j.Amount)
}

func (pw *Worker) applyUserDelta(ctx context.Context, tx *sql.Tx, output Output, accountPath string, delta int64) error {
	identity, column, ok := splitUserPath(accountPath)
	if !ok {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO projections.accounts (identity, %s, created_at, updated_seq)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity)
		DO UPDATE SET %s = projections.accounts.%s + $2, updated_seq = $4
	`, column, column, column)

	_, err := tx.ExecContext(ctx, query, identity, delta, output.Timestamp, output.Sequence)
	return err
}

// splitUserPath parses "user:<identity>:<subtype>" account paths.
func splitUserPath(accountPath string) (identity, column string, ok bool) {
	if !strings.HasPrefix(accountPath, "user:") {
		return "", "", false
	}
	rest := accountPath[len("user:"):]
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return "", "", false
	}

	identity = rest[:idx]
	switch rest[idx+1:] {
	case "available":
		column = "available"
	case "savings":
		column = "savings"
	case "escrow":
		column = "escrow"
	case "collateral":
		column = "collateral"
	default:
		return "", "", false
	}
	return identity, column, true
}

// applyStateChange maintains the loans, offers, and savings read models
// by decoding the request payload the same way the oplog stores it.
func (pw *Worker) applyStateChange(ctx context.Context, tx *sql.Tx, output Output) error {
	switch output.RequestType {
	case request.TypeCreateAccount:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.accounts (identity, created_at, updated_seq)
			VALUES ($1, $2, $3)
			ON CONFLICT (identity) DO NOTHING
		`, output.Identity, output.Timestamp, output.Sequence)
		return err

	case request.TypeSavingsDeposit, request.TypeSavingsWithdraw:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.savings_positions (identity, principal, last_accrual_ts, updated_seq)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (identity)
			DO UPDATE SET principal = $2, last_accrual_ts = $3, updated_seq = $4
		`, output.Identity, output.SavingsPrincipal, output.Timestamp, output.Sequence)
		return err

	case request.TypeTakeLoan:
		var req request.TakeLoan
		if err := json.Unmarshal(output.Payload, &req); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.loans
				(borrower, loan_index, principal, interest_rate_bps, start_time,
				 duration_seconds, total_due, repaid_amount, active, updated_seq)
			VALUES ($1, $2, $3, 800, $4, $5, $6, 0, TRUE, $7)
			ON CONFLICT (borrower, loan_index) DO NOTHING
		`, output.Identity, output.LoanIndex, req.Amount, output.Timestamp,
			req.DurationDays*86_400, output.TotalDue, output.Sequence)
		return err

	case request.TypeRepayLoan:
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.loans
			SET repaid_amount = total_due - $3,
			    active = ($3 > 0),
			    updated_seq = $4
			WHERE borrower = $1 AND loan_index = $2
		`, output.Identity, output.LoanIndex, output.RemainingDue, output.Sequence)
		return err

	case request.TypeCreateLoanOffer:
		var req request.CreateLoanOffer
		if err := json.Unmarshal(output.Payload, &req); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.offers
				(offer_id, lender, amount, interest_rate_bps, duration_days,
				 min_collateral_percent, state, updated_seq)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
			ON CONFLICT (offer_id) DO NOTHING
		`, output.OfferID, output.Identity, req.Amount, req.InterestRateBps,
			req.DurationDays, req.MinCollateralPercent, output.Sequence)
		return err

	case request.TypeAcceptLoanOffer:
		collateral := collateralHeldFromJournals(output.Journals)
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.offers
			SET state = 1, borrower = $2, collateral_held = $3,
			    matched_at = $4, total_due = $5, updated_seq = $6
			WHERE offer_id = $1
		`, output.OfferID, output.Identity, collateral,
			output.Timestamp, output.TotalDue, output.Sequence)
		return err

	case request.TypeCancelLoanOffer:
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.offers
			SET state = 2, updated_seq = $2
			WHERE offer_id = $1
		`, output.OfferID, output.Sequence)
		return err

	case request.TypeRepayLoanOffer:
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.offers
			SET repaid_amount = total_due - $2,
			    collateral_held = CASE WHEN $2 = 0 THEN 0 ELSE collateral_held END,
			    updated_seq = $3
			WHERE offer_id = $1
		`, output.OfferID, output.RemainingDue, output.Sequence)
		return err
	}

	return nil
}

// collateralHeldFromJournals extracts the collateral hold leg of an
// accept batch.
func collateralHeldFromJournals(journals []JournalEntry) int64 {
	for _, j := range journals {
		if strings.HasSuffix(j.DebitAccount, ":collateral") {
			return j.Amount
		}
	}
	return 0
}

// Rebuild re-derives every projection table from oplog: account rows and
// balances from CreateAccount requests plus the journal, savings positions
// from the journal's savings legs, and loans/offers by replaying applied
// request payloads through the state managers. Finishes by advancing the
// watermark to the highest persisted sequence.
func Rebuild(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.accounts`,
		`TRUNCATE projections.savings_positions`,
		`TRUNCATE projections.loans`,
		`TRUNCATE projections.offers`,
		`UPDATE projections.watermark SET last_sequence = -1 WHERE id = 1`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Account rows first, so identities with no journal activity yet
	// (created but never funded) still reappear.
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.accounts (identity, created_at, updated_seq)
		SELECT identity, timestamp, sequence
		FROM oplog.requests
		WHERE request_type = 'CreateAccount'
		ON CONFLICT (identity) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("rebuild accounts: %w", err)
	}

	// Rebuild user sub-account balances from the journal. Debits add,
	// credits subtract, matching the in-memory tracker.
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.accounts (identity, available, savings, escrow, collateral, created_at, updated_seq)
		SELECT
			split_part(account_path, ':', 2) AS identity,
			SUM(CASE WHEN split_part(account_path, ':', 3) = 'available' THEN delta ELSE 0 END),
			SUM(CASE WHEN split_part(account_path, ':', 3) = 'savings' THEN delta ELSE 0 END),
			SUM(CASE WHEN split_part(account_path, ':', 3) = 'escrow' THEN delta ELSE 0 END),
			SUM(CASE WHEN split_part(account_path, ':', 3) = 'collateral' THEN delta ELSE 0 END),
			MIN(timestamp),
			MAX(sequence)
		FROM (
			SELECT debit_account AS account_path, amount AS delta, timestamp, sequence FROM oplog.journal
			UNION ALL
			SELECT credit_account, -amount, timestamp, sequence FROM oplog.journal
		) moves
		WHERE account_path LIKE 'user:%'
		GROUP BY split_part(account_path, ':', 2)
		ON CONFLICT (identity) DO UPDATE
			SET available = EXCLUDED.available, savings = EXCLUDED.savings,
			    escrow = EXCLUDED.escrow, collateral = EXCLUDED.collateral,
			    updated_seq = EXCLUDED.updated_seq
	`)
	if err != nil {
		return fmt.Errorf("rebuild balances: %w", err)
	}

	// Savings positions from the journal's savings legs. The accrual leg
	// shares the triggering request's timestamp, so MAX(timestamp) is the
	// last accrual point.
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.savings_positions (identity, principal, last_accrual_ts, updated_seq)
		SELECT
			split_part(account_path, ':', 2),
			SUM(delta),
			MAX(timestamp),
			MAX(sequence)
		FROM (
			SELECT debit_account AS account_path, amount AS delta, timestamp, sequence FROM oplog.journal
			UNION ALL
			SELECT credit_account, -amount, timestamp, sequence FROM oplog.journal
		) moves
		WHERE account_path LIKE 'user:%' AND split_part(account_path, ':', 3) = 'savings'
		GROUP BY split_part(account_path, ':', 2)
	`)
	if err != nil {
		return fmt.Errorf("rebuild savings positions: %w", err)
	}

	if err := rebuildLoansAndOffers(ctx, db); err != nil {
		return fmt.Errorf("rebuild loans and offers: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE projections.watermark
		SET last_sequence = COALESCE((SELECT MAX(sequence) FROM oplog.requests), -1),
		    updated_at = NOW()
		WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("rebuild watermark: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}

// rebuildLoansAndOffers replays the lending request payloads in sequence
// order through fresh state managers. Offer ids and loan indexes are
// assigned in creation order, so the replay reproduces them exactly.
func rebuildLoansAndOffers(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `
		SELECT sequence, request_type, identity, timestamp, payload
		FROM oplog.requests
		WHERE request_type IN ('TakeLoan', 'RepayLoan', 'CreateLoanOffer',
			'AcceptLoanOffer', 'CancelLoanOffer', 'RepayLoanOffer')
		ORDER BY sequence
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	loans := state.NewLoanManager()
	offers := state.NewOfferManager()
	loanSeq := make(map[string][]int64) // borrower -> last sequence per loan index
	offerSeq := make(map[uint64]int64)

	for rows.Next() {
		var (
			seq       int64
			reqType   string
			identity  string
			timestamp int64
			payload   []byte
		)
		if err := rows.Scan(&seq, &reqType, &identity, &timestamp, &payload); err != nil {
			return err
		}

		switch reqType {
		case "TakeLoan":
			var req request.TakeLoan
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			if _, _, err := loans.Originate(identity, req.Amount, req.DurationDays, timestamp); err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			loanSeq[identity] = append(loanSeq[identity], seq)

		case "RepayLoan":
			var req request.RepayLoan
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			loan, err := loans.ValidateRepayment(identity, int(req.LoanIndex), req.Amount)
			if err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			loans.ApplyRepayment(loan, req.Amount)
			loanSeq[identity][req.LoanIndex] = seq

		case "CreateLoanOffer":
			var req request.CreateLoanOffer
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			offer, err := offers.Create(identity, req.Amount, req.InterestRateBps, req.DurationDays, req.MinCollateralPercent)
			if err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			offerSeq[offer.ID] = seq

		case "AcceptLoanOffer":
			var req request.AcceptLoanOffer
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			offer, collateral, totalDue, err := offers.ValidateAccept(identity, req.OfferID)
			if err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			offers.ApplyAccept(offer, identity, collateral, totalDue, timestamp)
			offerSeq[offer.ID] = seq

		case "CancelLoanOffer":
			var req request.CancelLoanOffer
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			offer, err := offers.ValidateCancel(identity, req.OfferID)
			if err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			offers.ApplyCancel(offer)
			offerSeq[offer.ID] = seq

		case "RepayLoanOffer":
			var req request.RepayLoanOffer
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("seq=%d decode %s: %w", seq, reqType, err)
			}
			offer, err := offers.ValidateRepayment(identity, req.OfferID, req.Amount)
			if err != nil {
				return fmt.Errorf("seq=%d replay %s: %w", seq, reqType, err)
			}
			offers.ApplyRepayment(offer, req.Amount)
			offerSeq[offer.ID] = seq
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for borrower, ls := range loans.AllByBorrower() {
		for idx, loan := range ls {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO projections.loans
					(borrower, loan_index, principal, interest_rate_bps, start_time,
					 duration_seconds, total_due, repaid_amount, active, updated_seq)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, borrower, idx, loan.Principal, loan.InterestRateBps, loan.StartTime,
				loan.DurationSeconds, loan.TotalDue, loan.RepaidAmount, loan.Active,
				loanSeq[borrower][idx])
			if err != nil {
				return err
			}
		}
	}

	for _, offer := range offers.All() {
		var borrower interface{}
		if offer.Borrower != "" {
			borrower = offer.Borrower
		}
		var matchedAt interface{}
		if offer.MatchedAt != 0 {
			matchedAt = offer.MatchedAt
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.offers
				(offer_id, lender, amount, interest_rate_bps, duration_days,
				 min_collateral_percent, state, borrower, collateral_held,
				 matched_at, total_due, repaid_amount, updated_seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, offer.ID, offer.Lender, offer.Amount, offer.InterestRateBps,
			offer.DurationDays, offer.MinCollateralPercent, int32(offer.State),
			borrower, offer.CollateralHeld, matchedAt, offer.TotalDue,
			offer.RepaidAmount, offerSeq[offer.ID])
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
