package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain balances, accounts, savings positions, loans, offers,
// nonce counters, history, recent idempotency keys, and the last state hash.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64             `json:"sequence"`
	StateHash       []byte            `json:"state_hash"`
	Balances        map[string]int64  `json:"balances"` // AccountPath -> balance
	Accounts        []AccountSnapshot `json:"accounts"`
	Savings         []SavingsSnapshot `json:"savings"`
	Loans           []LoanSnapshot    `json:"loans"`
	Offers          []OfferSnapshot   `json:"offers"`
	NextOfferID     uint64            `json:"next_offer_id"`
	Nonces          map[string]int64  `json:"nonces"` // identity -> next expected nonce
	History         []RecordRow       `json:"history"`
	IdempotencyKeys []string          `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt       time.Time         `json:"created_at"`
}

// AccountSnapshot is a serializable account.
type AccountSnapshot struct {
	Identity  string `json:"identity"`
	CreatedAt int64  `json:"created_at"`
}

// SavingsSnapshot is a serializable savings position.
type SavingsSnapshot struct {
	Identity      string `json:"identity"`
	LastAccrualTs int64  `json:"last_accrual_ts"`
}

// LoanSnapshot is a serializable bank loan.
type LoanSnapshot struct {
	Borrower        string `json:"borrower"`
	Principal       int64  `json:"principal"`
	InterestRateBps int64  `json:"interest_rate_bps"`
	StartTime       int64  `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	Active          bool   `json:"active"`
	RepaidAmount    int64  `json:"repaid_amount"`
	TotalDue        int64  `json:"total_due"`
}

// OfferSnapshot is a serializable P2P loan offer.
type OfferSnapshot struct {
	ID                   uint64 `json:"id"`
	Lender               string `json:"lender"`
	Amount               int64  `json:"amount"`
	InterestRateBps      int64  `json:"interest_rate_bps"`
	DurationDays         int64  `json:"duration_days"`
	MinCollateralPercent int64  `json:"min_collateral_percent"`
	State                int32  `json:"state"`
	Borrower             string `json:"borrower"`
	CollateralHeld       int64  `json:"collateral_held"`
	MatchedAt            int64  `json:"matched_at"`
	TotalDue             int64  `json:"total_due"`
	RepaidAmount         int64  `json:"repaid_amount"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Rows are written with
// verified = FALSE; the caller re-reads the stored row, restores it into
// a scratch engine, and calls MarkVerified only when the restore checks
// out. LoadLatestSnapshot only considers verified rows.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO oplog.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6, verified = FALSE
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot. On warm
// restart the caller restores it then replays from snapshot.sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM oplog.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot — cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// LoadSnapshotAt loads the stored snapshot row at a sequence regardless
// of its verified flag. Used by the verification pass after a save.
func (sm *SnapshotManager) LoadSnapshotAt(ctx context.Context, sequence int64) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM oplog.snapshots WHERE sequence = $1
	`, sequence)

	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, fmt.Errorf("load snapshot at seq %d: %w", sequence, err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot at seq %d: %w", sequence, err)
	}
	return &snap, nil
}

// MarkVerified marks a snapshot as eligible for restore.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE oplog.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadRequestsFrom loads applied requests from a given sequence for replay.
// Used for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadRequestsFrom(ctx context.Context, fromSequence int64, limit int) ([]RequestRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, request_type, idempotency_key, identity, nonce,
		       payload, state_hash, prev_hash, timestamp
		FROM oplog.requests
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []RequestRow
	for rows.Next() {
		var r RequestRow
		if err := rows.Scan(
			&r.Sequence, &r.RequestType, &r.IdempotencyKey, &r.Identity, &r.Nonce,
			&r.Payload, &r.StateHash, &r.PrevHash, &r.Timestamp,
		); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}

	return requests, rows.Err()
}

// GetLatestSequence returns the highest sequence in the request log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM oplog.requests
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty request log
	}
	return seq.Int64, nil
}
