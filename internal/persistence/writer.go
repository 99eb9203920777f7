package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// RequestLogWriter writes applied requests, journals, and history records
// to Postgres using multi-row INSERT. ON CONFLICT DO NOTHING keeps the
// writes idempotent across replays.
type RequestLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// RequestRow represents a row in oplog.requests
type RequestRow struct {
	Sequence       int64
	RequestType    string
	IdempotencyKey string
	Identity       string
	Nonce          int64
	Payload        []byte // JSON-encoded request payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      int64
}

// JournalRow represents a row in oplog.journal
type JournalRow struct {
	JournalID     string
	BatchID       string
	RequestRef    string
	Sequence      int64
	DebitAccount  string
	CreditAccount string
	Amount        int64
	JournalType   int32
	Timestamp     int64
}

// RecordRow represents a row in oplog.records (per-identity history)
type RecordRow struct {
	Sequence   int64
	FromIdent  string
	ToIdent    string
	Amount     int64
	RecordType int32
	Timestamp  int64
}

func NewRequestLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *RequestLogWriter {
	return &RequestLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// WriteRequestBatch writes a batch of requests to oplog.requests.
func (w *RequestLogWriter) WriteRequestBatch(ctx context.Context, tx *sql.Tx, requests []RequestRow) error {
	if len(requests) == 0 {
		return nil
	}

	query := `INSERT INTO oplog.requests
		(sequence, request_type, idempotency_key, identity, nonce, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(requests))
	args := make([]interface{}, 0, len(requests)*9)

	for i, r := range requests {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			r.Sequence, r.RequestType, r.IdempotencyKey, r.Identity,
			r.Nonce, r.Payload, r.StateHash, r.PrevHash, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteJournalBatch writes a batch of journal entries to oplog.journal.
func (w *RequestLogWriter) WriteJournalBatch(ctx context.Context, tx *sql.Tx, journals []JournalRow) error {
	if len(journals) == 0 {
		return nil
	}

	query := `INSERT INTO oplog.journal
		(journal_id, batch_id, request_ref, sequence, debit_account, credit_account, amount, journal_type, timestamp)
		VALUES `

	values := make([]string, 0, len(journals))
	args := make([]interface{}, 0, len(journals)*9)

	for i, j := range journals {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			j.JournalID, j.BatchID, j.RequestRef, j.Sequence,
			j.DebitAccount, j.CreditAccount, j.Amount,
			j.JournalType, j.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (journal_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteRecordBatch writes history records to oplog.records.
func (w *RequestLogWriter) WriteRecordBatch(ctx context.Context, tx *sql.Tx, records []RecordRow) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO oplog.records
		(sequence, from_ident, to_ident, amount, record_type, timestamp)
		VALUES `

	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*6)

	for i, r := range records {
		base := i * 6
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args,
			r.Sequence, r.FromIdent, r.ToIdent, r.Amount, r.RecordType, r.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MarshalPayload JSON-encodes a request payload for the oplog.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}
