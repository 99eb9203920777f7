package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"BankLedger/internal/observability"
)

// CoreOutput mirrors core.CoreOutput in row form to avoid an import cycle.
// The orchestrator (cmd/bankledger) bridges between the two.
type CoreOutput struct {
	RequestRow  RequestRow
	JournalRows []JournalRow
	RecordRows  []RecordRow
}

// Worker drains the persist channel and batch-writes to Postgres.
// The persist channel uses BLOCKING sends from the core, so if this worker
// falls behind, the core stalls — guaranteeing no applied request is lost.
type Worker struct {
	writer       *RequestLogWriter
	db           *sql.DB
	inputChan    <-chan CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan CoreOutput,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       NewRequestLogWriter(db, batchSize, flushTimeout),
		db:           db,
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the persistence loop. It batches incoming outputs and flushes
// either when the batch is full or the flush timeout expires. Blocks until
// ctx is cancelled or the input channel closes.
func (pw *Worker) Run(ctx context.Context) error {
	requestBatch := make([]RequestRow, 0, pw.batchSize)
	journalBatch := make([]JournalRow, 0, pw.batchSize*2)
	recordBatch := make([]RecordRow, 0, pw.batchSize*2)

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	flushAll := func(flushCtx context.Context) {
		if len(requestBatch) == 0 {
			return
		}
		if err := pw.flushWithRetry(flushCtx, requestBatch, journalBatch, recordBatch); err != nil {
			log.Printf("ERROR: flush failed after retries: %v", err)
		}
		requestBatch = requestBatch[:0]
		journalBatch = journalBatch[:0]
		recordBatch = recordBatch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining with a background context
			flushAll(context.Background())
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				flushAll(context.Background())
				return nil
			}

			requestBatch = append(requestBatch, output.RequestRow)
			journalBatch = append(journalBatch, output.JournalRows...)
			recordBatch = append(recordBatch, output.RecordRows...)

			if len(requestBatch) >= pw.batchSize {
				flushAll(ctx)
				timer.Reset(pw.flushTimeout)
			}

		case <-timer.C:
			flushAll(ctx)
			timer.Reset(pw.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff. The worker never drops
// an applied request — it retries until the write succeeds or the context
// is cancelled, at which point one final flush runs with a fresh context.
func (pw *Worker) flushWithRetry(ctx context.Context, requests []RequestRow, journals []JournalRow, records []RecordRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, requests=%d)",
				attempt, backoff, len(requests))
			select {
			case <-ctx.Done():
				finalErr := pw.flush(context.Background(), requests, journals, records)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := pw.flush(ctx, requests, journals, records)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if pw.metrics != nil {
			pw.metrics.PersistRetry.Inc()
		}
	}
}

func (pw *Worker) flush(ctx context.Context, requests []RequestRow, journals []JournalRow, records []RecordRow) error {
	start := time.Now()

	// Requests, journals, and records commit in a single transaction
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteRequestBatch(ctx, tx, requests); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_requests").Inc()
		}
		return err
	}
	if err := pw.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_journals").Inc()
		}
		return err
	}
	if err := pw.writer.WriteRecordBatch(ctx, tx, records); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_records").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistRequestsWritten.Add(float64(len(requests)))
		pw.metrics.PersistJournalsWritten.Add(float64(len(journals)))
		if len(requests) > 0 {
			pw.metrics.PersistLastSequence.Set(float64(requests[len(requests)-1].Sequence))
		}
	}

	return nil
}

// GetWriter returns the underlying writer.
func (pw *Worker) GetWriter() *RequestLogWriter {
	return pw.writer
}
