package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes applied requests to NATS for downstream
// consumers (notification services, analytics). Subjects follow the
// pattern bank.ledger.applied.{request_type}.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan AppliedNotice
}

// AppliedNotice is an applied request ready for outbound publishing.
type AppliedNotice struct {
	Sequence       int64       `json:"sequence"`
	RequestType    string      `json:"request_type"`
	IdempotencyKey string      `json:"idempotency_key"`
	Identity       string      `json:"identity"`
	Payload        interface{} `json:"payload"`
	StateHash      []byte      `json:"state_hash"`
	Timestamp      int64       `json:"timestamp"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan AppliedNotice) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case notice, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, notice); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", notice.Sequence, err)
				// Non-fatal: downstream consumers can read oplog directly
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, notice AppliedNotice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	subject := fmt.Sprintf("bank.ledger.applied.%s", notice.RequestType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound applied stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "BANK_LEDGER_APPLIED",
		Subjects:  []string{"bank.ledger.applied.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream BANK_LEDGER_APPLIED")
	return nil
}
