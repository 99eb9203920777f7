package ingestion

import (
	"context"
	"fmt"
	"time"

	"BankLedger/internal/request"

	"github.com/google/uuid"
)

// DirectSubmitter provides admin/manual request injection, bypassing the
// broker. For operational use (seeding, incident repair), not for
// high-throughput ingestion; use NATS for that. Injected requests still
// run the full core pipeline including nonce and idempotency checks.
type DirectSubmitter struct {
	requestChan chan<- request.Request
}

func NewDirectSubmitter(requestChan chan<- request.Request) *DirectSubmitter {
	return &DirectSubmitter{requestChan: requestChan}
}

// Submit queues an already-typed request for the core goroutine.
func (s *DirectSubmitter) Submit(ctx context.Context, req request.Request) error {
	select {
	case s.requestChan <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectDeposit manually injects a deposit for an identity.
func (s *DirectSubmitter) InjectDeposit(ctx context.Context, identity string, amount, nonce int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	req := &request.Deposit{
		RequestID:    uuid.New(),
		Identity:     identity,
		Amount:       amount,
		RequestNonce: nonce,
		Timestamp:    time.Now().Unix(), // Admin-injected: shell supplies the timestamp
	}
	return s.Submit(ctx, req)
}

// InjectCreateAccount manually injects an account creation.
func (s *DirectSubmitter) InjectCreateAccount(ctx context.Context, identity string, nonce int64) error {
	if identity == "" {
		return fmt.Errorf("identity must be non-empty")
	}

	req := &request.CreateAccount{
		RequestID:    uuid.New(),
		Identity:     identity,
		RequestNonce: nonce,
		Timestamp:    time.Now().Unix(),
	}
	return s.Submit(ctx, req)
}
