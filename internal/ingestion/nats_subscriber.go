package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds raw
// requests into the core loop via requestChan. JetStream is the primary
// ingestion surface; each subject maps to a request type.
type NATSSubscriber struct {
	js          jetstream.JetStream
	requestChan chan<- RawRequest
	consumers   []jetstream.ConsumeContext
}

// RawRequest is the received-but-untyped request from NATS, ready for
// the shell to parse into a typed request.Request before handing to the
// core goroutine.
type RawRequest struct {
	Subject     string
	RequestType string
	Data        []byte
	Received    time.Time
	AckFunc     func() // Call to ACK the NATS message after successful processing
	NakFunc     func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to request types.
type SubjectConfig struct {
	Subject      string
	RequestType  string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration. All
// operations share one stream so per-identity ordering survives the
// broker; consumers are per-type for independent monitoring.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "bank.ops.account.create", RequestType: "CreateAccount", ConsumerName: "ledger-account-create", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.account.deposit", RequestType: "Deposit", ConsumerName: "ledger-deposit", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.account.withdraw", RequestType: "Withdraw", ConsumerName: "ledger-withdraw", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.account.transfer", RequestType: "Transfer", ConsumerName: "ledger-transfer", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.savings.deposit", RequestType: "SavingsDeposit", ConsumerName: "ledger-savings-deposit", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.savings.withdraw", RequestType: "SavingsWithdraw", ConsumerName: "ledger-savings-withdraw", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.loan.take", RequestType: "TakeLoan", ConsumerName: "ledger-loan-take", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.loan.repay", RequestType: "RepayLoan", ConsumerName: "ledger-loan-repay", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.market.create", RequestType: "CreateLoanOffer", ConsumerName: "ledger-offer-create", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.market.accept", RequestType: "AcceptLoanOffer", ConsumerName: "ledger-offer-accept", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.market.cancel", RequestType: "CancelLoanOffer", ConsumerName: "ledger-offer-cancel", StreamName: "BANK_OPS"},
		{Subject: "bank.ops.market.repay", RequestType: "RepayLoanOffer", ConsumerName: "ledger-offer-repay", StreamName: "BANK_OPS"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, requestChan chan<- RawRequest) *NATSSubscriber {
	return &NATSSubscriber{
		js:          js,
		requestChan: requestChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		cfg := cfg

		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawRequest{
				Subject:     msg.Subject(),
				RequestType: cfg.RequestType,
				Data:        msg.Data(),
				Received:    time.Now(),
				AckFunc:     func() { msg.Ack() },
				NakFunc:     func() { msg.Nak() },
			}

			select {
			case ns.requestChan <- raw:
				// Queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "BANK_OPS",
			Subjects:  []string{"bank.ops.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
