package request

// Envelope wraps every applied request in the request log
type Envelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key (the request UUID)
	IdempotencyKey string

	// Request type discriminator
	RequestType Type

	// Submitting identity
	Identity string

	// Per-identity submission nonce
	Nonce int64

	// Versioned input timestamp in epoch seconds (NOT wall-clock)
	Timestamp int64

	// JSON-encoded request payload, stored for replay
	Payload []byte

	// SHA-256 of state AFTER applying this request
	StateHash [32]byte

	// Previous request's state hash (chain integrity)
	PrevHash [32]byte
}
