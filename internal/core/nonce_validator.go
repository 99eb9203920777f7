package core

import (
	"BankLedger/internal/fault"
)

// NonceValidator enforces strictly sequential per-identity nonces.
// Every mutating request carries a client-assigned nonce; the first
// request for an identity must carry nonce 0, each subsequent request
// the previous nonce plus one. Gaps and rewinds are rejected.
//
// Not thread-safe — only accessed from the single-writer core.
type NonceValidator struct {
	expected map[string]int64
}

func NewNonceValidator() *NonceValidator {
	return &NonceValidator{
		expected: make(map[string]int64),
	}
}

// Validate checks the nonce for an identity without advancing it.
// isDuplicate marks requests already caught by the idempotency tier;
// for those a stale nonce is expected and not an error.
func (nv *NonceValidator) Validate(op string, identity string, nonce int64, isDuplicate bool) error {
	want := nv.expected[identity]

	if nonce == want {
		return nil
	}

	if nonce < want {
		if isDuplicate {
			return nil
		}
		return fault.New(fault.KindValidation, op,
			"stale nonce for %s: got %d, expected %d", identity, nonce, want)
	}

	return fault.New(fault.KindValidation, op,
		"nonce gap for %s: got %d, expected %d", identity, nonce, want)
}

// Advance moves the expected nonce forward after successful processing.
func (nv *NonceValidator) Advance(identity string) {
	nv.expected[identity]++
}

// Expected returns the next expected nonce for an identity.
func (nv *NonceValidator) Expected(identity string) int64 {
	return nv.expected[identity]
}

// Snapshot returns a copy of all per-identity expected nonces.
func (nv *NonceValidator) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(nv.expected))
	for k, v := range nv.expected {
		out[k] = v
	}
	return out
}

// Restore replaces the nonce table (recovery path).
func (nv *NonceValidator) Restore(expected map[string]int64) {
	nv.expected = make(map[string]int64, len(expected))
	for k, v := range expected {
		nv.expected[k] = v
	}
}
