package core

import (
	"crypto/sha256"
	"encoding/binary"
)

// genesisSeed anchors the hash chain before any request is applied.
// Changing it invalidates every stored state_hash, so it is versioned.
const genesisSeed = "BankLedger:genesis:v1"

// StateHasher maintains the per-request hash chain over applied state:
// each applied request folds its sequence and touched-balance digest
// into the previous hash, so two cores that processed the same log
// agree on one 32-byte tip.
type StateHasher struct {
	prevHash [32]byte
}

func NewStateHasher() *StateHasher {
	h := &StateHasher{}
	h.prevHash = sha256.Sum256([]byte(genesisSeed))
	return h
}

// ComputeHash chains the next link:
// state_hash[N] = SHA-256(state_hash[N-1] || sequence || digest).
// The tip advances as a side effect.
func (h *StateHasher) ComputeHash(sequence int64, digest []byte) [32]byte {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], uint64(sequence))

	sum := sha256.New()
	sum.Write(h.prevHash[:])
	sum.Write(seq[:])
	sum.Write(digest)
	sum.Sum(h.prevHash[:0])

	return h.prevHash
}

// GetPrevHash returns the chain tip.
func (h *StateHasher) GetPrevHash() [32]byte {
	return h.prevHash
}

// SetPrevHash resets the tip, used when restoring from a snapshot.
func (h *StateHasher) SetPrevHash(hash [32]byte) {
	h.prevHash = hash
}
