package state

import (
	"BankLedger/internal/money"
)

// SavingsRateBps is the savings APY in basis points (5.0%), applied as
// simple interest prorated by elapsed time.
const SavingsRateBps = 500

// SavingsPosition is one identity's interest-bearing sub-balance. The
// principal amount itself lives in the ledger (user:savings); this tracks
// the accrual clock.
type SavingsPosition struct {
	Identity      string
	LastAccrualTs int64 // versioned input timestamp of the last accrual fold
}

// SavingsManager owns the accrual clocks for all savings positions.
// Not thread-safe — only accessed from the single-writer core.
type SavingsManager struct {
	positions map[string]*SavingsPosition
}

func NewSavingsManager() *SavingsManager {
	return &SavingsManager{
		positions: make(map[string]*SavingsPosition),
	}
}

// Get returns the position for an identity, if it has one
func (sm *SavingsManager) Get(identity string) (*SavingsPosition, bool) {
	pos, ok := sm.positions[identity]
	return pos, ok
}

// PendingInterest computes the interest accrued on principal since the last
// fold, WITHOUT mutating the clock. Zero elapsed time yields zero interest,
// and a timestamp before the last fold accrues nothing (the clock never
// runs backwards).
func (sm *SavingsManager) PendingInterest(identity string, principal, now int64) (int64, error) {
	pos, ok := sm.positions[identity]
	if !ok {
		return 0, nil
	}
	return money.Accrue(principal, SavingsRateBps, now-pos.LastAccrualTs)
}

// Touch folds accrual into the position clock, creating the position on
// first touch. Called only after the matching journal batch validated.
func (sm *SavingsManager) Touch(identity string, now int64) *SavingsPosition {
	pos, ok := sm.positions[identity]
	if !ok {
		pos = &SavingsPosition{Identity: identity, LastAccrualTs: now}
		sm.positions[identity] = pos
		return pos
	}
	if now > pos.LastAccrualTs {
		pos.LastAccrualTs = now
	}
	return pos
}

// All returns every position (snapshot persistence)
func (sm *SavingsManager) All() []*SavingsPosition {
	out := make([]*SavingsPosition, 0, len(sm.positions))
	for _, p := range sm.positions {
		out = append(out, p)
	}
	return out
}

// Restore re-registers a position from a snapshot
func (sm *SavingsManager) Restore(pos *SavingsPosition) {
	sm.positions[pos.Identity] = pos
}
