package state

import "BankLedger/internal/fault"

// Account is the registry entry for one identity. Balances live in the
// ledger's balance tracker; this holds existence and replay-protection state.
type Account struct {
	Identity  string
	CreatedAt int64 // versioned input timestamp of creation
}

// AccountManager owns the identity registry.
// Not thread-safe — only accessed from the single-writer core.
type AccountManager struct {
	accounts map[string]*Account
}

func NewAccountManager() *AccountManager {
	return &AccountManager{
		accounts: make(map[string]*Account),
	}
}

// Create registers an identity. Accounts are created once and never deleted.
func (am *AccountManager) Create(identity string, timestamp int64) (*Account, error) {
	if identity == "" {
		return nil, fault.New(fault.KindValidation, "createAccount", "empty identity")
	}
	if _, exists := am.accounts[identity]; exists {
		return nil, fault.New(fault.KindAlreadyExists, "createAccount", "account %s already exists", identity)
	}

	acct := &Account{Identity: identity, CreatedAt: timestamp}
	am.accounts[identity] = acct
	return acct, nil
}

// Get returns the account for an identity
func (am *AccountManager) Get(identity string) (*Account, bool) {
	acct, ok := am.accounts[identity]
	return acct, ok
}

// Require returns a NotFound fault if the identity has no account
func (am *AccountManager) Require(op, identity string) (*Account, error) {
	acct, ok := am.accounts[identity]
	if !ok {
		return nil, fault.New(fault.KindNotFound, op, "no account for identity %s", identity)
	}
	return acct, nil
}

// Count returns the number of registered accounts
func (am *AccountManager) Count() int {
	return len(am.accounts)
}

// All returns every account (snapshot persistence)
func (am *AccountManager) All() []*Account {
	out := make([]*Account, 0, len(am.accounts))
	for _, a := range am.accounts {
		out = append(out, a)
	}
	return out
}

// Restore re-registers an account from a snapshot
func (am *AccountManager) Restore(acct *Account) {
	am.accounts[acct.Identity] = acct
}
