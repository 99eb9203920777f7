package ledger

import (
	"fmt"
	"strings"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// User sub-types
	SubTypeAvailable  AccountSubType = iota // spendable balance
	SubTypeSavings                          // interest-bearing principal
	SubTypeEscrow                           // lender funds reserved behind an open offer
	SubTypeCollateral                       // borrower collateral held against a matched offer

	// System sub-types
	SubTypeSystemTreasury // funds bank loan disbursals
	SubTypeSystemInterest // funds savings interest accrual

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
)

// AccountKey is the in-memory key for balance tracking. Identity is the
// external-facing account key for user accounts, empty for system and
// external boundary accounts.
type AccountKey struct {
	Scope    AccountScope
	Identity string
	SubType  AccountSubType
}

// NewUserAccountKey creates a key for user sub-accounts
func NewUserAccountKey(identity string, subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		Identity: identity,
		SubType:  subType,
	}
}

// NewSystemAccountKey creates a key for bank-owned system accounts
func NewSystemAccountKey(subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: subType,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeUser:
		return fmt.Sprintf("user:%s:%s", k.Identity, k.subTypeName())
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s", k.subTypeName())
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s", k.subTypeName())
	}
	return "unknown"
}

// ParseAccountPath inverts AccountPath. Used when restoring balances
// from a stored snapshot. Identity is split on the last colon, so
// identities containing colons round-trip.
func ParseAccountPath(path string) AccountKey {
	switch {
	case strings.HasPrefix(path, "user:"):
		rest := path[len("user:"):]
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			return AccountKey{}
		}
		return NewUserAccountKey(rest[:idx], subTypeFromName(rest[idx+1:]))
	case strings.HasPrefix(path, "system:"):
		return NewSystemAccountKey(subTypeFromName(path[len("system:"):]))
	case strings.HasPrefix(path, "external:"):
		return NewExternalAccountKey(subTypeFromName(path[len("external:"):]))
	}
	return AccountKey{}
}

func subTypeFromName(name string) AccountSubType {
	switch name {
	case "available":
		return SubTypeAvailable
	case "savings":
		return SubTypeSavings
	case "escrow":
		return SubTypeEscrow
	case "collateral":
		return SubTypeCollateral
	case "treasury":
		return SubTypeSystemTreasury
	case "interest":
		return SubTypeSystemInterest
	case "deposits":
		return SubTypeExternalDeposits
	case "withdrawals":
		return SubTypeExternalWithdrawals
	default:
		return SubTypeAvailable
	}
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeAvailable:
		return "available"
	case SubTypeSavings:
		return "savings"
	case SubTypeEscrow:
		return "escrow"
	case SubTypeCollateral:
		return "collateral"
	case SubTypeSystemTreasury:
		return "treasury"
	case SubTypeSystemInterest:
		return "interest"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	default:
		return "unknown"
	}
}
