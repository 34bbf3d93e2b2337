package domain

import "time"

// Account is a tokenized money wallet keyed by an opaque address.
// Accounts start at zero balance and unwhitelisted; only whitelisted
// accounts may hold a nonzero balance or act as a transfer endpoint.
type Account struct {
	Address        string    `json:"address"`
	Balance        int64     `json:"balance"`
	DrawnBalance   int64     `json:"drawn_balance"`   // borrowed against the overdraft line
	OverdraftLimit int64     `json:"overdraft_limit"` // unsecured overdraft ceiling
	HeldBalance    int64     `json:"held_balance"`    // sum of active holds where from = this account
	Whitelisted    bool      `json:"whitelisted"`
	SecretHash     string    `json:"-"` // argon2id, API credential
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AvailableFunds is the amount the account can still commit:
// balance plus remaining overdraft headroom minus currently held value.
func (a *Account) AvailableFunds() int64 {
	return a.Balance + (a.OverdraftLimit - a.DrawnBalance) - a.HeldBalance
}

// Debit removes value from the account, consuming balance first and then
// drawing on the overdraft line. The caller must have verified available
// funds; Debit enforces the hard invariants balance >= 0 and
// drawnBalance <= overdraftLimit.
func (a *Account) Debit(value int64) bool {
	if value > a.Balance+(a.OverdraftLimit-a.DrawnBalance) {
		return false
	}
	if value <= a.Balance {
		a.Balance -= value
		return true
	}
	a.DrawnBalance += value - a.Balance
	a.Balance = 0
	return true
}

// Credit adds value to the account, repaying any drawn overdraft first.
func (a *Account) Credit(value int64) {
	if a.DrawnBalance > 0 {
		repay := min(value, a.DrawnBalance)
		a.DrawnBalance -= repay
		value -= repay
	}
	a.Balance += value
}
