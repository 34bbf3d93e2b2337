package domain

import "time"

// HoldStatus represents the lifecycle state of a hold.
type HoldStatus string

const (
	HoldStatusOrdered  HoldStatus = "ORDERED"
	HoldStatusExecuted HoldStatus = "EXECUTED"
	HoldStatusReleased HoldStatus = "RELEASED"
)

// Hold reserves value out of the payer's available funds for the benefit of
// a payee, optionally supervised by a notary, until it is executed (funds
// move) or released (reservation freed, no movement). Keyed by a
// caller-chosen operation ID; terminal records are immutable.
type Hold struct {
	OperationID   string     `json:"operation_id"`
	Orderer       string     `json:"orderer"`
	From          string     `json:"from"`
	To            string     `json:"to"`
	Notary        string     `json:"notary,omitempty"` // empty = no notary gate
	Value         int64      `json:"value"`
	Expiration    *time.Time `json:"expiration,omitempty"` // nil = never expires
	Status        HoldStatus `json:"status"`
	ReleaseReason string     `json:"release_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// IsTerminal returns true once the hold has been executed or released.
func (h *Hold) IsTerminal() bool {
	return h.Status == HoldStatusExecuted || h.Status == HoldStatusReleased
}

// IsExpired reports whether `now` is on or after the expiration.
// Holds without an expiration never expire.
func (h *Hold) IsExpired(now time.Time) bool {
	return h.Expiration != nil && !now.Before(*h.Expiration)
}

// MayExecute reports whether caller is allowed to execute the hold at `now`.
// A notarized hold is executable only by its notary and only before expiry.
// A hold without a notary belongs to a workflow; isController covers the
// controller (operator role) adjudicating it.
func (h *Hold) MayExecute(caller string, isController bool, now time.Time) bool {
	if h.Notary != "" {
		return caller == h.Notary && !h.IsExpired(now)
	}
	return isController
}

// MayRelease reports whether caller is allowed to release the hold at `now`.
// The notary and the payee may release at any time; the payer side (orderer
// or from) only once the hold has expired. Timeout favors the payer.
func (h *Hold) MayRelease(caller string, now time.Time) bool {
	if caller == h.Notary && h.Notary != "" {
		return true
	}
	if caller == h.To {
		return true
	}
	if caller == h.From || caller == h.Orderer {
		return h.IsExpired(now)
	}
	return false
}

// MayRenew reports whether caller may push the expiration out at `now`.
// Only the holder side may renew, and only while the hold is still live.
func (h *Hold) MayRenew(caller string, now time.Time) bool {
	if h.IsExpired(now) {
		return false
	}
	return caller == h.Orderer || caller == h.From
}
