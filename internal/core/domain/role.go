package domain

// Role is a ledger-wide privilege attached to an address.
type Role string

const (
	// RoleOperator is the controller: it processes, executes and rejects
	// workflow operations on behalf of the issuing entity.
	RoleOperator Role = "operator"
	// RoleCompliance manages whitelisting and role grants.
	RoleCompliance Role = "compliance"
	// RoleCreditRisk sets overdraft limits and the interest engine.
	RoleCreditRisk Role = "creditrisk"
	// RoleAgent marks addresses eligible to receive delegated-operator
	// approvals. Delegation is role-gated, not identity-gated.
	RoleAgent Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleCompliance, RoleCreditRisk, RoleAgent:
		return true
	}
	return false
}

// Capability names one of the per-wallet delegated-operator approval tables.
// Each capability mirrors one way a delegate may act "from" a wallet.
type Capability string

const (
	CapabilityFund     Capability = "fund"
	CapabilityTransfer Capability = "transfer"
	CapabilityPayout   Capability = "payout"
	CapabilityHold     Capability = "hold"
)

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityFund, CapabilityTransfer, CapabilityPayout, CapabilityHold:
		return true
	}
	return false
}
