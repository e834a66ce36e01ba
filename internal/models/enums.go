package models

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleUser:
		return true
	}
	return false
}

// PaymentMethod describes how an expense was paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "net_banking"
	PaymentOther      PaymentMethod = "other"
)

// Valid reports whether p is one of the known payment methods.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentUPI, PaymentNetBanking, PaymentOther:
		return true
	}
	return false
}

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodAnnual  BudgetPeriod = "annual"
)

// Valid reports whether p is one of the known periods.
func (p BudgetPeriod) Valid() bool {
	return p == BudgetPeriodMonthly || p == BudgetPeriodAnnual
}

// RolloverRule decides what part of a finished period carries into the next.
type RolloverRule string

const (
	RolloverNone    RolloverRule = "no_rollover"
	RolloverSurplus RolloverRule = "rollover_surplus"
	RolloverAll     RolloverRule = "rollover_all"
)

// Valid reports whether r is one of the known rollover rules.
func (r RolloverRule) Valid() bool {
	switch r {
	case RolloverNone, RolloverSurplus, RolloverAll:
		return true
	}
	return false
}

// AlertLevel is the budget consumption warning state.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// AuditAction is the kind of mutation recorded in the audit trail.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// Audited entity types.
const (
	EntityExpense  = "expense"
	EntityBudget   = "budget"
	EntityCategory = "category"
	EntityUser     = "user"
)
