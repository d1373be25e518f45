package models

// Person is someone the user keeps a running balance with.
type Person struct {
	// ID is the unique identifier for the person (UUID format).
	ID string

	// OwnerID is the user whose ledger this person belongs to.
	OwnerID string

	// Name is the display name (e.g., "Jan Kowalski").
	Name string

	// TotalDebt is the running signed balance.
	// Positive means the person owes the user.
	TotalDebt float64

	// Transactions is the person's history in creation order.
	Transactions []Transaction

	// IsSummary marks a pseudo-person used as an aggregate expense bucket
	// rather than a real debtor. Summary people never take part in splits.
	IsSummary bool

	// CreatedAt is the Unix timestamp when the person was added.
	CreatedAt int64
}

// TransactionType distinguishes debts from repayments.
type TransactionType string

const (
	// TransactionDebt increases the person's balance.
	TransactionDebt TransactionType = "debt"
	// TransactionRepayment decreases the person's balance.
	TransactionRepayment TransactionType = "repayment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionDebt || t == TransactionRepayment
}

// DateLayout is the calendar date format used for Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is one entry of a person's history.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// Type is either debt or repayment.
	Type TransactionType

	// Amount is always positive; Type carries the sign.
	Amount float64

	// Description is free text (e.g., "Zakupy Biedronka").
	Description string

	// Date is the calendar date the transaction refers to (DateLayout).
	Date string

	// Timestamp is the Unix timestamp when the entry was created.
	Timestamp int64

	// Method is how a repayment was made (e.g., "Gotówka", "Konto").
	// Empty for debts.
	Method string
}

// SignedAmount returns the effect of the transaction on Person.TotalDebt.
func (t Transaction) SignedAmount() float64 {
	if t.Type == TransactionRepayment {
		return -t.Amount
	}
	return t.Amount
}
