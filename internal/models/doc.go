// Package models defines the core domain models for debtbook.
//
// # Ledger Models
//
// The following models are persisted by the storage layer:
//   - User: Registered account; the "self" participant of every allocation session
//   - Person: Someone the user tracks a running balance with
//   - Transaction: One debt or repayment entry in a person's history
//
// # Receipt Models
//
// LineItem is the only receipt model. It is produced by the extraction gateway or by
// manual entry and is consumed by the allocation engine. It is never persisted.
//
// # Design Principles
//
// 1. **Owner scoping**: Every Person belongs to exactly one User (OwnerID)
// 2. **Append-only history**: Transactions are appended; removal is an explicit user action
// 3. **Avoid circular references**: Use ID strings instead of pointers for relationships
// 4. **Signed balances**: Person.TotalDebt is positive when the person owes the user
package models
