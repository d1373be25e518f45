// Package calculator implements the pure money arithmetic behind debt allocation:
// per-person debt totals for an itemized receipt, even manual splits, and ledger
// statistics. Every function is deterministic and free of I/O.
package calculator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a split amount is not a positive finite number.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrNoParticipants is returned when nobody takes part in a split.
	ErrNoParticipants = errors.New("must have at least one participant")
)

// Item is a receipt line prepared for allocation.
type Item struct {
	Description string
	Price       float64

	// AssignedTo is a participant ID, a subgroup ID, or empty when unassigned.
	AssignedTo string
}

// Round2 rounds to 2 decimal places, ties away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// CalculateDebts computes how much each participant owes for the given items.
//
// Algorithm:
//   - every participant starts at 0
//   - an item assigned to a participant adds its price to that participant
//   - an item assigned to a subgroup adds price/len(members) to each member
//   - unassigned items, unknown assignees and non-finite prices are skipped
//   - totals are rounded to 2 decimals once, after all items are applied
func CalculateDebts(items []Item, subgroups map[string][]string, participants []string) map[string]float64 {
	totals := make(map[string]decimal.Decimal, len(participants))
	for _, p := range participants {
		totals[p] = decimal.Zero
	}

	for _, item := range items {
		if item.AssignedTo == "" || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			continue
		}
		price := decimal.NewFromFloat(item.Price)

		if members, ok := subgroups[item.AssignedTo]; ok {
			if len(members) == 0 {
				continue
			}
			share := price.Div(decimal.NewFromInt(int64(len(members))))
			for _, m := range members {
				if total, known := totals[m]; known {
					totals[m] = total.Add(share)
				}
			}
			continue
		}

		if total, known := totals[item.AssignedTo]; known {
			totals[item.AssignedTo] = total.Add(price)
		}
	}

	debts := make(map[string]float64, len(totals))
	for p, total := range totals {
		debts[p], _ = total.Round(2).Float64()
	}
	return debts
}

// SplitEvenly divides amount among people, plus selfID when includeSelf is set.
// The returned map contains every share, self included; the caller decides what
// to persist.
func SplitEvenly(amount float64, people []string, selfID string, includeSelf bool) (map[string]float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}

	group := make([]string, 0, len(people)+1)
	group = append(group, people...)
	if includeSelf {
		group = append(group, selfID)
	}
	if len(group) == 0 {
		return nil, ErrNoParticipants
	}

	items := []Item{{Description: "split", Price: amount, AssignedTo: "group"}}
	return CalculateDebts(items, map[string][]string{"group": group}, group), nil
}
