package allocation

import (
	"errors"
	"math"

	"github.com/mmynk/debtbook/internal/calculator"
)

// Summary is the result of allocating a session's items.
type Summary struct {
	// Deltas holds the rounded total of every participant, self included.
	Deltas map[string]float64
	// SelfShare is the current user's own total. It is never committed.
	SelfShare float64
	// Payable holds the positive deltas of everyone but the current user.
	Payable map[string]float64

	ItemsTotal    float64
	AssignedTotal float64

	// UnassignedCount and UnassignedTotal describe items nobody was charged for.
	UnassignedCount int
	UnassignedTotal float64

	// Discrepancy is ItemsTotal minus the sum of Deltas: unassigned items plus
	// any rounding of subgroup shares.
	Discrepancy float64
}

// Balanced reports whether every item was assigned.
func (s *Summary) Balanced() bool {
	return s.UnassignedCount == 0
}

// PayableTotal is the amount that will be committed.
func (s *Summary) PayableTotal() float64 {
	var total float64
	for _, v := range s.Payable {
		total += v
	}
	return calculator.Round2(total)
}

func (s *Session) participantIDs() []string {
	return append([]string(nil), s.order...)
}

func (s *Session) summarize() *Summary {
	items := make([]calculator.Item, 0, len(s.itemOrder))
	sum := &Summary{}
	for _, id := range s.itemOrder {
		it := s.items[id]
		assignee := s.assignments[id]
		items = append(items, calculator.Item{Description: it.Name, Price: it.Price, AssignedTo: assignee})

		if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) {
			continue
		}
		sum.ItemsTotal += it.Price
		if assignee == Unassigned {
			sum.UnassignedCount++
			sum.UnassignedTotal += it.Price
		} else {
			sum.AssignedTotal += it.Price
		}
	}

	groups := make(map[string][]string, len(s.subgroups))
	for id, g := range s.subgroups {
		groups[id] = g.Members
	}

	s.fill(sum, calculator.CalculateDebts(items, groups, s.participantIDs()))
	return sum
}

func (s *Session) fill(sum *Summary, deltas map[string]float64) {
	sum.Deltas = deltas
	sum.Payable = make(map[string]float64)

	var allocated float64
	for id, d := range deltas {
		allocated += d
		if id == s.self.ID {
			sum.SelfShare = d
			continue
		}
		if d > 0 {
			sum.Payable[id] = d
		}
	}

	sum.ItemsTotal = calculator.Round2(sum.ItemsTotal)
	sum.AssignedTotal = calculator.Round2(sum.AssignedTotal)
	sum.UnassignedTotal = calculator.Round2(sum.UnassignedTotal)
	sum.Discrepancy = calculator.Round2(sum.ItemsTotal - allocated)
}

// ManualSplit divides amount evenly among the selected people, plus the current
// user when includeSelf is set, and moves straight to review (Default -> Summary).
// The user's own share is reported but not payable.
func (s *Session) ManualSplit(amount string, selected []string, includeSelf bool) (*Summary, error) {
	if s.state != StateDefault {
		return nil, transitionError("manual split", s.state)
	}

	value, err := ParsePrice(amount)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(selected))
	people := make([]string, 0, len(selected))
	for _, id := range selected {
		p, ok := s.participants[id]
		if !ok || p.Self {
			return nil, invalid("people", "Unknown person selected.")
		}
		if !seen[id] {
			seen[id] = true
			people = append(people, id)
		}
	}

	shares, err := calculator.SplitEvenly(value, people, s.self.ID, includeSelf)
	switch {
	case errors.Is(err, calculator.ErrInvalidAmount):
		return nil, &ValidationError{Field: "amount", Message: "Amount must be greater than zero.", Err: err}
	case errors.Is(err, calculator.ErrNoParticipants):
		return nil, &ValidationError{Field: "people", Message: "Select at least one person.", Err: err}
	case err != nil:
		return nil, err
	}

	deltas := make(map[string]float64, len(s.order))
	for _, id := range s.order {
		deltas[id] = shares[id]
	}

	s.clear()
	sum := &Summary{ItemsTotal: value, AssignedTotal: value}
	s.fill(sum, deltas)
	s.summary = sum
	s.manual = true
	s.state = StateSummary
	return sum, nil
}
