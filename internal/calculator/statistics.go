package calculator

import (
	"math"
	"sort"
	"time"

	"github.com/mmynk/debtbook/internal/models"
)

// TopDebtorsLimit is how many people Summarize ranks by balance.
const TopDebtorsLimit = 4

// Statistics aggregates a user's whole ledger.
type Statistics struct {
	TotalDebt float64

	// RepaymentMethods counts repayments per method (e.g., "Gotówka": 3).
	RepaymentMethods map[string]int

	// AverageRepaymentDays is the mean, across people, of each person's mean
	// number of days between a debt and the repayment that cleared it.
	AverageRepaymentDays int

	OldestUnpaidDebt *UnpaidDebt
	TopDebtors       []Debtor
}

// UnpaidDebt is a debt not yet covered by repayments.
type UnpaidDebt struct {
	PersonID    string
	PersonName  string
	Description string
	Date        string
	Amount      float64
	Remaining   float64
}

// Debtor is one entry of the balance ranking.
type Debtor struct {
	PersonID  string
	Name      string
	TotalDebt float64
}

// Summarize computes ledger statistics. Summary buckets are ignored.
func Summarize(people []models.Person) Statistics {
	stats := Statistics{RepaymentMethods: make(map[string]int)}

	var averages []float64
	var debtors []Debtor
	var total float64

	for _, p := range people {
		if p.IsSummary {
			continue
		}
		total += p.TotalDebt
		debtors = append(debtors, Debtor{PersonID: p.ID, Name: p.Name, TotalDebt: p.TotalDebt})

		for _, tx := range p.Transactions {
			if tx.Type == models.TransactionRepayment && tx.Method != "" {
				stats.RepaymentMethods[tx.Method]++
			}
		}

		txs := chronological(p.Transactions)
		if avg, ok := averageRepaymentDays(txs); ok {
			averages = append(averages, avg)
		}
		if unpaid := oldestUnpaid(p, txs); unpaid != nil {
			if stats.OldestUnpaidDebt == nil || unpaid.Date < stats.OldestUnpaidDebt.Date {
				stats.OldestUnpaidDebt = unpaid
			}
		}
	}

	stats.TotalDebt = Round2(total)

	if len(averages) > 0 {
		var sum float64
		for _, a := range averages {
			sum += a
		}
		stats.AverageRepaymentDays = int(math.Round(sum / float64(len(averages))))
	}

	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].TotalDebt > debtors[j].TotalDebt
	})
	if len(debtors) > TopDebtorsLimit {
		debtors = debtors[:TopDebtorsLimit]
	}
	stats.TopDebtors = debtors

	return stats
}

// chronological returns a copy of txs ordered by date, then creation time.
func chronological(txs []models.Transaction) []models.Transaction {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return sorted
}

// averageRepaymentDays matches repayments to debts first-in first-out and returns
// the mean time to full repayment over the debts that were fully repaid.
func averageRepaymentDays(txs []models.Transaction) (float64, bool) {
	var debts, repayments []models.Transaction
	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionDebt:
			debts = append(debts, tx)
		case models.TransactionRepayment:
			repayments = append(repayments, tx)
		}
	}

	var totalDays float64
	var repaid int
	for _, debt := range debts {
		remaining := debt.Amount
		var last time.Time

		for remaining > epsilon && len(repayments) > 0 {
			used := math.Min(remaining, repayments[0].Amount)
			remaining -= used
			if d := parseDate(repayments[0].Date); d.After(last) {
				last = d
			}
			if used < repayments[0].Amount {
				repayments[0].Amount -= used
			} else {
				repayments = repayments[1:]
			}
		}

		if remaining <= epsilon {
			diff := math.Abs(last.Sub(parseDate(debt.Date)).Hours() / 24)
			totalDays += math.Ceil(diff)
			repaid++
		}
	}

	if repaid == 0 {
		return 0, false
	}
	return totalDays / float64(repaid), true
}

// oldestUnpaid applies the person's total repayments to debts in date order and
// returns the first debt left with a remainder.
func oldestUnpaid(p models.Person, txs []models.Transaction) *UnpaidDebt {
	var pool float64
	for _, tx := range txs {
		if tx.Type == models.TransactionRepayment {
			pool += tx.Amount
		}
	}

	for _, tx := range txs {
		if tx.Type != models.TransactionDebt {
			continue
		}
		if pool >= tx.Amount-epsilon {
			pool -= tx.Amount
			continue
		}
		return &UnpaidDebt{
			PersonID:    p.ID,
			PersonName:  p.Name,
			Description: tx.Description,
			Date:        tx.Date,
			Amount:      tx.Amount,
			Remaining:   Round2(tx.Amount - pool),
		}
	}
	return nil
}

// epsilon absorbs float noise below one cent.
const epsilon = 0.005

func parseDate(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
