// Package ledger commits computed debt deltas to people's running balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/debtbook/internal/calculator"
	"github.com/mmynk/debtbook/internal/metrics"
	"github.com/mmynk/debtbook/internal/models"
)

// DefaultParallelism bounds concurrent per-person updates when none is configured.
const DefaultParallelism = 8

// Appender is the storage operation the applier needs.
// storage.Store satisfies it.
type Appender interface {
	AppendTransaction(ctx context.Context, ownerID, personID string, tx *models.Transaction) (float64, error)
}

// CommitResult reports the outcome of a commit.
type CommitResult struct {
	// Succeeded lists the person IDs whose update was applied, sorted.
	Succeeded []string
	// Balances maps every succeeded person ID to their new balance.
	Balances map[string]float64
	// Failed lists the person IDs whose update was not applied, sorted.
	Failed []string
}

// PartialCommitError is returned when at least one per-person update failed.
// Updates listed in Succeeded are already persisted and are not rolled back.
type PartialCommitError struct {
	Succeeded []string
	Failed    []string
	Errs      map[string]error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("ledger commit incomplete: %d of %d updates failed (%s)",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(e.Failed, ", "))
}

// Unwrap exposes the per-person causes to errors.Is and errors.As.
func (e *PartialCommitError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.Failed {
		errs = append(errs, e.Errs[id])
	}
	return errs
}

// Applier appends one debt transaction per person with a positive delta.
type Applier struct {
	store       Appender
	parallelism int
	now         func() time.Time
}

// NewApplier creates an applier. parallelism <= 0 selects DefaultParallelism.
func NewApplier(store Appender, parallelism int) *Applier {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Applier{store: store, parallelism: parallelism, now: time.Now}
}

// Commit records deltas as debts owed to ownerID. Entries that are not positive
// are ignored; the caller is expected to leave self out. An empty date selects
// today. Updates run concurrently and independently: one failing does not stop
// the others, and the returned error is a *PartialCommitError.
func (a *Applier) Commit(ctx context.Context, ownerID string, deltas map[string]float64, description, date string) (*CommitResult, error) {
	if date == "" {
		date = a.now().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	ids := make([]string, 0, len(deltas))
	for id, d := range deltas {
		if math.IsNaN(d) || math.IsInf(d, 0) || calculator.Round2(d) <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &CommitResult{Balances: make(map[string]float64, len(ids))}
	if len(ids) == 0 {
		return result, nil
	}

	var (
		mu   sync.Mutex
		errs = make(map[string]error)
		g    errgroup.Group
	)
	g.SetLimit(a.parallelism)

	for _, id := range ids {
		tx := &models.Transaction{
			Type:        models.TransactionDebt,
			Amount:      calculator.Round2(deltas[id]),
			Description: description,
			Date:        date,
		}
		g.Go(func() error {
			balance, err := a.store.AppendTransaction(ctx, ownerID, id, tx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[id] = err
				metrics.LedgerUpdates.WithLabelValues("failed").Inc()
				slog.Error("Ledger update failed", "person_id", id, "amount", tx.Amount, "error", err)
				return nil
			}
			result.Balances[id] = balance
			metrics.LedgerUpdates.WithLabelValues("applied").Inc()
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range ids {
		if _, failed := errs[id]; failed {
			result.Failed = append(result.Failed, id)
		} else {
			result.Succeeded = append(result.Succeeded, id)
		}
	}

	slog.Info("Ledger commit finished",
		"owner_id", ownerID,
		"applied", len(result.Succeeded),
		"failed", len(result.Failed),
	)

	if len(errs) > 0 {
		return result, &PartialCommitError{Succeeded: result.Succeeded, Failed: result.Failed, Errs: errs}
	}
	return result, nil
}

// IsPartial reports whether err carries a *PartialCommitError.
func IsPartial(err error) (*PartialCommitError, bool) {
	var pe *PartialCommitError
	ok := errors.As(err, &pe)
	return pe, ok
}
