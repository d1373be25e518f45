package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mmynk/debtbook/internal/models"
	"github.com/mmynk/debtbook/internal/storage/sqlite"
)

type fakeAppender struct {
	mu       sync.Mutex
	fail     map[string]bool
	appended map[string][]models.Transaction
}

func newFakeAppender(failing ...string) *fakeAppender {
	f := &fakeAppender{fail: map[string]bool{}, appended: map[string][]models.Transaction{}}
	for _, id := range failing {
		f.fail[id] = true
	}
	return f
}

func (f *fakeAppender) AppendTransaction(_ context.Context, _, personID string, tx *models.Transaction) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[personID] {
		return 0, errors.New("write rejected")
	}
	f.appended[personID] = append(f.appended[personID], *tx)
	return tx.Amount, nil
}

func TestApplier_Commit(t *testing.T) {
	store := newFakeAppender()
	a := NewApplier(store, 2)

	res, err := a.Commit(context.Background(), "owner", map[string]float64{
		"anna":   10,
		"bartek": 5.835,
		"zero":   0,
		"neg":    -3,
	}, "Zakupy", "2024-06-01")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if diff := cmp.Diff([]string{"anna", "bartek"}, res.Succeeded); diff != "" {
		t.Errorf("Succeeded mismatch (-want +got):\n%s", diff)
	}
	if len(res.Failed) != 0 {
		t.Errorf("Expected no failures, got %v", res.Failed)
	}
	if got := store.appended["bartek"][0]; got.Amount != 5.84 || got.Type != models.TransactionDebt || got.Date != "2024-06-01" {
		t.Errorf("Unexpected transaction for bartek: %+v", got)
	}
	if _, ok := store.appended["zero"]; ok {
		t.Error("Zero delta should not be committed")
	}
	if _, ok := store.appended["neg"]; ok {
		t.Error("Negative delta should not be committed")
	}
}

func TestApplier_DefaultsDateToToday(t *testing.T) {
	store := newFakeAppender()
	a := NewApplier(store, 0)
	a.now = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

	if _, err := a.Commit(context.Background(), "owner", map[string]float64{"anna": 1}, "", ""); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if got := store.appended["anna"][0].Date; got != "2025-03-09" {
		t.Errorf("Date = %q, want 2025-03-09", got)
	}
}

func TestApplier_InvalidDate(t *testing.T) {
	a := NewApplier(newFakeAppender(), 1)
	if _, err := a.Commit(context.Background(), "owner", map[string]float64{"anna": 1}, "", "09.03.2025"); err == nil {
		t.Error("Expected error for malformed date")
	}
}

func TestApplier_PartialFailure(t *testing.T) {
	store := newFakeAppender("bartek")
	a := NewApplier(store, 4)

	res, err := a.Commit(context.Background(), "owner", map[string]float64{
		"anna":   10,
		"bartek": 10,
		"celina": 10,
	}, "Obiad", "2024-06-01")

	pe, ok := IsPartial(err)
	if !ok {
		t.Fatalf("Expected PartialCommitError, got %v", err)
	}
	if diff := cmp.Diff([]string{"anna", "celina"}, pe.Succeeded); diff != "" {
		t.Errorf("Succeeded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bartek"}, pe.Failed); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pe.Succeeded, res.Succeeded); diff != "" {
		t.Errorf("Result and error disagree (-err +res):\n%s", diff)
	}
	// already-applied updates stay applied
	if len(store.appended["anna"]) != 1 || len(store.appended["celina"]) != 1 {
		t.Errorf("Expected successful updates to persist, got %v", store.appended)
	}
}

func TestApplier_SQLite(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	anna := &models.Person{OwnerID: "owner", Name: "Anna"}
	if err := store.CreatePerson(ctx, anna); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if _, err := store.AppendTransaction(ctx, "owner", anna.ID, &models.Transaction{
		Type: models.TransactionDebt, Amount: 4.5, Date: "2024-01-01",
	}); err != nil {
		t.Fatalf("AppendTransaction failed: %v", err)
	}

	a := NewApplier(store, 4)
	res, err := a.Commit(ctx, "owner", map[string]float64{anna.ID: 5.83, "missing": 2}, "Paragon", "2024-06-01")
	pe, ok := IsPartial(err)
	if !ok {
		t.Fatalf("Expected PartialCommitError for unknown person, got %v", err)
	}
	if diff := cmp.Diff([]string{"missing"}, pe.Failed); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}
	if got := res.Balances[anna.ID]; got != 10.33 {
		t.Errorf("Balance = %v, want 10.33", got)
	}

	got, err := store.GetPerson(ctx, "owner", anna.ID)
	if err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}
	if len(got.Transactions) != 2 || got.Transactions[1].Description != "Paragon" {
		t.Errorf("Unexpected history: %+v", got.Transactions)
	}
}
