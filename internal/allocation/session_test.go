package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mmynk/debtbook/internal/ledger"
	"github.com/mmynk/debtbook/internal/models"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	user := models.User{ID: "me", Email: "ja@example.com", DisplayName: "Ja"}
	people := []*models.Person{
		{ID: "anna", Name: "Anna"},
		{ID: "bartek", Name: "Bartek"},
		{ID: "celina", Name: "Celina"},
		{ID: "wspolne", Name: "Wspólne", IsSummary: true},
	}
	return NewSession(user, people)
}

func analysisSession(t *testing.T, items ...models.LineItem) *Session {
	t.Helper()
	s := newTestSession(t)
	if err := s.SubmitImage("aGVsbG8="); err != nil {
		t.Fatalf("SubmitImage failed: %v", err)
	}
	if err := s.ExtractionSucceeded(items); err != nil {
		t.Fatalf("ExtractionSucceeded failed: %v", err)
	}
	return s
}

type recordingCommitter struct {
	mu     sync.Mutex
	calls  []map[string]float64
	failOn map[string]bool
}

func (c *recordingCommitter) Commit(_ context.Context, ownerID string, deltas map[string]float64, _, _ string) (*ledger.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, deltas)

	res := &ledger.CommitResult{Balances: map[string]float64{}}
	errs := map[string]error{}
	for id, d := range deltas {
		if c.failOn[id] {
			res.Failed = append(res.Failed, id)
			errs[id] = errors.New("boom")
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
		res.Balances[id] = d
	}
	if len(errs) > 0 {
		return res, &ledger.PartialCommitError{Succeeded: res.Succeeded, Failed: res.Failed, Errs: errs}
	}
	return res, nil
}

func TestSession_Participants(t *testing.T) {
	s := newTestSession(t)
	got := s.Participants()
	want := []Participant{
		{ID: "me", Name: "Ja", Self: true},
		{ID: "anna", Name: "Anna"},
		{ID: "bartek", Name: "Bartek"},
		{ID: "celina", Name: "Celina"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Participants mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Transitions(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		s := analysisSession(t, models.LineItem{Item: "Mleko", Price: 3.49})
		if s.State() != StateAnalysis {
			t.Fatalf("State = %v, want analysis", s.State())
		}
		if err := s.AssignAt(0, "anna"); err != nil {
			t.Fatalf("AssignAt failed: %v", err)
		}
		if _, err := s.Compute(); err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		if err := s.Back(); err != nil || s.State() != StateAnalysis {
			t.Fatalf("Back from summary: state=%v err=%v", s.State(), err)
		}
		if got := s.Assignments(); got[0] != "anna" {
			t.Errorf("Back from summary lost assignments: %v", got)
		}
		if _, err := s.Compute(); err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		c := &recordingCommitter{}
		if _, err := s.Commit(context.Background(), c, "Zakupy", ""); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if s.State() != StateCommitted {
			t.Errorf("State = %v, want committed", s.State())
		}
		if err := s.Reset(); err != nil || s.State() != StateDefault {
			t.Errorf("Reset: state=%v err=%v", s.State(), err)
		}
		if len(s.Items()) != 0 {
			t.Error("Reset should discard items")
		}
	})

	t.Run("failed extraction allows one retry", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.SubmitImage("aW1n"); err != nil {
			t.Fatal(err)
		}
		cause := errors.New("not a receipt")
		if err := s.ExtractionFailed(cause); err != nil {
			t.Fatal(err)
		}
		if s.State() != StateDefault || !errors.Is(s.Err(), cause) {
			t.Fatalf("state=%v err=%v", s.State(), s.Err())
		}
		img, err := s.Retry()
		if err != nil || img != "aW1n" {
			t.Fatalf("Retry = %q, %v", img, err)
		}
		if s.State() != StateLoading {
			t.Errorf("State = %v, want loading", s.State())
		}
		if err := s.ExtractionFailed(cause); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Retry(); !errors.Is(err, ErrNothingToRetry) {
			t.Errorf("Second retry err = %v, want ErrNothingToRetry", err)
		}
	})

	t.Run("editing is rejected while loading", func(t *testing.T) {
		s := newTestSession(t)
		if err := s.SubmitImage("aW1n"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddItem("Chleb", "4.99"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("AddItem while loading err = %v", err)
		}
		if _, err := s.CreateSubgroup([]string{"anna", "bartek"}); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("CreateSubgroup while loading err = %v", err)
		}
	})

	t.Run("illegal transitions", func(t *testing.T) {
		s := newTestSession(t)
		if _, err := s.Compute(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Compute from default err = %v", err)
		}
		if err := s.ExtractionSucceeded(nil); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("ExtractionSucceeded from default err = %v", err)
		}
		if _, err := s.Commit(context.Background(), &recordingCommitter{}, "", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Commit from default err = %v", err)
		}
		if err := s.Reset(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Reset from default err = %v", err)
		}
	})

	t.Run("cancel from any state", func(t *testing.T) {
		s := analysisSession(t, models.LineItem{Item: "Mleko", Price: 3.49})
		s.Cancel()
		if s.State() != StateCancelled || len(s.Items()) != 0 {
			t.Errorf("state=%v items=%v", s.State(), s.Items())
		}
	})

	t.Run("back from analysis discards items", func(t *testing.T) {
		s := analysisSession(t, models.LineItem{Item: "Mleko", Price: 3.49})
		if err := s.Back(); err != nil {
			t.Fatal(err)
		}
		if s.State() != StateDefault || len(s.Items()) != 0 {
			t.Errorf("state=%v items=%v", s.State(), s.Items())
		}
	})
}

func TestSession_ItemEditing(t *testing.T) {
	s := analysisSession(t, models.LineItem{Item: "Mleko", Price: 3.49})

	it, err := s.AddItem("  Chleb ", "4,99")
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if it.Name != "Chleb" || it.Price != 4.99 || it.ID == "" {
		t.Errorf("Unexpected item %+v", it)
	}

	tests := []struct {
		name  string
		item  string
		price string
		field string
	}{
		{"empty name", "   ", "1", "name"},
		{"empty price", "Ser", "", "price"},
		{"non-numeric price", "Ser", "abc", "price"},
		{"infinite price", "Ser", "Inf", "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Items()
			_, err := s.AddItem(tt.item, tt.price)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want ValidationError on %s", err, tt.field)
			}
			if diff := cmp.Diff(before, s.Items()); diff != "" {
				t.Errorf("Rejected edit mutated items:\n%s", diff)
			}
			if err := s.UpdateItemAt(0, tt.item, tt.price); !errors.As(err, &ve) {
				t.Errorf("UpdateItemAt err = %v, want ValidationError", err)
			}
			if diff := cmp.Diff(before, s.Items()); diff != "" {
				t.Errorf("Rejected update mutated items:\n%s", diff)
			}
		})
	}

	if err := s.UpdateItemAt(0, "Mleko 2%", "3.59"); err != nil {
		t.Fatalf("UpdateItemAt failed: %v", err)
	}
	if got := s.Items()[0]; got.Name != "Mleko 2%" || got.Price != 3.59 {
		t.Errorf("Update not applied: %+v", got)
	}

	if err := s.DeleteItemAt(5); err == nil {
		t.Error("Expected error deleting out of range")
	}
	if err := s.Assign(it.ID, "nobody"); err == nil {
		t.Error("Expected error assigning to unknown participant")
	}
	if err := s.Assign(it.ID, "wspolne"); err == nil {
		t.Error("Summary buckets must not be assignable")
	}
}

func TestSession_DeletePreservesOtherAssignments(t *testing.T) {
	for k := 0; k < 4; k++ {
		s := analysisSession(t,
			models.LineItem{Item: "A", Price: 1},
			models.LineItem{Item: "B", Price: 2},
			models.LineItem{Item: "C", Price: 3},
			models.LineItem{Item: "D", Price: 4},
		)
		assignees := []string{"anna", Unassigned, "bartek", "me"}
		for i, a := range assignees {
			if err := s.AssignAt(i, a); err != nil {
				t.Fatalf("AssignAt(%d) failed: %v", i, err)
			}
		}
		names := []string{"A", "B", "C", "D"}

		if err := s.DeleteItemAt(k); err != nil {
			t.Fatalf("DeleteItemAt(%d) failed: %v", k, err)
		}

		wantAssign := append(append([]string(nil), assignees[:k]...), assignees[k+1:]...)
		wantNames := append(append([]string(nil), names[:k]...), names[k+1:]...)
		if diff := cmp.Diff(wantAssign, s.Assignments()); diff != "" {
			t.Errorf("delete %d: assignments mismatch (-want +got):\n%s", k, diff)
		}
		var gotNames []string
		for _, it := range s.Items() {
			gotNames = append(gotNames, it.Name)
		}
		if diff := cmp.Diff(wantNames, gotNames); diff != "" {
			t.Errorf("delete %d: items mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestSession_Subgroups(t *testing.T) {
	s := analysisSession(t,
		models.LineItem{Item: "Pizza", Price: 10.00},
		models.LineItem{Item: "Sok", Price: 7.50},
	)

	if _, err := s.CreateSubgroup([]string{"anna"}); err == nil {
		t.Error("Expected error for single-member subgroup")
	}
	if _, err := s.CreateSubgroup([]string{"anna", "anna"}); err == nil {
		t.Error("Expected error for duplicate members")
	}
	if _, err := s.CreateSubgroup([]string{"anna", "wspolne"}); err == nil {
		t.Error("Expected error for summary bucket member")
	}

	g, err := s.CreateSubgroup([]string{"anna", "bartek", "me"})
	if err != nil {
		t.Fatalf("CreateSubgroup failed: %v", err)
	}
	if g.Name != "Anna, Bartek, Ja" {
		t.Errorf("Name = %q", g.Name)
	}
	if len(s.Subgroups()) != 1 {
		t.Errorf("Expected one subgroup, got %d", len(s.Subgroups()))
	}

	for i := range s.Items() {
		if err := s.AssignAt(i, g.ID); err != nil {
			t.Fatalf("AssignAt failed: %v", err)
		}
	}
	sum, err := s.Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	want := map[string]float64{"me": 5.83, "anna": 5.83, "bartek": 5.83, "celina": 0}
	if diff := cmp.Diff(want, sum.Deltas); diff != "" {
		t.Errorf("Deltas mismatch (-want +got):\n%s", diff)
	}
	if sum.SelfShare != 5.83 {
		t.Errorf("SelfShare = %v", sum.SelfShare)
	}
	if diff := cmp.Diff(map[string]float64{"anna": 5.83, "bartek": 5.83}, sum.Payable); diff != "" {
		t.Errorf("Payable mismatch (-want +got):\n%s", diff)
	}
	if sum.Discrepancy != 0.01 {
		t.Errorf("Discrepancy = %v, want rounding remainder 0.01", sum.Discrepancy)
	}
}

func TestSession_UnassignedDiscrepancy(t *testing.T) {
	s := analysisSession(t,
		models.LineItem{Item: "Mleko 2%", Price: 3.49},
		models.LineItem{Item: "Chleb", Price: 4.99},
		models.LineItem{Item: "Rabat", Price: -1.00},
	)
	if err := s.AssignAt(0, "anna"); err != nil {
		t.Fatal(err)
	}
	if err := s.AssignAt(2, "anna"); err != nil {
		t.Fatal(err)
	}

	sum, err := s.Compute()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Balanced() {
		t.Error("Summary with an unassigned item should not be balanced")
	}
	if sum.UnassignedCount != 1 || sum.UnassignedTotal != 4.99 {
		t.Errorf("Unassigned = %d / %v", sum.UnassignedCount, sum.UnassignedTotal)
	}
	if sum.ItemsTotal != 7.48 || sum.AssignedTotal != 2.49 {
		t.Errorf("ItemsTotal=%v AssignedTotal=%v", sum.ItemsTotal, sum.AssignedTotal)
	}
	if sum.Discrepancy != 4.99 {
		t.Errorf("Discrepancy = %v, want 4.99", sum.Discrepancy)
	}
	if diff := cmp.Diff(map[string]float64{"anna": 2.49}, sum.Payable); diff != "" {
		t.Errorf("Payable mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ComputeIsIdempotent(t *testing.T) {
	s := analysisSession(t,
		models.LineItem{Item: "A", Price: 3.33},
		models.LineItem{Item: "B", Price: 9.99},
	)
	g, err := s.CreateSubgroup([]string{"anna", "celina"})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.AssignAt(0, g.ID)
	_ = s.AssignAt(1, "bartek")

	first, err := s.Compute()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Back(); err != nil {
		t.Fatal(err)
	}
	second, err := s.Compute()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Compute not idempotent (-first +second):\n%s", diff)
	}
}

func TestSession_ManualSplit(t *testing.T) {
	s := newTestSession(t)

	sum, err := s.ManualSplit("30,00", []string{"anna", "bartek"}, true)
	if err != nil {
		t.Fatalf("ManualSplit failed: %v", err)
	}
	if diff := cmp.Diff(map[string]float64{"anna": 10, "bartek": 10}, sum.Payable); diff != "" {
		t.Errorf("Payable mismatch (-want +got):\n%s", diff)
	}
	if sum.SelfShare != 10 {
		t.Errorf("SelfShare = %v, want 10", sum.SelfShare)
	}

	c := &recordingCommitter{}
	if _, err := s.Commit(context.Background(), c, "Obiad", "2024-06-01"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, ok := c.calls[0]["me"]; ok {
		t.Error("Self share must not be committed")
	}

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			amount string
			people []string
			self   bool
			field  string
		}{
			{"zero amount", "0", []string{"anna"}, false, "amount"},
			{"negative amount", "-5", []string{"anna"}, false, "amount"},
			{"no participants", "10", nil, false, "people"},
			{"self only is allowed", "10", nil, true, ""},
			{"unknown person", "10", []string{"zenon"}, false, "people"},
			{"summary bucket", "10", []string{"wspolne"}, false, "people"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestSession(t)
				_, err := s.ManualSplit(tt.amount, tt.people, tt.self)
				if tt.field == "" {
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					return
				}
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.field {
					t.Fatalf("err = %v, want ValidationError on %s", err, tt.field)
				}
				if s.State() != StateDefault {
					t.Errorf("State = %v, want default after rejected split", s.State())
				}
			})
		}
	})
}

func TestSession_PartialCommitRetriesOnlyFailed(t *testing.T) {
	s := analysisSession(t,
		models.LineItem{Item: "A", Price: 5},
		models.LineItem{Item: "B", Price: 7},
	)
	_ = s.AssignAt(0, "anna")
	_ = s.AssignAt(1, "bartek")
	if _, err := s.Compute(); err != nil {
		t.Fatal(err)
	}

	c := &recordingCommitter{failOn: map[string]bool{"bartek": true}}
	_, err := s.Commit(context.Background(), c, "Zakupy", "")
	if _, ok := ledger.IsPartial(err); !ok {
		t.Fatalf("Expected partial commit error, got %v", err)
	}
	if s.State() != StateSummary {
		t.Fatalf("State = %v, want summary after partial failure", s.State())
	}

	c.failOn = nil
	if _, err := s.Commit(context.Background(), c, "Zakupy", ""); err != nil {
		t.Fatalf("Retry commit failed: %v", err)
	}
	if diff := cmp.Diff(map[string]float64{"bartek": 7}, c.calls[1]); diff != "" {
		t.Errorf("Retry should only include failed people (-want +got):\n%s", diff)
	}
	if s.State() != StateCommitted {
		t.Errorf("State = %v, want committed", s.State())
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"4.99", 4.99, false},
		{" 4,99 ", 4.99, false},
		{"-1.50", -1.5, false},
		{"0", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"1e400", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSession_BackAfterPartialCommit(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.ManualSplit("20", []string{"anna", "bartek"}, false); err != nil {
		t.Fatal(err)
	}
	c := &recordingCommitter{failOn: map[string]bool{"anna": true}}
	if _, err := s.Commit(context.Background(), c, "", ""); err == nil {
		t.Fatal("Expected partial failure")
	}
	if err := s.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Back after partial commit err = %v", err)
	}
}
