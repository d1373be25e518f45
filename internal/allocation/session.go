package allocation

import (
	"context"
	"strings"

	"github.com/mmynk/debtbook/internal/ledger"
	"github.com/mmynk/debtbook/internal/models"
)

// Participant is someone who can be assigned items: the current user or one of
// their people.
type Participant struct {
	ID   string
	Name string
	Self bool
}

// Committer persists the payable part of a summary.
// *ledger.Applier satisfies it.
type Committer interface {
	Commit(ctx context.Context, ownerID string, deltas map[string]float64, description, date string) (*ledger.CommitResult, error)
}

// Session is one group-payment flow. The zero value is not usable; call NewSession.
type Session struct {
	self         Participant
	participants map[string]Participant
	order        []string

	state State

	image   string
	lastErr error

	items       map[string]*Item
	itemOrder   []string
	assignments map[string]string

	subgroups     map[string]*Subgroup
	subgroupOrder []string

	summary   *Summary
	manual    bool
	committed map[string]bool
}

// NewSession starts a session in StateDefault for user with the given people.
// Summary buckets never take part in a split and are left out.
func NewSession(user models.User, people []*models.Person) *Session {
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = user.Email
	}
	s := &Session{
		self:         Participant{ID: user.ID, Name: name, Self: true},
		participants: make(map[string]Participant, len(people)+1),
	}
	s.participants[s.self.ID] = s.self
	s.order = append(s.order, s.self.ID)
	for _, p := range people {
		if p == nil || p.IsSummary {
			continue
		}
		if _, dup := s.participants[p.ID]; dup {
			continue
		}
		s.participants[p.ID] = Participant{ID: p.ID, Name: p.Name}
		s.order = append(s.order, p.ID)
	}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.items = make(map[string]*Item)
	s.itemOrder = nil
	s.assignments = make(map[string]string)
	s.subgroups = make(map[string]*Subgroup)
	s.subgroupOrder = nil
	s.summary = nil
	s.manual = false
	s.committed = make(map[string]bool)
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Self returns the current user as a participant.
func (s *Session) Self() Participant { return s.self }

// Participants returns the current user followed by every known person.
func (s *Session) Participants() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.participants[id])
	}
	return out
}

// Err returns the error of the last failed extraction, if any.
func (s *Session) Err() error { return s.lastErr }

// SubmitImage starts extraction of a receipt image (Default -> Loading).
// The image is retained until extraction succeeds so a failure can be retried.
func (s *Session) SubmitImage(imageBase64 string) error {
	if s.state != StateDefault {
		return transitionError("submit image", s.state)
	}
	if strings.TrimSpace(imageBase64) == "" {
		return invalid("image", "Select a receipt image first.")
	}
	s.image = imageBase64
	s.lastErr = nil
	s.state = StateLoading
	return nil
}

// Retry re-submits the image retained from a failed extraction and returns it.
// The image is released on use, so each failure allows one retry.
func (s *Session) Retry() (string, error) {
	if s.state != StateDefault {
		return "", transitionError("retry", s.state)
	}
	if s.image == "" || s.lastErr == nil {
		return "", ErrNothingToRetry
	}
	img := s.image
	s.image = ""
	s.lastErr = nil
	s.state = StateLoading
	return img, nil
}

// ExtractionSucceeded loads the extracted items, all unassigned (Loading -> Analysis).
func (s *Session) ExtractionSucceeded(items []models.LineItem) error {
	if s.state != StateLoading {
		return transitionError("extraction result", s.state)
	}
	s.clear()
	for _, li := range items {
		s.appendItem(strings.TrimSpace(li.Item), li.Price)
	}
	s.image = ""
	s.state = StateAnalysis
	return nil
}

// ExtractionFailed returns to Default keeping the image for Retry (Loading -> Default).
func (s *Session) ExtractionFailed(err error) error {
	if s.state != StateLoading {
		return transitionError("extraction failure", s.state)
	}
	s.lastErr = err
	s.state = StateDefault
	return nil
}

// StartManual begins item entry without a receipt (Default -> Analysis).
func (s *Session) StartManual() error {
	if s.state != StateDefault {
		return transitionError("manual entry", s.state)
	}
	s.clear()
	s.image = ""
	s.lastErr = nil
	s.state = StateAnalysis
	return nil
}

// Back steps back one phase: Analysis -> Default discards the items,
// Summary -> Analysis keeps them. A manual split summary goes back to Default.
// Once part of a summary is committed it can only be finished or cancelled.
func (s *Session) Back() error {
	switch s.state {
	case StateAnalysis:
		s.clear()
		s.state = StateDefault
	case StateSummary:
		if len(s.committed) > 0 {
			return transitionError("back after partial commit", s.state)
		}
		if s.manual {
			s.clear()
			s.state = StateDefault
			return nil
		}
		s.summary = nil
		s.state = StateAnalysis
	default:
		return transitionError("back", s.state)
	}
	return nil
}

// Compute allocates the items and moves to review (Analysis -> Summary).
func (s *Session) Compute() (*Summary, error) {
	if s.state != StateAnalysis {
		return nil, transitionError("compute", s.state)
	}
	s.summary = s.summarize()
	s.state = StateSummary
	return s.summary, nil
}

// Summary returns the summary under review, or nil outside StateSummary and StateCommitted.
func (s *Session) Summary() *Summary { return s.summary }

// Commit persists every positive delta except the user's own share
// (Summary -> Committed). On a partial failure the session stays in Summary and
// remembers who was already charged, so a later Commit only retries the rest.
func (s *Session) Commit(ctx context.Context, c Committer, description, date string) (*ledger.CommitResult, error) {
	if s.state != StateSummary {
		return nil, transitionError("commit", s.state)
	}

	pending := make(map[string]float64, len(s.summary.Payable))
	for id, amount := range s.summary.Payable {
		if !s.committed[id] {
			pending[id] = amount
		}
	}

	res, err := c.Commit(ctx, s.self.ID, pending, strings.TrimSpace(description), date)
	if res != nil {
		for _, id := range res.Succeeded {
			s.committed[id] = true
		}
	}
	if err != nil {
		return res, err
	}

	s.state = StateCommitted
	return res, nil
}

// Cancel abandons the session from any state, discarding all working data.
func (s *Session) Cancel() {
	s.clear()
	s.image = ""
	s.lastErr = nil
	s.state = StateCancelled
}

// Reset returns a finished session to Default.
func (s *Session) Reset() error {
	if s.state != StateCommitted && s.state != StateCancelled {
		return transitionError("reset", s.state)
	}
	s.clear()
	s.image = ""
	s.lastErr = nil
	s.state = StateDefault
	return nil
}
