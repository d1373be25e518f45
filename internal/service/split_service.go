package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/debtbook/internal/allocation"
	"github.com/mmynk/debtbook/internal/ledger"
)

// DefaultSplitDescription is used for committed splits without a description.
const DefaultSplitDescription = "Płatność grupowa"

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toSummary(sum *allocation.Summary) SplitSummary {
	return SplitSummary{
		Deltas:          sum.Deltas,
		SelfShare:       sum.SelfShare,
		Payable:         sum.Payable,
		PayableTotal:    sum.PayableTotal(),
		ItemsTotal:      sum.ItemsTotal,
		AssignedTotal:   sum.AssignedTotal,
		UnassignedCount: sum.UnassignedCount,
		UnassignedTotal: sum.UnassignedTotal,
		Discrepancy:     sum.Discrepancy,
	}
}

func toOutcome(res *ledger.CommitResult) CommitOutcome {
	out := CommitOutcome{Committed: []string{}, Balances: map[string]float64{}}
	if res == nil {
		return out
	}
	out.Committed = append(out.Committed, res.Succeeded...)
	for id, b := range res.Balances {
		out.Balances[id] = b
	}
	return out
}

func describe(description string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return DefaultSplitDescription
}

// newSession starts an allocation session for the current user and their people.
func (s *LedgerService) newSession(ctx context.Context) (*allocation.Session, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	people, err := s.store.ListPeople(ctx, user.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListPeople", err)
	}
	return allocation.NewSession(user, people), nil
}

// loadReceipt replays a receipt split request into a session in Analysis.
func (s *LedgerService) loadReceipt(ctx context.Context, items []ReceiptItem, specs []SubgroupSpec) (*allocation.Session, []Subgroup, error) {
	session, err := s.newSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := session.StartManual(); err != nil {
		return nil, nil, toConnectError(s.logger, "StartManual", err)
	}

	keys := make(map[string]string, len(specs))
	subgroups := make([]Subgroup, 0, len(specs))
	for i, spec := range specs {
		if spec.Key == "" {
			return nil, nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("subgroup %d: key is required", i))
		}
		if _, dup := keys[spec.Key]; dup {
			return nil, nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("subgroup key %q is used twice", spec.Key))
		}
		g, err := session.CreateSubgroup(spec.Members)
		if err != nil {
			return nil, nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("subgroup %q: %w", spec.Key, err))
		}
		keys[spec.Key] = g.ID
		subgroups = append(subgroups, Subgroup{Key: spec.Key, ID: g.ID, Name: g.Name, Members: g.Members})
	}

	for i, it := range items {
		added, err := session.AddItem(it.Item, formatAmount(it.Price))
		if err != nil {
			return nil, nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("item %d: %w", i, err))
		}
		assignee := it.Assignee
		if id, ok := keys[assignee]; ok {
			assignee = id
		}
		if err := session.Assign(added.ID, assignee); err != nil {
			return nil, nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("item %d: %w", i, err))
		}
	}
	return session, subgroups, nil
}

// PreviewReceiptSplit computes the per-person debts of an itemized receipt
// without persisting anything.
func (s *LedgerService) PreviewReceiptSplit(ctx context.Context, req *connect.Request[PreviewReceiptSplitRequest]) (*connect.Response[PreviewReceiptSplitResponse], error) {
	session, subgroups, err := s.loadReceipt(ctx, req.Msg.Items, req.Msg.Subgroups)
	if err != nil {
		return nil, err
	}
	sum, err := session.Compute()
	if err != nil {
		return nil, toConnectError(s.logger, "PreviewReceiptSplit", err)
	}
	return connect.NewResponse(&PreviewReceiptSplitResponse{Summary: toSummary(sum), Subgroups: subgroups}), nil
}

// CommitReceiptSplit computes an itemized receipt split and records a debt for
// every person with a positive share. The user's own share is not recorded.
func (s *LedgerService) CommitReceiptSplit(ctx context.Context, req *connect.Request[CommitReceiptSplitRequest]) (*connect.Response[CommitReceiptSplitResponse], error) {
	session, _, err := s.loadReceipt(ctx, req.Msg.Items, req.Msg.Subgroups)
	if err != nil {
		return nil, err
	}
	if err := validDate(req.Msg.Date); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	sum, err := session.Compute()
	if err != nil {
		return nil, toConnectError(s.logger, "CommitReceiptSplit", err)
	}
	if !sum.Balanced() {
		s.logger.Warn("Committing receipt with unassigned items",
			"user_id", session.Self().ID,
			"unassigned", sum.UnassignedCount,
			"discrepancy", sum.Discrepancy,
		)
	}

	res, err := session.Commit(ctx, s.committer, describe(req.Msg.Description), req.Msg.Date)
	if err != nil {
		return nil, toConnectError(s.logger, "CommitReceiptSplit", err)
	}

	s.logger.Info("Receipt split committed", "user_id", session.Self().ID, "people", len(res.Succeeded))
	return connect.NewResponse(&CommitReceiptSplitResponse{Summary: toSummary(sum), Outcome: toOutcome(res)}), nil
}

// SplitPayment divides an amount evenly among the selected people, optionally
// counting the user, and records each person's share as a debt.
func (s *LedgerService) SplitPayment(ctx context.Context, req *connect.Request[SplitPaymentRequest]) (*connect.Response[SplitPaymentResponse], error) {
	session, err := s.newSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validDate(req.Msg.Date); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sum, err := session.ManualSplit(formatAmount(req.Msg.Amount), req.Msg.PersonIDs, req.Msg.IncludeSelf)
	if err != nil {
		return nil, toConnectError(s.logger, "SplitPayment", err)
	}

	res, err := session.Commit(ctx, s.committer, describe(req.Msg.Description), req.Msg.Date)
	if err != nil {
		return nil, toConnectError(s.logger, "SplitPayment", err)
	}

	s.logger.Info("Payment split committed",
		"user_id", session.Self().ID,
		"amount", req.Msg.Amount,
		"people", len(res.Succeeded),
	)
	return connect.NewResponse(&SplitPaymentResponse{Summary: toSummary(sum), Outcome: toOutcome(res)}), nil
}
