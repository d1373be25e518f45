package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/debtbook/internal/allocation"
	"github.com/mmynk/debtbook/internal/auth"
	"github.com/mmynk/debtbook/internal/calculator"
	"github.com/mmynk/debtbook/internal/middleware"
	"github.com/mmynk/debtbook/internal/models"
	"github.com/mmynk/debtbook/internal/storage"
)

// DefaultRepaymentMethod is recorded when a repayment names no method.
const DefaultRepaymentMethod = "Gotówka"

// LedgerService implements the LedgerService RPC interface. Every procedure
// operates on the ledger of the authenticated user.
type LedgerService struct {
	store     storage.Store
	committer allocation.Committer
	logger    *slog.Logger
}

// NewLedgerService creates a ledger service. committer applies split results;
// *ledger.Applier is the production implementation.
func NewLedgerService(store storage.Store, committer allocation.Committer, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: store, committer: committer, logger: logger}
}

func currentUser(ctx context.Context) (models.User, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return models.User{}, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return models.User{ID: id, Email: middleware.GetEmail(ctx), DisplayName: middleware.GetDisplayName(ctx)}, nil
}

func toTransaction(t models.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date,
		Timestamp:   t.Timestamp,
		Method:      t.Method,
	}
}

func toPerson(p *models.Person) Person {
	txs := make([]Transaction, len(p.Transactions))
	for i, t := range p.Transactions {
		txs[i] = toTransaction(t)
	}
	return Person{
		ID:           p.ID,
		Name:         p.Name,
		TotalDebt:    p.TotalDebt,
		IsSummary:    p.IsSummary,
		CreatedAt:    p.CreatedAt,
		Transactions: txs,
	}
}

func validDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("date %q must be in YYYY-MM-DD format", date)
	}
	return nil
}

// ListPeople returns every person of the user with their history.
func (s *LedgerService) ListPeople(ctx context.Context, _ *connect.Request[ListPeopleRequest]) (*connect.Response[ListPeopleResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	people, err := s.store.ListPeople(ctx, user.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListPeople", err)
	}

	resp := &ListPeopleResponse{People: make([]Person, len(people))}
	for i, p := range people {
		resp.People[i] = toPerson(p)
	}
	return connect.NewResponse(resp), nil
}

// GetPerson returns one person with their history.
func (s *LedgerService) GetPerson(ctx context.Context, req *connect.Request[GetPersonRequest]) (*connect.Response[GetPersonResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.PersonID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("person_id is required"))
	}

	p, err := s.store.GetPerson(ctx, user.ID, req.Msg.PersonID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetPerson", err)
	}
	return connect.NewResponse(&GetPersonResponse{Person: toPerson(p)}), nil
}

// AddPerson creates a person with a zero balance.
func (s *LedgerService) AddPerson(ctx context.Context, req *connect.Request[AddPersonRequest]) (*connect.Response[AddPersonResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}

	p := &models.Person{OwnerID: user.ID, Name: name, IsSummary: req.Msg.IsSummary}
	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, toConnectError(s.logger, "AddPerson", err)
	}

	s.logger.Info("Person added", "user_id", user.ID, "person_id", p.ID, "summary", p.IsSummary)
	return connect.NewResponse(&AddPersonResponse{Person: toPerson(p)}), nil
}

// DeletePerson removes a person and their history.
func (s *LedgerService) DeletePerson(ctx context.Context, req *connect.Request[DeletePersonRequest]) (*connect.Response[DeletePersonResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeletePerson(ctx, user.ID, req.Msg.PersonID); err != nil {
		return nil, toConnectError(s.logger, "DeletePerson", err)
	}

	s.logger.Info("Person deleted", "user_id", user.ID, "person_id", req.Msg.PersonID)
	return connect.NewResponse(&DeletePersonResponse{}), nil
}

func (s *LedgerService) appendTransaction(ctx context.Context, op, personID string, tx *models.Transaction) (*connect.Response[TransactionResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) || calculator.Round2(tx.Amount) <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, calculator.ErrInvalidAmount)
	}
	if err := validDate(tx.Date); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	tx.Amount = calculator.Round2(tx.Amount)
	tx.Description = strings.TrimSpace(tx.Description)

	total, err := s.store.AppendTransaction(ctx, user.ID, personID, tx)
	if err != nil {
		return nil, toConnectError(s.logger, op, err)
	}

	s.logger.Info("Transaction recorded",
		"user_id", user.ID,
		"person_id", personID,
		"type", tx.Type,
		"amount", tx.Amount,
		"total_debt", total,
	)
	return connect.NewResponse(&TransactionResponse{Transaction: toTransaction(*tx), TotalDebt: total}), nil
}

// AddDebt records that the person owes the user more.
func (s *LedgerService) AddDebt(ctx context.Context, req *connect.Request[AddDebtRequest]) (*connect.Response[TransactionResponse], error) {
	return s.appendTransaction(ctx, "AddDebt", req.Msg.PersonID, &models.Transaction{
		Type:        models.TransactionDebt,
		Amount:      req.Msg.Amount,
		Description: req.Msg.Description,
		Date:        req.Msg.Date,
	})
}

// AddRepayment records money the person paid back.
func (s *LedgerService) AddRepayment(ctx context.Context, req *connect.Request[AddRepaymentRequest]) (*connect.Response[TransactionResponse], error) {
	method := strings.TrimSpace(req.Msg.Method)
	if method == "" {
		method = DefaultRepaymentMethod
	}
	return s.appendTransaction(ctx, "AddRepayment", req.Msg.PersonID, &models.Transaction{
		Type:        models.TransactionRepayment,
		Amount:      req.Msg.Amount,
		Description: req.Msg.Description,
		Date:        req.Msg.Date,
		Method:      method,
	})
}

// DeleteTransaction removes the entry at a 0-based position of the history and
// reverses its effect on the balance.
func (s *LedgerService) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteTransaction(ctx, user.ID, req.Msg.PersonID, req.Msg.Position); err != nil {
		return nil, toConnectError(s.logger, "DeleteTransaction", err)
	}
	p, err := s.store.GetPerson(ctx, user.ID, req.Msg.PersonID)
	if err != nil {
		return nil, toConnectError(s.logger, "DeleteTransaction", err)
	}

	s.logger.Info("Transaction deleted", "user_id", user.ID, "person_id", p.ID, "position", req.Msg.Position)
	return connect.NewResponse(&DeleteTransactionResponse{Person: toPerson(p)}), nil
}

// GetStatistics aggregates the user's ledger.
func (s *LedgerService) GetStatistics(ctx context.Context, _ *connect.Request[GetStatisticsRequest]) (*connect.Response[GetStatisticsResponse], error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	people, err := s.store.ListPeople(ctx, user.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetStatistics", err)
	}
	values := make([]models.Person, len(people))
	for i, p := range people {
		values[i] = *p
	}
	stats := calculator.Summarize(values)

	resp := &GetStatisticsResponse{
		TotalDebt:            stats.TotalDebt,
		RepaymentMethods:     stats.RepaymentMethods,
		AverageRepaymentDays: stats.AverageRepaymentDays,
		TopDebtors:           make([]Debtor, len(stats.TopDebtors)),
	}
	for i, d := range stats.TopDebtors {
		resp.TopDebtors[i] = Debtor{PersonID: d.PersonID, Name: d.Name, TotalDebt: d.TotalDebt}
	}
	if u := stats.OldestUnpaidDebt; u != nil {
		resp.OldestUnpaidDebt = &UnpaidDebt{
			PersonID:    u.PersonID,
			PersonName:  u.PersonName,
			Description: u.Description,
			Date:        u.Date,
			Amount:      u.Amount,
			Remaining:   u.Remaining,
		}
	}
	return connect.NewResponse(resp), nil
}
