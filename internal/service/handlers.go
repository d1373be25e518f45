package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// AuthServiceName is the fully-qualified name of the AuthService.
	AuthServiceName = "debtbook.v1.AuthService"
	// LedgerServiceName is the fully-qualified name of the LedgerService.
	LedgerServiceName = "debtbook.v1.LedgerService"
)

const (
	AuthServiceRegisterProcedure       = "/debtbook.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/debtbook.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/debtbook.v1.AuthService/GetCurrentUser"
	AuthServiceChangePasswordProcedure = "/debtbook.v1.AuthService/ChangePassword"
	AuthServiceDeleteAccountProcedure  = "/debtbook.v1.AuthService/DeleteAccount"

	LedgerServiceListPeopleProcedure          = "/debtbook.v1.LedgerService/ListPeople"
	LedgerServiceGetPersonProcedure           = "/debtbook.v1.LedgerService/GetPerson"
	LedgerServiceAddPersonProcedure           = "/debtbook.v1.LedgerService/AddPerson"
	LedgerServiceDeletePersonProcedure        = "/debtbook.v1.LedgerService/DeletePerson"
	LedgerServiceAddDebtProcedure             = "/debtbook.v1.LedgerService/AddDebt"
	LedgerServiceAddRepaymentProcedure        = "/debtbook.v1.LedgerService/AddRepayment"
	LedgerServiceDeleteTransactionProcedure   = "/debtbook.v1.LedgerService/DeleteTransaction"
	LedgerServiceGetStatisticsProcedure       = "/debtbook.v1.LedgerService/GetStatistics"
	LedgerServiceSplitPaymentProcedure        = "/debtbook.v1.LedgerService/SplitPayment"
	LedgerServicePreviewReceiptSplitProcedure = "/debtbook.v1.LedgerService/PreviewReceiptSplit"
	LedgerServiceCommitReceiptSplitProcedure  = "/debtbook.v1.LedgerService/CommitReceiptSplit"
)

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// NewAuthServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, AuthServiceRegisterProcedure, svc.Register, opts)
	handle(mux, AuthServiceLoginProcedure, svc.Login, opts)
	handle(mux, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts)
	handle(mux, AuthServiceChangePasswordProcedure, svc.ChangePassword, opts)
	handle(mux, AuthServiceDeleteAccountProcedure, svc.DeleteAccount, opts)
	return "/" + AuthServiceName + "/", mux
}

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, LedgerServiceListPeopleProcedure, svc.ListPeople, opts)
	handle(mux, LedgerServiceGetPersonProcedure, svc.GetPerson, opts)
	handle(mux, LedgerServiceAddPersonProcedure, svc.AddPerson, opts)
	handle(mux, LedgerServiceDeletePersonProcedure, svc.DeletePerson, opts)
	handle(mux, LedgerServiceAddDebtProcedure, svc.AddDebt, opts)
	handle(mux, LedgerServiceAddRepaymentProcedure, svc.AddRepayment, opts)
	handle(mux, LedgerServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts)
	handle(mux, LedgerServiceGetStatisticsProcedure, svc.GetStatistics, opts)
	handle(mux, LedgerServiceSplitPaymentProcedure, svc.SplitPayment, opts)
	handle(mux, LedgerServicePreviewReceiptSplitProcedure, svc.PreviewReceiptSplit, opts)
	handle(mux, LedgerServiceCommitReceiptSplitProcedure, svc.CommitReceiptSplit, opts)
	return "/" + LedgerServiceName + "/", mux
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// AuthServiceClient calls the AuthService.
type AuthServiceClient struct {
	Register       *connect.Client[RegisterRequest, RegisterResponse]
	Login          *connect.Client[LoginRequest, LoginResponse]
	GetCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
	ChangePassword *connect.Client[ChangePasswordRequest, ChangePasswordResponse]
	DeleteAccount  *connect.Client[DeleteAccountRequest, DeleteAccountResponse]
}

// NewAuthServiceClient creates a client for the AuthService at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	return &AuthServiceClient{
		Register:       newClient[RegisterRequest, RegisterResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		Login:          newClient[LoginRequest, LoginResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		GetCurrentUser: newClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
		ChangePassword: newClient[ChangePasswordRequest, ChangePasswordResponse](httpClient, baseURL, AuthServiceChangePasswordProcedure, opts),
		DeleteAccount:  newClient[DeleteAccountRequest, DeleteAccountResponse](httpClient, baseURL, AuthServiceDeleteAccountProcedure, opts),
	}
}

// LedgerServiceClient calls the LedgerService.
type LedgerServiceClient struct {
	ListPeople          *connect.Client[ListPeopleRequest, ListPeopleResponse]
	GetPerson           *connect.Client[GetPersonRequest, GetPersonResponse]
	AddPerson           *connect.Client[AddPersonRequest, AddPersonResponse]
	DeletePerson        *connect.Client[DeletePersonRequest, DeletePersonResponse]
	AddDebt             *connect.Client[AddDebtRequest, TransactionResponse]
	AddRepayment        *connect.Client[AddRepaymentRequest, TransactionResponse]
	DeleteTransaction   *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	GetStatistics       *connect.Client[GetStatisticsRequest, GetStatisticsResponse]
	SplitPayment        *connect.Client[SplitPaymentRequest, SplitPaymentResponse]
	PreviewReceiptSplit *connect.Client[PreviewReceiptSplitRequest, PreviewReceiptSplitResponse]
	CommitReceiptSplit  *connect.Client[CommitReceiptSplitRequest, CommitReceiptSplitResponse]
}

// NewLedgerServiceClient creates a client for the LedgerService at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	return &LedgerServiceClient{
		ListPeople:          newClient[ListPeopleRequest, ListPeopleResponse](httpClient, baseURL, LedgerServiceListPeopleProcedure, opts),
		GetPerson:           newClient[GetPersonRequest, GetPersonResponse](httpClient, baseURL, LedgerServiceGetPersonProcedure, opts),
		AddPerson:           newClient[AddPersonRequest, AddPersonResponse](httpClient, baseURL, LedgerServiceAddPersonProcedure, opts),
		DeletePerson:        newClient[DeletePersonRequest, DeletePersonResponse](httpClient, baseURL, LedgerServiceDeletePersonProcedure, opts),
		AddDebt:             newClient[AddDebtRequest, TransactionResponse](httpClient, baseURL, LedgerServiceAddDebtProcedure, opts),
		AddRepayment:        newClient[AddRepaymentRequest, TransactionResponse](httpClient, baseURL, LedgerServiceAddRepaymentProcedure, opts),
		DeleteTransaction:   newClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL, LedgerServiceDeleteTransactionProcedure, opts),
		GetStatistics:       newClient[GetStatisticsRequest, GetStatisticsResponse](httpClient, baseURL, LedgerServiceGetStatisticsProcedure, opts),
		SplitPayment:        newClient[SplitPaymentRequest, SplitPaymentResponse](httpClient, baseURL, LedgerServiceSplitPaymentProcedure, opts),
		PreviewReceiptSplit: newClient[PreviewReceiptSplitRequest, PreviewReceiptSplitResponse](httpClient, baseURL, LedgerServicePreviewReceiptSplitProcedure, opts),
		CommitReceiptSplit:  newClient[CommitReceiptSplitRequest, CommitReceiptSplitResponse](httpClient, baseURL, LedgerServiceCommitReceiptSplitProcedure, opts),
	}
}
