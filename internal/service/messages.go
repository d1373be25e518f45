package service

// Request and response messages of the debtbook.v1 services.

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User User `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ChangePasswordResponse struct{}

// DeleteAccountRequest confirms account removal with the current password.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type DeleteAccountResponse struct{}

// Transaction is one entry of a person's history.
type Transaction struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Timestamp   int64   `json:"timestamp"`
	Method      string  `json:"method,omitempty"`
}

// Person is a ledger entry with its history.
type Person struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	TotalDebt    float64       `json:"totalDebt"`
	IsSummary    bool          `json:"isSummary"`
	CreatedAt    int64         `json:"createdAt"`
	Transactions []Transaction `json:"transactions"`
}

type ListPeopleRequest struct{}

type ListPeopleResponse struct {
	People []Person `json:"people"`
}

type GetPersonRequest struct {
	PersonID string `json:"personId"`
}

type GetPersonResponse struct {
	Person Person `json:"person"`
}

type AddPersonRequest struct {
	Name      string `json:"name"`
	IsSummary bool   `json:"isSummary"`
}

type AddPersonResponse struct {
	Person Person `json:"person"`
}

type DeletePersonRequest struct {
	PersonID string `json:"personId"`
}

type DeletePersonResponse struct{}

type AddDebtRequest struct {
	PersonID    string  `json:"personId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type AddRepaymentRequest struct {
	PersonID    string  `json:"personId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Method      string  `json:"method"`
}

// TransactionResponse is returned by AddDebt and AddRepayment.
type TransactionResponse struct {
	Transaction Transaction `json:"transaction"`
	TotalDebt   float64     `json:"totalDebt"`
}

type DeleteTransactionRequest struct {
	PersonID string `json:"personId"`
	Position int    `json:"position"`
}

type DeleteTransactionResponse struct {
	Person Person `json:"person"`
}

type GetStatisticsRequest struct{}

type UnpaidDebt struct {
	PersonID    string  `json:"personId"`
	PersonName  string  `json:"personName"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Remaining   float64 `json:"remaining"`
}

type Debtor struct {
	PersonID  string  `json:"personId"`
	Name      string  `json:"name"`
	TotalDebt float64 `json:"totalDebt"`
}

type GetStatisticsResponse struct {
	TotalDebt            float64        `json:"totalDebt"`
	RepaymentMethods     map[string]int `json:"repaymentMethods"`
	AverageRepaymentDays int            `json:"averageRepaymentDays"`
	OldestUnpaidDebt     *UnpaidDebt    `json:"oldestUnpaidDebt,omitempty"`
	TopDebtors           []Debtor       `json:"topDebtors"`
}

// SplitSummary is the computed allocation shown before and after commit.
type SplitSummary struct {
	Deltas          map[string]float64 `json:"deltas"`
	SelfShare       float64            `json:"selfShare"`
	Payable         map[string]float64 `json:"payable"`
	PayableTotal    float64            `json:"payableTotal"`
	ItemsTotal      float64            `json:"itemsTotal"`
	AssignedTotal   float64            `json:"assignedTotal"`
	UnassignedCount int                `json:"unassignedCount"`
	UnassignedTotal float64            `json:"unassignedTotal"`
	Discrepancy     float64            `json:"discrepancy"`
}

// CommitOutcome lists who was charged.
type CommitOutcome struct {
	Committed []string           `json:"committed"`
	Balances  map[string]float64 `json:"balances"`
}

type SplitPaymentRequest struct {
	Amount      float64  `json:"amount"`
	PersonIDs   []string `json:"personIds"`
	IncludeSelf bool     `json:"includeSelf"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

type SplitPaymentResponse struct {
	Summary SplitSummary  `json:"summary"`
	Outcome CommitOutcome `json:"outcome"`
}

// ReceiptItem is one line of a receipt split. Assignee is empty, a person ID,
// the current user's ID, or the Key of a subgroup in the same request.
type ReceiptItem struct {
	Item     string  `json:"item"`
	Price    float64 `json:"price"`
	Assignee string  `json:"assignee"`
}

// SubgroupSpec defines an ad-hoc subgroup. Key is chosen by the client and is
// only meaningful within one request.
type SubgroupSpec struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
}

// Subgroup is a subgroup as created for the split.
type Subgroup struct {
	Key     string   `json:"key"`
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type PreviewReceiptSplitRequest struct {
	Items     []ReceiptItem  `json:"items"`
	Subgroups []SubgroupSpec `json:"subgroups"`
}

type PreviewReceiptSplitResponse struct {
	Summary   SplitSummary `json:"summary"`
	Subgroups []Subgroup   `json:"subgroups"`
}

type CommitReceiptSplitRequest struct {
	Items       []ReceiptItem  `json:"items"`
	Subgroups   []SubgroupSpec `json:"subgroups"`
	Description string         `json:"description"`
	Date        string         `json:"date"`
}

type CommitReceiptSplitResponse struct {
	Summary SplitSummary  `json:"summary"`
	Outcome CommitOutcome `json:"outcome"`
}
