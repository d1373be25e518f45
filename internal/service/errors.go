package service

import (
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/debtbook/internal/allocation"
	"github.com/mmynk/debtbook/internal/ledger"
	"github.com/mmynk/debtbook/internal/storage"
)

// CommittedHeader is the error metadata key listing the person IDs that were
// charged before a commit failed part-way.
const CommittedHeader = "Debtbook-Committed"

// errInternal replaces the details of unexpected failures sent to clients.
var errInternal = errors.New("internal error")

// toConnectError maps domain errors to Connect codes. Unknown errors are logged
// and returned as CodeInternal without their details.
func toConnectError(logger *slog.Logger, op string, err error) error {
	var ve *allocation.ValidationError
	var pe *ledger.PartialCommitError
	switch {
	case errors.As(err, &ve):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &pe):
		logger.Error(op+" partially failed", "committed", pe.Succeeded, "failed", pe.Failed)
		cerr := connect.NewError(connect.CodeAborted, err)
		cerr.Meta().Set(CommittedHeader, strings.Join(pe.Succeeded, ","))
		return cerr
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrInvalidPosition):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, allocation.ErrInvalidTransition):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	logger.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, errInternal)
}
