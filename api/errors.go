package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sealedvote/sealedvote/ledger"
	"github.com/sealedvote/sealedvote/rounds"
	"github.com/sealedvote/sealedvote/storage"
	"go.vocdoni.io/dvote/log"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"round not found","code":4007}
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually include the error string,
	// since it wouldn't be marshaled otherwise. (json.Marshal doesn't call Err.Error())
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the message contained inside the API error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Write serializes the error as JSON and sends it with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of Error with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of Error with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// fromDomain maps a domain error to its API error, preserving the original
// message as detail.
func fromDomain(err error) Error {
	switch {
	case errors.Is(err, rounds.ErrInvalidPhase):
		return ErrInvalidPhase.WithErr(err)
	case errors.Is(err, rounds.ErrMaxProposalsReached):
		return ErrMaxProposalsReached
	case errors.Is(err, rounds.ErrInvalidProposalID):
		return ErrInvalidProposalID.WithErr(err)
	case errors.Is(err, rounds.ErrAlreadyVoted):
		return ErrAlreadyVoted
	case errors.Is(err, rounds.ErrInvalidRound):
		return ErrInvalidRound.WithErr(err)
	case errors.Is(err, rounds.ErrReceiptMismatch):
		return ErrReceiptMismatch
	case errors.Is(err, rounds.ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, rounds.ErrTallyBusy):
		return ErrTallyBusy
	case errors.Is(err, rounds.ErrComputationAborted):
		return ErrComputationAborted.WithErr(err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds.WithErr(err)
	case errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
