//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 502, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedRoundID    = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed round ID")}
	ErrRoundNotFound       = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("round not found")}
	ErrInvalidPhase        = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not legal in current round phase")}
	ErrMaxProposalsReached = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("maximum number of proposals reached")}
	ErrInvalidProposalID   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proposal ID")}
	ErrAlreadyVoted        = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("voter already cast a ballot in this round")}
	ErrInvalidRound        = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid round ID")}
	ErrReceiptMismatch     = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ciphertext does not match stored receipt")}
	ErrUnauthorized        = Error{Code: 40014, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("caller is not the round authority")}
	ErrInsufficientFunds   = Error{Code: 40015, HTTPstatus: http.StatusPaymentRequired, Err: fmt.Errorf("insufficient funds")}
	ErrTallyBusy           = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("a tally computation is already in flight")}
	ErrMalformedPayload    = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed ciphertext or nonce")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrComputationAborted         = Error{Code: 50003, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("computation aborted")}
)
