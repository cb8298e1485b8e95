package rpc

import (
	"errors"
	"net/http"

	"marketchain/core"
	"marketchain/native/bank"
	"marketchain/native/common"
	"marketchain/native/nft"
	"marketchain/rpc/middleware"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = middleware.CodeUnauthorized
)

// Ledger error codes. Values are stable across releases.
const (
	codeNotOwnerOrNotApproved   = -32101
	codeRecordNotFound          = -32102
	codeInvalidState            = -32103
	codePaymentMismatch         = -32104
	codeZeroValueOffer          = -32105
	codeBidTooLow               = -32106
	codeAuctionExpired          = -32107
	codeAlreadyConcluded        = -32108
	codeInvalidFeeConfiguration = -32109
	codeTransferFailed          = -32110
	codeModulePaused            = -32111
	codeNonceMismatch           = -32112
	codeInsufficientBalance     = -32113
)

// RPCError is the JSON-RPC error object. Handlers return it to control the
// code and HTTP status directly.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return e.Message }

func newRPCError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string) *RPCError {
	return newRPCError(http.StatusBadRequest, codeInvalidParams, message, nil)
}

func unauthorized(message string) *RPCError {
	return newRPCError(http.StatusUnauthorized, codeUnauthorized, message, nil)
}

var errorCodes = []struct {
	target error
	code   int
	status int
}{
	{core.ErrNonceMismatch, codeNonceMismatch, http.StatusConflict},
	{core.ErrInvalidPayload, codeInvalidParams, http.StatusBadRequest},
	{core.ErrUnknownTxType, codeInvalidParams, http.StatusBadRequest},
	{common.ErrModulePaused, codeModulePaused, http.StatusServiceUnavailable},
	{common.ErrNotOwnerOrNotApproved, codeNotOwnerOrNotApproved, http.StatusForbidden},
	{common.ErrRecordNotFound, codeRecordNotFound, http.StatusNotFound},
	{common.ErrAlreadyConcluded, codeAlreadyConcluded, http.StatusConflict},
	{common.ErrAuctionExpired, codeAuctionExpired, http.StatusConflict},
	{common.ErrInvalidState, codeInvalidState, http.StatusConflict},
	{common.ErrPaymentMismatch, codePaymentMismatch, http.StatusBadRequest},
	{common.ErrZeroValueOffer, codeZeroValueOffer, http.StatusBadRequest},
	{common.ErrBidTooLow, codeBidTooLow, http.StatusBadRequest},
	{common.ErrInvalidFeeConfiguration, codeInvalidFeeConfiguration, http.StatusBadRequest},
	{common.ErrTransferFailed, codeTransferFailed, http.StatusConflict},
	{bank.ErrInsufficientBalance, codeInsufficientBalance, http.StatusBadRequest},
	{bank.ErrNegativeAmount, codeInvalidParams, http.StatusBadRequest},
	{nft.ErrZeroAddress, codeInvalidParams, http.StatusBadRequest},
}

// toRPCError classifies err into a JSON-RPC error. Unknown errors become
// server errors without leaking their text.
func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.target) {
			return newRPCError(entry.status, entry.code, err.Error(), nil)
		}
	}
	return newRPCError(http.StatusInternalServerError, codeServerError, "internal error", nil)
}
