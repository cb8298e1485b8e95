package middleware

import (
	"encoding/json"
	"net/http"
)

// JSON-RPC error codes raised before a request reaches a method handler.
const (
	CodeUnauthorized = -32001
	CodeRateLimited  = -32020
)

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcErrorResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Error   rpcError    `json:"error"`
}

// WriteRPCError writes a JSON-RPC 2.0 error envelope with a null id.
func WriteRPCError(w http.ResponseWriter, status int, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: "2.0",
		Error:   rpcError{Code: code, Message: message, Data: data},
	})
}
