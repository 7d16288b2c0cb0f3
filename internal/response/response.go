// Package response shapes the wallet API's JSON envelope. Errors carry a
// stable machine-readable code alongside the human message so bot frontends
// can branch without string-matching.
package response

import (
	"encoding/json"
	"net/http"
)

// Code classifies an API error for programmatic callers.
type Code string

const (
	CodeInvalidRequest    Code = "invalid_request"
	CodeInvalidToken      Code = "invalid_token"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeNotFound          Code = "not_found"
	CodeMintUnreachable   Code = "mint_unreachable"
	CodeInternal          Code = "internal_error"
)

type APIResponse struct {
	Status  string `json:"status"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Status: "success",
		Data:   data,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func Error(w http.ResponseWriter, status int, code Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := APIResponse{
		Status:  "error",
		Code:    code,
		Message: msg,
	}
	_ = json.NewEncoder(w).Encode(resp)
}
