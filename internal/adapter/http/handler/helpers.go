package handler

import (
	"encoding/json"
	"net/http"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeOperationError classifies err and writes it with the matching status.
// created is the movement persisted before a reconciliation failure, if any.
func writeOperationError(w http.ResponseWriter, err error, created *domain.Movement) {
	res := usecase.ResultOf(err)

	resp := dto.ErrorFromResult(res)
	if created != nil {
		resp.Movement = dto.MovementFromDomain(created)
	}

	w.Header().Set(dto.OutcomeHeader, string(res.Outcome))
	writeJSON(w, statusForOutcome(res.Outcome), resp)
}

// statusForOutcome maps operation outcomes to HTTP status codes.
func statusForOutcome(outcome usecase.Outcome) int {
	switch outcome {
	case usecase.OutcomeSuccess:
		return http.StatusOK
	case usecase.OutcomeValidationError, usecase.OutcomeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case usecase.OutcomeNotLastMovement, usecase.OutcomeBusy, usecase.OutcomeAccountNotEmpty:
		return http.StatusConflict
	case usecase.OutcomeNotFound:
		return http.StatusNotFound
	case usecase.OutcomeUpstreamUnavailable, usecase.OutcomeUpstreamRejected:
		return http.StatusBadGateway
	case usecase.OutcomeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
