package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

type apiResponse struct {
	Error error
	Code  int
	Body  any
}

type apiHandler func(*http.Request) *apiResponse

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func (h apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(r)

	w.Header().Add("Content-Type", "application/json")

	if resp.Error != nil {
		slog.Error(fmt.Sprintf("Error occurred: %s", resp.Error.Error()))
		w.WriteHeader(errorCode(resp.Error))
		writeJSON(w, toErrorBody(resp.Error))
		return
	}

	if resp.Code != 0 {
		w.WriteHeader(resp.Code)
	}
	writeJSON(w, resp.Body)
}

func writeJSON(w http.ResponseWriter, body any) {
	if body == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error(fmt.Sprintf("Error occurred: %s", err.Error()))
	}
}

func errorCode(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toErrorBody(err error) errorBody {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return errorBody{Error: appErr.Err.Error(), Kind: string(appErr.Kind), Retryable: appErr.Retryable}
	}

	return errorBody{Error: err.Error(), Kind: string(ErrFatal), Retryable: false}
}
