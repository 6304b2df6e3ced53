package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pocketledger/backend/internal/middleware"
	"github.com/pocketledger/backend/internal/services"
	"github.com/shopspring/decimal"
)

type TransferHandler struct {
	transfers *services.TransferService
	validator *services.ValidationHelper
}

func NewTransferHandler(transfers *services.TransferService) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		validator: services.NewValidationHelper(),
	}
}

type mutationRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"positiveamount"`
	Category        string          `json:"category" validate:"max=100"`
	Description     string          `json:"description" validate:"max=200"`
	TransactionDate string          `json:"transactionDate" validate:"omitempty"`
}

type transferRequest struct {
	FromAccountID   int64           `json:"fromAccountId" validate:"required,gt=0"`
	ToAccountID     int64           `json:"toAccountId" validate:"required,gt=0"`
	Amount          decimal.Decimal `json:"amount" validate:"positiveamount"`
	Description     string          `json:"description" validate:"max=200"`
	TransactionDate string          `json:"transactionDate" validate:"omitempty"`
}

// Deposit credits an amount to an account
// @Summary Deposit into account
// @Tags transfers
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /accounts/{accountId}/deposit [post]
func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := pathID(chi.URLParam(r, "accountId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	req, txDate, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	entry, newBalance, err := h.transfers.Deposit(accountID, userID, req.Amount, req.Category, req.Description, txDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": entry,
		"newBalance":  newBalance,
	})
}

// Withdraw debits an amount from an account
// @Summary Withdraw from account
// @Tags transfers
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{accountId}/withdraw [post]
func (h *TransferHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := pathID(chi.URLParam(r, "accountId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	req, txDate, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	entry, newBalance, err := h.transfers.Withdraw(accountID, userID, req.Amount, req.Category, req.Description, txDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": entry,
		"newBalance":  newBalance,
	})
}

// Transfer moves an amount between two accounts atomically
// @Summary Transfer between accounts
// @Tags transfers
// @Accept json
// @Produce json
// @Success 200 {object} services.TransferResult
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req transferRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txDate, ok := parseTransactionDate(w, req.TransactionDate)
	if !ok {
		return
	}

	result, err := h.transfers.Transfer(req.FromAccountID, req.ToAccountID, userID, req.Amount, req.Description, txDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *TransferHandler) decodeMutation(w http.ResponseWriter, r *http.Request) (*mutationRequest, time.Time, bool) {
	var req mutationRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return nil, time.Time{}, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return nil, time.Time{}, false
	}

	txDate, ok := parseTransactionDate(w, req.TransactionDate)
	if !ok {
		return nil, time.Time{}, false
	}
	return &req, txDate, true
}

// parseTransactionDate parses the optional business timestamp. Empty means
// "now", decided by the service.
func parseTransactionDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		services.SendErrorResponse(w, "transactionDate must be RFC3339", http.StatusBadRequest, nil)
		return time.Time{}, false
	}
	return t, true
}
