package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pocketledger/backend/internal/middleware"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/services"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	accounts  *services.AccountService
	validator *services.ValidationHelper
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

type createAccountRequest struct {
	Name           string          `json:"name" validate:"required,max=100"`
	AccountType    string          `json:"accountType" validate:"required,accounttype"`
	Color          string          `json:"color" validate:"max=20"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

type updateAccountRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	AccountType string `json:"accountType" validate:"required,accounttype"`
	Color       string `json:"color" validate:"max=20"`
}

// CreateAccount opens a new account for the authenticated user
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Success 201 {object} models.Account
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req createAccountRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.CreateAccount(userID, req.Name, models.AccountType(req.AccountType), req.Color, req.OpeningBalance)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// ListAccounts returns all accounts owned by the authenticated user
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accounts, err := h.accounts.ListAccounts(userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount returns a single account
// @Summary Get account by id
// @Tags accounts
// @Produce json
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := h.accounts.GetAccount(accountID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// UpdateAccount edits account metadata (name, type, color)
// @Summary Update account
// @Tags accounts
// @Accept json
// @Produce json
// @Success 200 {object} models.Account
// @Router /accounts/{accountId} [put]
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
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

	var req updateAccountRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.UpdateAccount(accountID, userID, req.Name, models.AccountType(req.AccountType), req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount removes an account with zero balance
// @Summary Delete account
// @Tags accounts
// @Success 204
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/{accountId} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
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

	if err := h.accounts.DeleteAccount(accountID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAccountTransactions lists ledger entries for one account
// @Summary List account transactions
// @Tags transactions
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} models.Transaction
// @Router /accounts/{accountId}/transactions [get]
func (h *AccountHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
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

	transactions, err := h.accounts.AccountTransactions(accountID, userID, queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// RecentTransactions lists the newest entries across the user's accounts
// @Summary Recent transactions
// @Tags transactions
// @Produce json
// @Param limit query int false "Max entries (default 10, max 100)"
// @Success 200 {array} models.Transaction
// @Router /transactions/recent [get]
func (h *AccountHandler) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := h.accounts.RecentTransactions(userID, queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}
