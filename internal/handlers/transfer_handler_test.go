package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/pocketledger/backend/internal/middleware"
	"github.com/pocketledger/backend/internal/services"
	"github.com/stretchr/testify/assert"
)

func newTransferRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	handler := NewTransferHandler(services.NewTransferService(db, nil, nil))

	r := chi.NewRouter()
	r.Post("/accounts/{accountId}/deposit", handler.Deposit)
	r.Post("/accounts/{accountId}/withdraw", handler.Withdraw)
	r.Post("/transfers", handler.Transfer)

	return r, mock, func() { db.Close() }
}

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func TestTransferHandler_Deposit(t *testing.T) {
	router, mock, closeDB := newTransferRouter(t)
	defer closeDB()

	t.Run("successful deposit returns entry and new balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, user_id, balance, version FROM accounts WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "version"}).
				AddRow(1, 10, "200.00", 1))
		mock.ExpectExec(`UPDATE accounts SET balance = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO transactions`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))
		mock.ExpectCommit()

		body := []byte(`{"amount": "50.00", "category": "Salary"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/1/deposit", body, 10))

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response, "transaction")
		assert.Contains(t, response, "newBalance")
	})

	t.Run("missing auth context", func(t *testing.T) {
		body := []byte(`{"amount": "50.00"}`)
		r := httptest.NewRequest("POST", "/accounts/1/deposit", bytes.NewReader(body))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/1/deposit", []byte("not json"), 10))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-positive amount fails validation", func(t *testing.T) {
		body := []byte(`{"amount": "0"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/1/deposit", body, 10))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid account id in path", func(t *testing.T) {
		body := []byte(`{"amount": "10.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/abc/deposit", body, 10))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransferHandler_Withdraw(t *testing.T) {
	router, mock, closeDB := newTransferRouter(t)
	defer closeDB()

	t.Run("insufficient funds maps to 422", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "version"}).
				AddRow(1, 10, "50.00", 1))
		mock.ExpectRollback()

		body := []byte(`{"amount": "100.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/1/withdraw", body, 10))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("foreign account maps to 403", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "version"}).
				AddRow(1, 10, "500.00", 1))
		mock.ExpectRollback()

		body := []byte(`{"amount": "10.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/accounts/1/withdraw", body, 99))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTransferHandler_Transfer(t *testing.T) {
	router, mock, closeDB := newTransferRouter(t)
	defer closeDB()

	t.Run("missing destination maps to 404", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "version"}).
				AddRow(1, 10, "300.00", 1))
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "version"}))
		mock.ExpectRollback()

		body := []byte(`{"fromAccountId": 1, "toAccountId": 999, "amount": "50.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/transfers", body, 10))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("same account rejected", func(t *testing.T) {
		body := []byte(`{"fromAccountId": 3, "toAccountId": 3, "amount": "50.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/transfers", body, 10))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		body := []byte(`{"fromAccountId": 1, "toAccountId": 2, "amount": "50.00", "fee": "1.00"}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest("POST", "/transfers", body, 10))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
