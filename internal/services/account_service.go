package services

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// AccountService owns account records and the ownership guard. It never moves
// money; balance mutation goes through TransferService only.
type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

const accountColumns = `id, user_id, name, account_number, balance, account_type, color, version, created_at, updated_at`

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// CreateAccount opens a new account for userID with a generated unique account
// number and the caller-supplied opening balance (zero is fine).
func (s *AccountService) CreateAccount(userID int64, name string, accountType models.AccountType, color string, openingBalance decimal.Decimal) (*models.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: invalid account type %q", ErrValidation, accountType)
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance cannot be negative", ErrValidation)
	}

	account := &models.Account{
		UserID:      userID,
		Name:        name,
		AccountType: accountType,
		Color:       color,
		Balance:     openingBalance,
		Version:     1,
	}

	// Account numbers are random; retry on the rare collision.
	for attempt := 0; attempt < 5; attempt++ {
		account.AccountNumber = generateAccountNumber()

		err := s.db.QueryRow(`
			INSERT INTO accounts (user_id, name, account_number, balance, account_type, color, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 1, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			userID, name, account.AccountNumber, openingBalance, accountType, color,
		).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

		if err == nil {
			log.Printf("[ACCOUNT] Created account %d (%s) for user %d", account.ID, account.AccountNumber, userID)
			return account, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			continue
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return nil, fmt.Errorf("creating account: account number collisions exhausted retries")
}

// AssertOwnership resolves the account and verifies it belongs to userID.
// It is read-only and runs before every mutation and single-account read.
func (s *AccountService) AssertOwnership(accountID, userID int64) (*models.Account, error) {
	account, err := s.fetchAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}
	return account, nil
}

// GetAccount returns a single account, ownership-guarded.
func (s *AccountService) GetAccount(accountID, userID int64) (*models.Account, error) {
	return s.AssertOwnership(accountID, userID)
}

// ListAccounts returns every account owned by userID.
func (s *AccountService) ListAccounts(userID int64) ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := scanAccount(rows.Scan, &a); err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccount edits account metadata. Balance is deliberately not an input;
// it only moves through the transfer service.
func (s *AccountService) UpdateAccount(accountID, userID int64, name string, accountType models.AccountType, color string) (*models.Account, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if !accountType.Valid() {
		return nil, fmt.Errorf("%w: invalid account type %q", ErrValidation, accountType)
	}

	account, err := s.AssertOwnership(accountID, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
		UPDATE accounts
		SET name = $1, account_type = $2, color = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		name, accountType, color, accountID,
	).Scan(&account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating account %d: %w", accountID, err)
	}

	account.Name = name
	account.AccountType = accountType
	account.Color = color
	return account, nil
}

// DeleteAccount removes an account and its ledger history. Accounts holding
// money cannot be deleted; the caller must withdraw or transfer the balance
// out first. The row is locked so a concurrent deposit cannot land between
// the balance check and the delete.
func (s *AccountService) DeleteAccount(accountID, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}
	defer tx.Rollback()

	var ownerID int64
	var balance decimal.Decimal
	err = tx.QueryRow(`
		SELECT user_id, balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).Scan(&ownerID, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}

	if ownerID != userID {
		return ErrForbidden
	}
	if !balance.IsZero() {
		return fmt.Errorf("%w: account balance must be zero before deletion", ErrConflict)
	}

	// The ledger rows reference the account; remove them in the same
	// transaction so the foreign key never blocks the delete.
	if _, err := tx.Exec(`DELETE FROM transactions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("deleting account %d history: %w", accountID, err)
	}
	if _, err := tx.Exec(`DELETE FROM accounts WHERE id = $1`, accountID); err != nil {
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}

	log.Printf("[ACCOUNT] Deleted account %d for user %d", accountID, userID)
	return nil
}

// RecentTransactions lists the newest ledger entries across all of the user's
// accounts. Entries carry only an account id, so ownership is derived through
// the accounts join.
func (s *AccountService) RecentTransactions(userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT t.id, t.account_id, t.type, t.amount, t.category, t.description, t.transfer_id, t.transaction_date, t.created_at
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		ORDER BY t.transaction_date DESC, t.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Category,
			&t.Description, &t.TransferID, &t.TransactionDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("listing transactions: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// AccountTransactions lists ledger entries for one account, ownership-guarded.
func (s *AccountService) AccountTransactions(accountID, userID int64, limit int) ([]models.Transaction, error) {
	if _, err := s.AssertOwnership(accountID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, account_id, type, amount, category, description, transfer_id, transaction_date, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing account transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Category,
			&t.Description, &t.TransferID, &t.TransactionDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("listing account transactions: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *AccountService) fetchAccount(accountID int64) (*models.Account, error) {
	var a models.Account
	row := s.db.QueryRow(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1`, accountID)
	if err := scanAccount(row.Scan, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching account %d: %w", accountID, err)
	}
	return &a, nil
}

func scanAccount(scan func(dest ...any) error, a *models.Account) error {
	return scan(&a.ID, &a.UserID, &a.Name, &a.AccountNumber, &a.Balance,
		&a.AccountType, &a.Color, &a.Version, &a.CreatedAt, &a.UpdatedAt)
}

// generateAccountNumber returns a random 10-digit account number.
func generateAccountNumber() string {
	digits := make([]byte, 10)
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand should never fail; fall back to a time-derived number
		return fmt.Sprintf("%010d", time.Now().UnixNano()%1e10)
	}
	for i, b := range raw {
		digits[i] = '0' + b%10
	}
	return string(digits)
}
