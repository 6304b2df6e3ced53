package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pocketledger/backend/internal/audit"
	"github.com/pocketledger/backend/internal/metrics"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// TransferService is the only component allowed to change balances. Every
// mutation runs as a single database transaction: lock the account row(s),
// validate, write the new balance, append the ledger entry, commit. Nothing
// partial is ever visible to a concurrent caller.
type TransferService struct {
	db        *sql.DB
	audit     *audit.Logger
	collector *metrics.Collector
}

func NewTransferService(db *sql.DB, auditLogger *audit.Logger, collector *metrics.Collector) *TransferService {
	if auditLogger == nil {
		auditLogger = audit.NewLogger()
	}
	return &TransferService{
		db:        db,
		audit:     auditLogger,
		collector: collector,
	}
}

// TransferResult describes both sides of a completed transfer.
type TransferResult struct {
	TransferID  string              `json:"transfer_id"`
	FromEntry   *models.Transaction `json:"from_entry"`
	ToEntry     *models.Transaction `json:"to_entry"`
	FromBalance decimal.Decimal     `json:"from_balance"`
	ToBalance   decimal.Decimal     `json:"to_balance"`
}

// Deposit credits amount to the account and appends one deposit entry.
// txDate is the business timestamp; zero means now.
func (s *TransferService) Deposit(accountID, userID int64, amount decimal.Decimal, category, description string, txDate time.Time) (*models.Transaction, decimal.Decimal, error) {
	entry, balance, err := s.mutate("deposit", accountID, userID, amount, func(account *models.Account) (decimal.Decimal, error) {
		return account.Balance.Add(amount), nil
	}, &models.Transaction{
		AccountID:       accountID,
		Type:            models.TypeDeposit,
		Amount:          amount,
		Category:        category,
		Description:     description,
		TransactionDate: businessTime(txDate),
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.audit.LogDeposit(accountID, userID, amount)
	return entry, balance, nil
}

// Withdraw debits amount from the account and appends one withdraw entry.
// Fails with ErrInsufficientFunds when amount exceeds the current balance.
func (s *TransferService) Withdraw(accountID, userID int64, amount decimal.Decimal, category, description string, txDate time.Time) (*models.Transaction, decimal.Decimal, error) {
	entry, balance, err := s.mutate("withdraw", accountID, userID, amount, func(account *models.Account) (decimal.Decimal, error) {
		if account.Balance.LessThan(amount) {
			return decimal.Zero, fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds,
				account.Balance.StringFixed(2), amount.StringFixed(2))
		}
		return account.Balance.Sub(amount), nil
	}, &models.Transaction{
		AccountID:       accountID,
		Type:            models.TypeWithdraw,
		Amount:          amount,
		Category:        category,
		Description:     description,
		TransactionDate: businessTime(txDate),
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.audit.LogWithdraw(accountID, userID, amount)
	return entry, balance, nil
}

// Transfer atomically debits the source account and credits the destination.
// The caller must own the source; any existing account is a valid destination.
// Both entries carry the same generated transfer id so audits can reconstruct
// the pair.
func (s *TransferService) Transfer(fromAccountID, toAccountID, userID int64, amount decimal.Decimal, description string, txDate time.Time) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.collector.RecordOperation("transfer", false, amount)
		return nil, fmt.Errorf("beginning transfer: %w", err)
	}
	defer tx.Rollback()

	// Lock accounts in ascending id order so two opposite-direction transfers
	// cannot deadlock.
	firstLock, secondLock := fromAccountID, toAccountID
	if fromAccountID > toAccountID {
		firstLock, secondLock = toAccountID, fromAccountID
	}

	first, err := s.lockAccount(tx, firstLock)
	if err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}
	second, err := s.lockAccount(tx, secondLock)
	if err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}

	from, to := first, second
	if firstLock != fromAccountID {
		from, to = second, first
	}

	// Ownership on the source only; then funds; then execute.
	if from.UserID != userID {
		s.failMutation("transfer", fromAccountID, userID, amount, ErrForbidden)
		return nil, ErrForbidden
	}
	if from.Balance.LessThan(amount) {
		err := fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds,
			from.Balance.StringFixed(2), amount.StringFixed(2))
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}

	transferID := uuid.NewString()
	when := businessTime(txDate)

	fromBalance := from.Balance.Sub(amount)
	toBalance := to.Balance.Add(amount)

	if err := s.updateBalance(tx, from.ID, fromBalance, from.Version); err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}
	if err := s.updateBalance(tx, to.ID, toBalance, to.Version); err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}

	fromEntry := &models.Transaction{
		AccountID:       from.ID,
		Type:            models.TypeTransfer,
		Amount:          amount,
		Description:     description,
		TransferID:      transferID,
		TransactionDate: when,
	}
	toEntry := &models.Transaction{
		AccountID:       to.ID,
		Type:            models.TypeDeposit,
		Amount:          amount,
		Description:     description,
		TransferID:      transferID,
		TransactionDate: when,
	}

	if err := s.appendEntry(tx, fromEntry); err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}
	if err := s.appendEntry(tx, toEntry); err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.failMutation("transfer", fromAccountID, userID, amount, err)
		return nil, fmt.Errorf("committing transfer: %w", err)
	}

	s.audit.LogTransfer(fromAccountID, toAccountID, userID, amount, transferID)
	s.collector.RecordOperation("transfer", true, amount)
	log.Printf("[TRANSFER] %s: %s moved from account %d to %d", transferID, amount.StringFixed(2), fromAccountID, toAccountID)

	return &TransferResult{
		TransferID:  transferID,
		FromEntry:   fromEntry,
		ToEntry:     toEntry,
		FromBalance: fromBalance,
		ToBalance:   toBalance,
	}, nil
}

// mutate is the shared deposit/withdraw path: lock the row, check ownership,
// compute the new balance, persist it with an optimistic version check and
// append the ledger entry, all inside one transaction.
func (s *TransferService) mutate(operation string, accountID, userID int64, amount decimal.Decimal,
	newBalance func(*models.Account) (decimal.Decimal, error), entry *models.Transaction) (*models.Transaction, decimal.Decimal, error) {

	if !amount.IsPositive() {
		return nil, decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		s.collector.RecordOperation(operation, false, amount)
		return nil, decimal.Zero, fmt.Errorf("beginning %s: %w", operation, err)
	}
	defer tx.Rollback()

	account, err := s.lockAccount(tx, accountID)
	if err != nil {
		s.failMutation(operation, accountID, userID, amount, err)
		return nil, decimal.Zero, err
	}

	if account.UserID != userID {
		s.failMutation(operation, accountID, userID, amount, ErrForbidden)
		return nil, decimal.Zero, ErrForbidden
	}

	balance, err := newBalance(account)
	if err != nil {
		s.failMutation(operation, accountID, userID, amount, err)
		return nil, decimal.Zero, err
	}

	if err := s.updateBalance(tx, accountID, balance, account.Version); err != nil {
		s.failMutation(operation, accountID, userID, amount, err)
		return nil, decimal.Zero, err
	}

	if err := s.appendEntry(tx, entry); err != nil {
		s.failMutation(operation, accountID, userID, amount, err)
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		s.failMutation(operation, accountID, userID, amount, err)
		return nil, decimal.Zero, fmt.Errorf("committing %s: %w", operation, err)
	}

	s.collector.RecordOperation(operation, true, amount)
	return entry, balance, nil
}

func (s *TransferService) failMutation(operation string, accountID, userID int64, amount decimal.Decimal, err error) {
	s.audit.LogError(operation, accountID, userID, err)
	s.collector.RecordOperation(operation, false, amount)
}

func (s *TransferService) lockAccount(tx *sql.Tx, accountID int64) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT id, user_id, balance, version
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).
		Scan(&account.ID, &account.UserID, &account.Balance, &account.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locking account %d: %w", accountID, err)
	}
	return &account, nil
}

func (s *TransferService) updateBalance(tx *sql.Tx, accountID int64, newBalance decimal.Decimal, version int) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)
	if err != nil {
		return fmt.Errorf("updating balance for account %d: %w", accountID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating balance for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: account %d was modified concurrently", ErrConflict, accountID)
	}
	return nil
}

func (s *TransferService) appendEntry(tx *sql.Tx, entry *models.Transaction) error {
	err := tx.QueryRow(`
		INSERT INTO transactions (account_id, type, amount, category, description, transfer_id, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`,
		entry.AccountID, entry.Type, entry.Amount, entry.Category,
		entry.Description, entry.TransferID, entry.TransactionDate,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}
	return nil
}

func businessTime(txDate time.Time) time.Time {
	if txDate.IsZero() {
		return time.Now()
	}
	return txDate
}
