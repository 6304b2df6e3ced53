package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	AccountID  int64     `json:"account_id"`
	UserID     int64     `json:"user_id"`
	Amount     string    `json:"amount,omitempty"`
	TransferID string    `json:"transfer_id,omitempty"`
	Status     string    `json:"status"`
	Details    any       `json:"details,omitempty"`
}

// Logger emits one structured line per mutating ledger operation. Failed
// invariant checks are logged too; the operation itself still aborts.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogDeposit(accountID, userID int64, amount decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "DEPOSIT",
		AccountID: accountID,
		UserID:    userID,
		Amount:    amount.StringFixed(2),
		Status:    "SUCCESS",
	})
}

func (a *Logger) LogWithdraw(accountID, userID int64, amount decimal.Decimal) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "WITHDRAW",
		AccountID: accountID,
		UserID:    userID,
		Amount:    amount.StringFixed(2),
		Status:    "SUCCESS",
	})
}

func (a *Logger) LogTransfer(fromAccountID, toAccountID, userID int64, amount decimal.Decimal, transferID string) {
	a.log(Event{
		Timestamp:  time.Now(),
		EventType:  "TRANSFER",
		AccountID:  fromAccountID,
		UserID:     userID,
		Amount:     amount.StringFixed(2),
		TransferID: transferID,
		Status:     "SUCCESS",
		Details: map[string]int64{
			"to_account": toAccountID,
		},
	})
}

func (a *Logger) LogError(operation string, accountID, userID int64, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: operation,
		AccountID: accountID,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
