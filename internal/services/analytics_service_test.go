package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAnalyticsService_SpendingByCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	t.Run("sums withdrawals per category, largest first", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(NULLIF\(t.category, ''\), t.description\) AS category, SUM\(t.amount\) AS total FROM transactions t INNER JOIN accounts a ON t.account_id = a.id WHERE a.user_id = \$1 AND t.type = 'withdraw'`).
			WithArgs(int64(10), 30).
			WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
				AddRow("Food", "50.00").
				AddRow("Transport", "12.30"))

		totals, err := service.SpendingByCategory(10, 30)
		assert.NoError(t, err)
		assert.Len(t, totals, 2)
		assert.Equal(t, "Food", totals[0].Category)
		assert.True(t, totals[0].Total.Equal(decimal.RequireFromString("50.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty window returns empty slice", func(t *testing.T) {
		mock.ExpectQuery(`SUM\(t.amount\) AS total`).
			WithArgs(int64(10), 30).
			WillReturnRows(sqlmock.NewRows([]string{"category", "total"}))

		totals, err := service.SpendingByCategory(10, 30)
		assert.NoError(t, err)
		assert.Empty(t, totals)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsService_IncomeByCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	mock.ExpectQuery(`t.type = 'deposit'`).
		WithArgs(int64(10), 7).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
			AddRow("Salary", "2500.00"))

	totals, err := service.IncomeByCategory(10, 7)
	assert.NoError(t, err)
	assert.Len(t, totals, 1)
	assert.Equal(t, "Salary", totals[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_SpendingByMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	t.Run("months come back in ascending order without zero-fill", func(t *testing.T) {
		mock.ExpectQuery(`to_char\(t.transaction_date, 'YYYY-MM'\) AS month`).
			WithArgs(int64(10), 6).
			WillReturnRows(sqlmock.NewRows([]string{"month", "total"}).
				AddRow("2026-03", "120.00").
				AddRow("2026-06", "80.00")) // April and May had no activity

		totals, err := service.SpendingByMonth(10, 6)
		assert.NoError(t, err)
		assert.Len(t, totals, 2)
		assert.Equal(t, "2026-03", totals[0].Month)
		assert.Equal(t, "2026-06", totals[1].Month)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsService_MonthlySpendingByYear(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	mock.ExpectQuery(`EXTRACT\(YEAR FROM t.transaction_date\) = \$2`).
		WithArgs(int64(10), 2025).
		WillReturnRows(sqlmock.NewRows([]string{"month", "total"}).
			AddRow("2025-01", "42.00"))

	totals, err := service.MonthlySpendingByYear(10, 2025)
	assert.NoError(t, err)
	assert.Len(t, totals, 1)
	assert.Equal(t, "2025-01", totals[0].Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_Counts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	t.Run("all kinds", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions t INNER JOIN accounts a`).
			WithArgs(int64(10), 30).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

		count, err := service.TransactionCount(10, 30)
		assert.NoError(t, err)
		assert.Equal(t, int64(17), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by type", func(t *testing.T) {
		mock.ExpectQuery(`AND t.type = \$2`).
			WithArgs(int64(10), models.TypeWithdraw, 30).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		count, err := service.TransactionCountByType(10, models.TypeWithdraw, 30)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid type is a validation error", func(t *testing.T) {
		_, err := service.TransactionCountByType(10, models.TransactionType("refund"), 30)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAnalyticsService_TotalsAndAverages(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	t.Run("empty window totals to zero, not an error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(t.amount\), 0\)`).
			WithArgs(int64(10), 6).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))

		total, err := service.TotalSpendingInMonths(10, 6)
		assert.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("total spending", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(t.amount\), 0\)`).
			WithArgs(int64(10), 3).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("321.50"))

		total, err := service.TotalSpendingInMonths(10, 3)
		assert.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("321.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("average is rounded to cents", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(AVG\(t.amount\), 0\)`).
			WithArgs(int64(10), 6).
			WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow("33.333333"))

		avg, err := service.AverageTransactionAmountInMonths(10, 6)
		assert.NoError(t, err)
		assert.True(t, avg.Equal(decimal.RequireFromString("33.33")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAnalyticsService_TopCategoriesByYear(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAnalyticsService(db, nil)

	mock.ExpectQuery(`ORDER BY total DESC LIMIT 10`).
		WithArgs(int64(10), 2026).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
			AddRow("Rent", "12000.00").
			AddRow("Food", "3400.00"))

	totals, err := service.TopCategoriesByYear(10, 2026)
	assert.NoError(t, err)
	assert.Len(t, totals, 2)
	assert.Equal(t, "Rent", totals[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_Cache(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewAnalyticsService(db, redisClient)

	t.Run("cache hit skips the database entirely", func(t *testing.T) {
		cached := []models.CategoryTotal{{Category: "Food", Total: decimal.RequireFromString("50.00")}}
		data, err := json.Marshal(cached)
		assert.NoError(t, err)

		key := fmt.Sprintf("analytics:spending_by_category:%d:%d", 10, 30)
		redisMock.ExpectGet(key).SetVal(string(data))

		totals, err := service.SpendingByCategory(10, 30)
		assert.NoError(t, err)
		assert.Len(t, totals, 1)
		assert.Equal(t, "Food", totals[0].Category)
		assert.True(t, totals[0].Total.Equal(decimal.RequireFromString("50.00")))
		assert.NoError(t, mock.ExpectationsWereMet()) // no SQL ran
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
