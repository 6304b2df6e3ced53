package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pocketledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// AnalyticsService answers read-only reporting queries over the ledger. Every
// query joins transactions to accounts on account_id and filters by the
// accounts' user_id: an entry's owner is only known transitively, so the join
// is mandatory, not an optimization.
//
// Breakdown results are cached briefly in Redis when available; dashboards are
// allowed to lag a live mutation by a few seconds.
type AnalyticsService struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewAnalyticsService(db *sql.DB, rdb *redis.Client) *AnalyticsService {
	return &AnalyticsService{
		db:       db,
		redis:    rdb,
		cacheTTL: time.Minute,
	}
}

// categoryExpr groups by category, falling back to the free-text description
// when no category was recorded.
const categoryExpr = `COALESCE(NULLIF(t.category, ''), t.description)`

// SpendingByCategory sums withdrawals in the last N days per category,
// largest first.
func (s *AnalyticsService) SpendingByCategory(userID int64, days int) ([]models.CategoryTotal, error) {
	key := fmt.Sprintf("analytics:spending_by_category:%d:%d", userID, days)
	return s.cachedCategories(key, func() ([]models.CategoryTotal, error) {
		return s.categoryTotals(`
			SELECT `+categoryExpr+` AS category, SUM(t.amount) AS total
			FROM transactions t
			INNER JOIN accounts a ON t.account_id = a.id
			WHERE a.user_id = $1
			  AND t.type = 'withdraw'
			  AND t.transaction_date >= NOW() - make_interval(days => $2)
			GROUP BY 1
			ORDER BY total DESC`, userID, days)
	})
}

// IncomeByCategory sums deposits in the last N days per category, largest first.
func (s *AnalyticsService) IncomeByCategory(userID int64, days int) ([]models.CategoryTotal, error) {
	key := fmt.Sprintf("analytics:income_by_category:%d:%d", userID, days)
	return s.cachedCategories(key, func() ([]models.CategoryTotal, error) {
		return s.categoryTotals(`
			SELECT `+categoryExpr+` AS category, SUM(t.amount) AS total
			FROM transactions t
			INNER JOIN accounts a ON t.account_id = a.id
			WHERE a.user_id = $1
			  AND t.type = 'deposit'
			  AND t.transaction_date >= NOW() - make_interval(days => $2)
			GROUP BY 1
			ORDER BY total DESC`, userID, days)
	})
}

// SpendingByMonth sums withdrawals per calendar month over the last N months,
// oldest month first. Months with no activity are absent, not zero-filled.
func (s *AnalyticsService) SpendingByMonth(userID int64, months int) ([]models.MonthTotal, error) {
	return s.monthTotals(`
		SELECT to_char(t.transaction_date, 'YYYY-MM') AS month, SUM(t.amount) AS total
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.type = 'withdraw'
		  AND t.transaction_date >= NOW() - make_interval(months => $2)
		GROUP BY 1
		ORDER BY month ASC`, userID, months)
}

// MonthlySpendingByYear sums withdrawals per calendar month of one year.
func (s *AnalyticsService) MonthlySpendingByYear(userID int64, year int) ([]models.MonthTotal, error) {
	return s.monthTotals(`
		SELECT to_char(t.transaction_date, 'YYYY-MM') AS month, SUM(t.amount) AS total
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.type = 'withdraw'
		  AND EXTRACT(YEAR FROM t.transaction_date) = $2
		GROUP BY 1
		ORDER BY month ASC`, userID, year)
}

// TransactionCount counts all ledger entries in the last N days.
func (s *AnalyticsService) TransactionCount(userID int64, days int) (int64, error) {
	var count int64
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.transaction_date >= NOW() - make_interval(days => $2)`, userID, days).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return count, nil
}

// TransactionCountByType counts entries of one kind in the last N days.
func (s *AnalyticsService) TransactionCountByType(userID int64, txType models.TransactionType, days int) (int64, error) {
	if !txType.Valid() {
		return 0, fmt.Errorf("%w: invalid transaction type %q", ErrValidation, txType)
	}

	var count int64
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.type = $2
		  AND t.transaction_date >= NOW() - make_interval(days => $3)`, userID, txType, days).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return count, nil
}

// TotalSpendingInMonths sums withdrawals over the last N months. Returns zero,
// not an error, when the window is empty.
func (s *AnalyticsService) TotalSpendingInMonths(userID int64, months int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.type = 'withdraw'
		  AND t.transaction_date >= NOW() - make_interval(months => $2)`, userID, months).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing spending: %w", err)
	}
	return total, nil
}

// AverageTransactionAmountInMonths averages entry amounts over the last N
// months, all kinds included. Returns zero when the window is empty.
func (s *AnalyticsService) AverageTransactionAmountInMonths(userID int64, months int) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := s.db.QueryRow(`
		SELECT COALESCE(AVG(t.amount), 0)
		FROM transactions t
		INNER JOIN accounts a ON t.account_id = a.id
		WHERE a.user_id = $1
		  AND t.transaction_date >= NOW() - make_interval(months => $2)`, userID, months).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("averaging transactions: %w", err)
	}
	return avg.Round(2), nil
}

// TopCategoriesByYear returns the ten biggest withdrawal categories of a year,
// largest first.
func (s *AnalyticsService) TopCategoriesByYear(userID int64, year int) ([]models.CategoryTotal, error) {
	key := fmt.Sprintf("analytics:top_categories:%d:%d", userID, year)
	return s.cachedCategories(key, func() ([]models.CategoryTotal, error) {
		return s.categoryTotals(`
			SELECT `+categoryExpr+` AS category, SUM(t.amount) AS total
			FROM transactions t
			INNER JOIN accounts a ON t.account_id = a.id
			WHERE a.user_id = $1
			  AND t.type = 'withdraw'
			  AND EXTRACT(YEAR FROM t.transaction_date) = $2
			GROUP BY 1
			ORDER BY total DESC
			LIMIT 10`, userID, year)
	})
}

func (s *AnalyticsService) categoryTotals(query string, args ...any) ([]models.CategoryTotal, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating by category: %w", err)
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("aggregating by category: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (s *AnalyticsService) monthTotals(query string, args ...any) ([]models.MonthTotal, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating by month: %w", err)
	}
	defer rows.Close()

	totals := []models.MonthTotal{}
	for rows.Next() {
		var mt models.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, fmt.Errorf("aggregating by month: %w", err)
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

// cachedCategories serves a breakdown from Redis when possible and refreshes
// the cache after a database hit. Cache failures fall through silently.
func (s *AnalyticsService) cachedCategories(key string, fetch func() ([]models.CategoryTotal, error)) ([]models.CategoryTotal, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(context.Background(), key).Bytes(); err == nil {
			var cached []models.CategoryTotal
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	totals, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(totals); err == nil {
			s.redis.Set(context.Background(), key, data, s.cacheTTL)
		}
	}
	return totals, nil
}
