package handlers

import (
	"net/http"
	"time"

	"github.com/pocketledger/backend/internal/middleware"
	"github.com/pocketledger/backend/internal/models"
	"github.com/pocketledger/backend/internal/services"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// SpendingByCategory returns withdrawal totals per category
// @Summary Spending by category
// @Tags analytics
// @Produce json
// @Param days query int false "Window in days (default 30)"
// @Success 200 {array} models.CategoryTotal
// @Router /analytics/spending-by-category [get]
func (h *AnalyticsHandler) SpendingByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	totals, err := h.analytics.SpendingByCategory(userID, queryInt(r, "days", 30))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// IncomeByCategory returns deposit totals per category
// @Summary Income by category
// @Tags analytics
// @Produce json
// @Param days query int false "Window in days (default 30)"
// @Success 200 {array} models.CategoryTotal
// @Router /analytics/income-by-category [get]
func (h *AnalyticsHandler) IncomeByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	totals, err := h.analytics.IncomeByCategory(userID, queryInt(r, "days", 30))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// SpendingByMonth returns withdrawal totals per month
// @Summary Spending by month
// @Tags analytics
// @Produce json
// @Param months query int false "Window in months (default 6)"
// @Success 200 {array} models.MonthTotal
// @Router /analytics/spending-by-month [get]
func (h *AnalyticsHandler) SpendingByMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	totals, err := h.analytics.SpendingByMonth(userID, queryInt(r, "months", 6))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// MonthlySpendingByYear returns withdrawal totals per month of one year
// @Summary Monthly spending for a year
// @Tags analytics
// @Produce json
// @Param year query int false "Calendar year (default current)"
// @Success 200 {array} models.MonthTotal
// @Router /analytics/monthly-spending [get]
func (h *AnalyticsHandler) MonthlySpendingByYear(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	totals, err := h.analytics.MonthlySpendingByYear(userID, queryInt(r, "year", time.Now().Year()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// TransactionCount counts ledger entries in a window, optionally by type
// @Summary Transaction count
// @Tags analytics
// @Produce json
// @Param days query int false "Window in days (default 30)"
// @Param type query string false "deposit | withdraw | transfer"
// @Success 200 {object} map[string]int64
// @Router /analytics/transaction-count [get]
func (h *AnalyticsHandler) TransactionCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	days := queryInt(r, "days", 30)

	var count int64
	var err error
	if txType := r.URL.Query().Get("type"); txType != "" {
		count, err = h.analytics.TransactionCountByType(userID, models.TransactionType(txType), days)
	} else {
		count, err = h.analytics.TransactionCount(userID, days)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// TotalSpending sums withdrawals over the last N months
// @Summary Total spending
// @Tags analytics
// @Produce json
// @Param months query int false "Window in months (default 6)"
// @Success 200 {object} map[string]string
// @Router /analytics/total-spending [get]
func (h *AnalyticsHandler) TotalSpending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	total, err := h.analytics.TotalSpendingInMonths(userID, queryInt(r, "months", 6))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total": total.StringFixed(2)})
}

// AverageTransactionAmount averages entry amounts over the last N months
// @Summary Average transaction amount
// @Tags analytics
// @Produce json
// @Param months query int false "Window in months (default 6)"
// @Success 200 {object} map[string]string
// @Router /analytics/average-transaction [get]
func (h *AnalyticsHandler) AverageTransactionAmount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	avg, err := h.analytics.AverageTransactionAmountInMonths(userID, queryInt(r, "months", 6))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"average": avg.StringFixed(2)})
}

// TopCategories returns the ten biggest withdrawal categories of a year
// @Summary Top categories by year
// @Tags analytics
// @Produce json
// @Param year query int false "Calendar year (default current)"
// @Success 200 {array} models.CategoryTotal
// @Router /analytics/top-categories [get]
func (h *AnalyticsHandler) TopCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	totals, err := h.analytics.TopCategoriesByYear(userID, queryInt(r, "year", time.Now().Year()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
