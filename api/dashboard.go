package api

import (
	"math"
	"sort"
	"time"

	"finera/database"
	"finera/middleware"
	"finera/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const trendMonths = 6

// DashboardHandler read-only aggregation over ledger, registry and budgets
type DashboardHandler struct {
	now func() time.Time
}

// NewDashboardHandler creates the dashboard handler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{now: time.Now}
}

// CategoryExpense expense total of one category
type CategoryExpense struct {
	CategoryID   uint            `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Color        string          `json:"color"`
	Total        decimal.Decimal `json:"total" swaggertype:"number"`
}

// MonthlyTrendPoint totals of one calendar month
type MonthlyTrendPoint struct {
	Month    string          `json:"month" example:"Aug"`
	Year     int             `json:"year" example:"2025"`
	Income   decimal.Decimal `json:"income" swaggertype:"number"`
	Expenses decimal.Decimal `json:"expenses" swaggertype:"number"`
}

// DashboardOverview dashboard snapshot
type DashboardOverview struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	TotalIncome   decimal.Decimal `json:"totalIncome" swaggertype:"number"`
	TotalExpenses decimal.Decimal `json:"totalExpenses" swaggertype:"number"`
	// Balance is the remaining budget of the current month, not income minus expenses
	Balance       decimal.Decimal `json:"balance" swaggertype:"number"`
	IncomeChange  decimal.Decimal `json:"incomeChange" swaggertype:"number"`
	ExpenseChange decimal.Decimal `json:"expenseChange" swaggertype:"number"`

	ExpenseByCategory []CategoryExpense   `json:"expenseByCategory"`
	MonthlyTrend      []MonthlyTrendPoint `json:"monthlyTrend"`

	TotalBudget           decimal.Decimal `json:"totalBudget" swaggertype:"number"`
	TotalSpent            decimal.Decimal `json:"totalSpent" swaggertype:"number"`
	RemainingBudget       decimal.Decimal `json:"remainingBudget" swaggertype:"number"`
	BudgetUsagePercentage decimal.Decimal `json:"budgetUsagePercentage" swaggertype:"number"`

	TransactionCount     int             `json:"transactionCount"`
	AverageExpensePerDay decimal.Decimal `json:"averageExpensePerDay" swaggertype:"number"`
	TopSpendingCategory  string          `json:"topSpendingCategory"`
}

// Overview builds the dashboard for a date window
// @Summary Dashboard overview
// @Description Totals for the window, change against the preceding window of equal length, expense breakdown, six month trend and current month budgets. Defaults to the last month.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "YYYY-MM-DD or RFC 3339"
// @Param endDate query string false "YYYY-MM-DD (whole day) or RFC 3339"
// @Success 200 {object} Response{data=DashboardOverview} "overview"
// @Failure 400 {object} Response "invalid dates"
// @Router /api/dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	now := h.now().UTC()

	end := now
	if raw := c.Query("endDate"); raw != "" {
		t, dateOnly, err := parseTimestamp(raw)
		if err != nil {
			BadRequest(c, "endDate: "+err.Error())
			return
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Second)
		}
		end = t
	}
	start := end.AddDate(0, -1, 0)
	if raw := c.Query("startDate"); raw != "" {
		t, _, err := parseTimestamp(raw)
		if err != nil {
			BadRequest(c, "startDate: "+err.Error())
			return
		}
		start = t
	}
	if start.After(end) {
		BadRequest(c, "startDate must not be after endDate")
		return
	}

	window := end.Sub(start)
	prevStart := start.Add(-window)
	trendStart, _ := models.MonthRange(int(now.Month()), now.Year())
	trendStart = trendStart.AddDate(0, -(trendMonths - 1), 0)
	_, trendEnd := models.MonthRange(int(now.Month()), now.Year())

	var (
		current, previous, trend []models.Transaction
		budgets                  []models.Budget
		categories               []models.Category
	)

	g, ctx := errgroup.WithContext(c.Request.Context())
	db := database.DB.WithContext(ctx)

	g.Go(func() error {
		return db.Where("user_id = ? AND transaction_date >= ? AND transaction_date <= ?", userID, start, end).
			Find(&current).Error
	})
	g.Go(func() error {
		return db.Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?", userID, prevStart, start).
			Find(&previous).Error
	})
	g.Go(func() error {
		return db.Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?", userID, trendStart, trendEnd).
			Find(&trend).Error
	})
	g.Go(func() error {
		return db.Where("user_id = ? AND month = ? AND year = ?", userID, int(now.Month()), now.Year()).
			Find(&budgets).Error
	})
	g.Go(func() error {
		return visibleCategories(db, userID).Find(&categories).Error
	})

	if err := g.Wait(); err != nil {
		internalError(c, err, "failed to build dashboard")
		return
	}

	Success(c, buildOverview(overviewInput{
		start:      start,
		end:        end,
		now:        now,
		current:    current,
		previous:   previous,
		trend:      trend,
		budgets:    budgets,
		categories: categories,
	}))
}

type overviewInput struct {
	start, end, now          time.Time
	current, previous, trend []models.Transaction
	budgets                  []models.Budget
	categories               []models.Category
}

func buildOverview(in overviewInput) DashboardOverview {
	income, expenses := sumByType(in.current)
	prevIncome, prevExpenses := sumByType(in.previous)

	var totalBudget, totalSpent decimal.Decimal
	for _, b := range in.budgets {
		totalBudget = totalBudget.Add(b.Amount)
		totalSpent = totalSpent.Add(b.SpentAmount)
	}
	remaining := totalBudget.Sub(totalSpent)

	byCategory := expenseByCategory(in.current, in.categories)
	top := "None"
	if len(byCategory) > 0 {
		top = byCategory[0].CategoryName
	}

	return DashboardOverview{
		StartDate:             in.start,
		EndDate:               in.end,
		TotalIncome:           income,
		TotalExpenses:         expenses,
		Balance:               remaining,
		IncomeChange:          percentChange(income, prevIncome),
		ExpenseChange:         percentChange(expenses, prevExpenses),
		ExpenseByCategory:     byCategory,
		MonthlyTrend:          monthlyTrend(in.trend, in.now),
		TotalBudget:           totalBudget,
		TotalSpent:            totalSpent,
		RemainingBudget:       remaining,
		BudgetUsagePercentage: models.Percent(totalSpent, totalBudget),
		TransactionCount:      len(in.current),
		AverageExpensePerDay:  averagePerDay(expenses, in.end.Sub(in.start)),
		TopSpendingCategory:   top,
	}
}

// percentChange is (current-previous)/previous*100, 0 when there is nothing to compare against
func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return models.Percent(current.Sub(previous), previous)
}

// averagePerDay divides by the window length in days, partial days counting as one
func averagePerDay(total decimal.Decimal, window time.Duration) decimal.Decimal {
	if window <= 0 {
		return decimal.Zero
	}
	days := math.Ceil(window.Hours() / 24)
	return total.Div(decimal.NewFromFloat(days)).Round(2)
}

func expenseByCategory(txs []models.Transaction, categories []models.Category) []CategoryExpense {
	byID := make(map[uint]models.Category, len(categories))
	for _, cat := range categories {
		byID[cat.ID] = cat
	}

	totals := make(map[uint]decimal.Decimal)
	for _, t := range txs {
		if t.Type != models.TypeExpense {
			continue
		}
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
	}

	out := make([]CategoryExpense, 0, len(totals))
	for id, total := range totals {
		entry := CategoryExpense{
			CategoryID:   id,
			CategoryName: "Unknown",
			Color:        models.DefaultCategoryColor,
			Total:        total.Round(2),
		}
		if cat, ok := byID[id]; ok {
			entry.CategoryName = cat.Name
			entry.Color = cat.Color
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Total.Cmp(out[j].Total); cmp != 0 {
			return cmp > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// monthlyTrend buckets transactions into the trailing calendar months ending with now's month
func monthlyTrend(txs []models.Transaction, now time.Time) []MonthlyTrendPoint {
	first, _ := models.MonthRange(int(now.Month()), now.Year())
	first = first.AddDate(0, -(trendMonths - 1), 0)

	points := make([]MonthlyTrendPoint, trendMonths)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i] = MonthlyTrendPoint{Month: m.Format("Jan"), Year: m.Year()}
	}

	for _, t := range txs {
		d := t.TransactionDate.UTC()
		idx := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if idx < 0 || idx >= trendMonths {
			continue
		}
		switch t.Type {
		case models.TypeIncome:
			points[idx].Income = points[idx].Income.Add(t.Amount)
		case models.TypeExpense:
			points[idx].Expenses = points[idx].Expenses.Add(t.Amount)
		}
	}
	return points
}
