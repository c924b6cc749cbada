package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

func tx(typ model.TransactionType, category, amount string, at time.Time) model.Transaction {
	return model.Transaction{
		UserID:    "u1",
		Amount:    decimal.RequireFromString(amount),
		Category:  category,
		Type:      typ,
		CreatedAt: at,
	}
}

func TestBuildMonthlyReport(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return start.AddDate(0, 0, d-1).Add(10 * time.Hour) }

	current := []model.Transaction{
		tx(model.Income, "Salary", "2000", day(1)),
		tx(model.Expense, "Groceries", "120.50", day(2)),
		tx(model.Expense, "Groceries", "29.50", day(2)),
		tx(model.Expense, "Fuel", "40", day(10)),
		tx(model.Saving, "Emergency Fund", "300", day(15)),
	}
	previous := []model.Transaction{
		tx(model.Income, "Salary", "1600", day(1).AddDate(0, -1, 0)),
		tx(model.Expense, "Groceries", "100", day(3).AddDate(0, -1, 0)),
	}

	report := buildMonthlyReport(start, now, current, previous)

	assert.Equal(t, "October 2026", report.Period)
	assert.True(t, decimal.NewFromInt(2000).Equal(report.Current.TotalIncome))
	assert.True(t, decimal.NewFromInt(190).Equal(report.Current.TotalExpenses))
	assert.True(t, decimal.NewFromInt(300).Equal(report.Current.TotalSavings))
	assert.True(t, decimal.NewFromInt(1510).Equal(report.Current.Balance))
	assert.Equal(t, 5, report.Current.Count)
	assert.True(t, decimal.RequireFromString("10").Equal(report.Current.AvgDailyExpense))
	assert.InDelta(t, 15.0, report.SavingsRate, 0.001)

	require.Len(t, report.Expenses, 2)
	assert.Equal(t, "Groceries", report.Expenses[0].Name)
	assert.True(t, decimal.NewFromInt(150).Equal(report.Expenses[0].Amount))
	assert.InDelta(t, 78.947, report.Expenses[0].Share, 0.001)
	assert.InDelta(t, 50.0, report.Expenses[0].TrendPercent, 0.001)
	assert.InDelta(t, 100.0, report.Expenses[1].TrendPercent, 0.001)

	require.Len(t, report.Daily, 19)
	assert.True(t, decimal.NewFromInt(150).Equal(report.Daily[1].Expense))
	assert.True(t, decimal.NewFromInt(2000).Equal(report.Daily[0].Income))
	assert.True(t, decimal.NewFromInt(300).Equal(report.Daily[14].Saving))
	assert.True(t, report.Daily[18].Expense.IsZero())
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "", formatChange(decimal.NewFromInt(10), decimal.Zero))
	assert.Equal(t, " (+25.0%⬆️)", formatChange(decimal.NewFromInt(125), decimal.NewFromInt(100)))
	assert.Equal(t, " (-50.0%⬇️)", formatChange(decimal.NewFromInt(50), decimal.NewFromInt(100)))
	assert.Equal(t, "", formatChange(decimal.NewFromInt(100), decimal.NewFromInt(100)))
	assert.Equal(t, " (+1000.0%⬆️)", formatChange(decimal.NewFromInt(100000), decimal.NewFromInt(1)))
}

func TestFormatMonthlyReportEmpty(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	report := buildMonthlyReport(start, start.AddDate(0, 0, 3), nil, nil)
	text := formatMonthlyReport(report)

	assert.Contains(t, text, "📅 February 2026")
	assert.Contains(t, text, "No transactions yet.")
	assert.NotContains(t, text, "Savings rate")
}

func TestAddTransactionValidatesCategory(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewExpenseTracker(repo, model.DefaultCatalog())
	ctx := context.Background()

	_, err := tracker.AddTransaction(ctx, tx(model.Income, "Groceries", "10", time.Time{}))
	assert.Error(t, err)

	_, err = tracker.AddTransaction(ctx, tx(model.Expense, "Lottery", "10", time.Time{}))
	assert.Error(t, err)

	_, err = tracker.AddTransaction(ctx, tx(model.Expense, "Groceries", "0", time.Time{}))
	assert.Error(t, err)
	assert.Zero(t, repo.createCalls)

	saved, err := tracker.AddTransaction(ctx, tx(model.Expense, "Groceries", "10", time.Time{}))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Len(t, repo.savedList(), 1)
}
