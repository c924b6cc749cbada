package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

const (
	recentLimit   = 5
	topCategories = 5
)

// MonthlyReport отчет за месяц
type MonthlyReport struct {
	Period      string
	StartDate   time.Time
	EndDate     time.Time
	Current     PeriodStats
	Previous    PeriodStats
	SavingsRate float64 // доля накоплений от доходов, %
	Expenses    []CategoryStat
	Income      []CategoryStat
	Savings     []CategoryStat
	Daily       []DailyPoint
	Recent      []model.Transaction
	Text        string
}

// PeriodStats содержит статистику за период
type PeriodStats struct {
	TotalIncome     decimal.Decimal
	TotalExpenses   decimal.Decimal
	TotalSavings    decimal.Decimal
	Balance         decimal.Decimal
	Count           int
	AvgDailyExpense decimal.Decimal
	ByCategory      map[model.TransactionType]map[string]decimal.Decimal
}

// CategoryStat статистика по категории
type CategoryStat struct {
	Name         string
	Amount       decimal.Decimal
	Share        float64
	TrendPercent float64
}

// DailyPoint суммы за день
type DailyPoint struct {
	Date    time.Time
	Expense decimal.Decimal
	Income  decimal.Decimal
	Saving  decimal.Decimal
}

// HasExpenses есть ли расходы за период
func (r *MonthlyReport) HasExpenses() bool {
	return r.Current.TotalExpenses.IsPositive()
}

func buildMonthlyReport(start, now time.Time, current, previous []model.Transaction) *MonthlyReport {
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	days := now.Day()
	if now.After(end) {
		days = end.Day()
	}

	report := &MonthlyReport{
		Period:    start.Format("January 2006"),
		StartDate: start,
		EndDate:   end,
		Current:   analyzePeriod(current, days),
		Previous:  analyzePeriod(previous, start.AddDate(0, 0, -1).Day()),
	}

	if report.Current.TotalIncome.IsPositive() {
		report.SavingsRate = report.Current.TotalSavings.
			Div(report.Current.TotalIncome).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}

	report.Expenses = categoryStats(report.Current.ByCategory[model.Expense], report.Previous.ByCategory[model.Expense])
	report.Income = categoryStats(report.Current.ByCategory[model.Income], report.Previous.ByCategory[model.Income])
	report.Savings = categoryStats(report.Current.ByCategory[model.Saving], report.Previous.ByCategory[model.Saving])
	report.Daily = dailySeries(current, start, days)
	return report
}

// analyzePeriod анализирует транзакции за период
func analyzePeriod(transactions []model.Transaction, days int) PeriodStats {
	stats := PeriodStats{
		ByCategory: map[model.TransactionType]map[string]decimal.Decimal{
			model.Expense: {},
			model.Income:  {},
			model.Saving:  {},
		},
	}

	for _, t := range transactions {
		byCategory, ok := stats.ByCategory[t.Type]
		if !ok {
			continue
		}
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
		stats.Count++

		switch t.Type {
		case model.Income:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case model.Expense:
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
		case model.Saving:
			stats.TotalSavings = stats.TotalSavings.Add(t.Amount)
		}
	}

	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpenses).Sub(stats.TotalSavings)
	if days > 0 {
		stats.AvgDailyExpense = stats.TotalExpenses.Div(decimal.NewFromInt(int64(days))).Round(2)
	}
	return stats
}

// categoryStats доли категорий с изменением к прошлому периоду, по убыванию суммы
func categoryStats(current, previous map[string]decimal.Decimal) []CategoryStat {
	total := decimal.Zero
	for _, amount := range current {
		total = total.Add(amount)
	}

	stats := make([]CategoryStat, 0, len(current))
	for name, amount := range current {
		share := 0.0
		if total.IsPositive() {
			share = amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		stats = append(stats, CategoryStat{
			Name:         name,
			Amount:       amount,
			Share:        share,
			TrendPercent: calculateTrendPercent(amount, previous[name]),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Amount.Cmp(stats[j].Amount); c != 0 {
			return c > 0
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

func dailySeries(transactions []model.Transaction, start time.Time, days int) []DailyPoint {
	points := make([]DailyPoint, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i)
	}

	for _, t := range transactions {
		day := t.CreatedAt.In(start.Location()).Day() - 1
		if day < 0 || day >= days {
			continue
		}
		switch t.Type {
		case model.Expense:
			points[day].Expense = points[day].Expense.Add(t.Amount)
		case model.Income:
			points[day].Income = points[day].Income.Add(t.Amount)
		case model.Saving:
			points[day].Saving = points[day].Saving.Add(t.Amount)
		}
	}
	return points
}

// calculateTrendPercent вычисляет процент изменения
func calculateTrendPercent(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100 // Рост с нуля
		}
		return 0
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// formatChange форматирует изменение значения в процентах
func formatChange(current, previous decimal.Decimal) string {
	if previous.IsZero() {
		return ""
	}

	change := calculateTrendPercent(current, previous)

	// Ограничиваем отображение процентов разумными пределами
	if change < -1000 {
		change = -1000
	} else if change > 1000 {
		change = 1000
	}

	switch {
	case change > 0:
		return fmt.Sprintf(" (+%.1f%%⬆️)", change)
	case change < 0:
		return fmt.Sprintf(" (%.1f%%⬇️)", change)
	default:
		return ""
	}
}

func formatMonthlyReport(r *MonthlyReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📅 %s\n\n", r.Period)
	fmt.Fprintf(&b, "💰 Income: %s%s\n", r.Current.TotalIncome.StringFixed(2), formatChange(r.Current.TotalIncome, r.Previous.TotalIncome))
	fmt.Fprintf(&b, "💸 Expenses: %s%s\n", r.Current.TotalExpenses.StringFixed(2), formatChange(r.Current.TotalExpenses, r.Previous.TotalExpenses))
	fmt.Fprintf(&b, "🏦 Savings: %s%s\n", r.Current.TotalSavings.StringFixed(2), formatChange(r.Current.TotalSavings, r.Previous.TotalSavings))
	fmt.Fprintf(&b, "📊 Balance: %s\n", r.Current.Balance.StringFixed(2))
	fmt.Fprintf(&b, "📉 Average daily expense: %s\n", r.Current.AvgDailyExpense.StringFixed(2))
	if r.Current.TotalIncome.IsPositive() {
		fmt.Fprintf(&b, "💹 Savings rate: %.1f%%\n", r.SavingsRate)
	}

	if len(r.Expenses) > 0 {
		b.WriteString("\nTop expenses:\n")
		for i, stat := range r.Expenses {
			if i == topCategories {
				break
			}
			fmt.Fprintf(&b, "• %s: %s (%.1f%%)\n", stat.Name, stat.Amount.StringFixed(2), stat.Share)
		}
	}

	if len(r.Recent) > 0 {
		b.WriteString("\nRecent transactions:\n")
		for _, t := range r.Recent {
			fmt.Fprintf(&b, "• %s · %s · %s %s\n",
				t.CreatedAt.In(r.StartDate.Location()).Format("02 Jan"), t.Category, t.Type, t.Amount.StringFixed(2))
		}
	}

	if r.Current.Count == 0 && len(r.Recent) == 0 {
		b.WriteString("\nNo transactions yet. Tap \"New Transaction\" to add one.")
	}
	return strings.TrimRight(b.String(), "\n")
}
