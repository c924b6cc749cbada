package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

// ExpenseTracker предоставляет методы для работы с финансовыми данными
type ExpenseTracker struct {
	repo    Repository
	catalog *model.Catalog
	now     func() time.Time
}

// Repository определяет интерфейс для работы с хранилищем данных
type Repository interface {
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error)
}

// NewExpenseTracker создает новый экземпляр ExpenseTracker
func NewExpenseTracker(repo Repository, catalog *model.Catalog) *ExpenseTracker {
	return &ExpenseTracker{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
	}
}

// AddTransaction проверяет транзакцию и сохраняет ее.
// Категория должна быть в справочнике и совпадать по типу.
func (s *ExpenseTracker) AddTransaction(ctx context.Context, transaction model.Transaction) (model.Transaction, error) {
	if err := transaction.Validate(); err != nil {
		return transaction, fmt.Errorf("invalid transaction: %w", err)
	}

	category, ok := s.catalog.Lookup(transaction.Category)
	if !ok {
		return transaction, fmt.Errorf("invalid transaction: unknown category %q", transaction.Category)
	}
	if category.Type != transaction.Type {
		return transaction, fmt.Errorf("invalid transaction: category %q is %s, not %s",
			category.Name, category.Type, transaction.Type)
	}

	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = s.now()
	}
	transaction.GenerateID()

	if err := s.repo.CreateTransaction(ctx, &transaction); err != nil {
		return transaction, err
	}

	slog.InfoContext(ctx, "Transaction committed",
		"component", "tracker",
		"id", transaction.ID,
		"user_id", transaction.UserID,
		"type", transaction.Type,
		"category", transaction.Category)
	return transaction, nil
}

func (s *ExpenseTracker) GetRecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	return s.repo.GetTransactions(ctx, userID, model.TransactionFilter{
		Limit: limit,
	})
}

// GetMonthlyReport собирает отчет за текущий месяц со сравнением с предыдущим
func (s *ExpenseTracker) GetMonthlyReport(ctx context.Context, userID string) (*MonthlyReport, error) {
	now := s.now()
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	currentEnd := currentStart.AddDate(0, 1, 0).Add(-time.Second)

	// Получаем данные за текущий месяц
	currentTransactions, err := s.repo.GetTransactions(ctx, userID, model.TransactionFilter{
		StartDate: &currentStart,
		EndDate:   &currentEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get current month transactions: %w", err)
	}

	// Получаем данные за предыдущий месяц
	prevStart := currentStart.AddDate(0, -1, 0)
	prevEnd := currentStart.Add(-time.Second)
	prevTransactions, err := s.repo.GetTransactions(ctx, userID, model.TransactionFilter{
		StartDate: &prevStart,
		EndDate:   &prevEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get previous month transactions: %w", err)
	}

	recent, err := s.GetRecentTransactions(ctx, userID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent transactions: %w", err)
	}

	report := buildMonthlyReport(currentStart, now, currentTransactions, prevTransactions)
	report.Recent = recent
	report.Text = formatMonthlyReport(report)
	return report, nil
}
