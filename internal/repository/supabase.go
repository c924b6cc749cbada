package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	transactionsTable = "transactions"
	profilesTable     = "user_profiles"
)

type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key, schema string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

func (r *SupabaseRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	transaction.GenerateID()

	// upsert по id: повтор после неоднозначной ошибки не создаст вторую строку
	data, _, err := r.client.From(transactionsTable).
		Insert(transaction, true, "id", "representation", "").
		Execute()
	if err != nil {
		slog.ErrorContext(ctx, "Error creating transaction", "component", "storage", "id", transaction.ID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	var created []model.Transaction
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("failed to parse created transaction: %w", err)
	}
	if len(created) > 0 && !created[0].CreatedAt.IsZero() {
		transaction.CreatedAt = created[0].CreatedAt
	}

	slog.InfoContext(ctx, "Transaction saved",
		"component", "storage",
		"id", transaction.ID,
		"user_id", transaction.UserID,
		"amount", transaction.Amount.String(),
		"category", transaction.Category,
		"type", transaction.Type)
	return nil
}

func (r *SupabaseRepository) GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := r.client.From(transactionsTable).
		Select("id,user_id,amount,category,type,created_at", "", false).
		Eq("user_id", userID)

	// Gte и Lte по одной колонке перезаписывают друг друга, диапазон задаем через and
	var bounds []string
	if filter.StartDate != nil {
		bounds = append(bounds, "created_at.gte."+formatTimestamp(*filter.StartDate))
	}
	if filter.EndDate != nil {
		bounds = append(bounds, "created_at.lte."+formatTimestamp(*filter.EndDate))
	}
	if len(bounds) > 0 {
		query = query.And(strings.Join(bounds, ","), "")
	}
	if filter.Type != "" {
		query = query.Eq("type", string(filter.Type))
	}

	// Сначала новые
	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit, "")
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	var transactions []model.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}
	slog.DebugContext(ctx, "Transactions loaded", "component", "storage", "user_id", userID, "count", len(transactions))
	return transactions, nil
}

func (r *SupabaseRepository) ResolveUserID(ctx context.Context, telegramUsername string) (string, error) {
	username := normalizeUsername(telegramUsername)
	if username == "" {
		return "", ErrNotFound
	}

	data, _, err := r.client.From(profilesTable).
		Select("id", "", false).
		Eq("telegram_username", username).
		Limit(1, "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}

	var profiles []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return "", fmt.Errorf("failed to parse profile: %w", err)
	}
	if len(profiles) == 0 || profiles[0].ID == "" {
		return "", ErrNotFound
	}
	return profiles[0].ID, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
