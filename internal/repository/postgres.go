package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

// PostgresRepository работает с той же схемой, что и Supabase, напрямую через pgx
type PostgresRepository struct {
	pool         *pgxpool.Pool
	transactions string
	profiles     string
}

func NewPostgresRepository(ctx context.Context, databaseURL, schema string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newPostgresRepository(pool, schema), nil
}

func newPostgresRepository(pool *pgxpool.Pool, schema string) *PostgresRepository {
	table := func(name string) string {
		if schema == "" {
			return pgx.Identifier{name}.Sanitize()
		}
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return &PostgresRepository{
		pool:         pool,
		transactions: table(transactionsTable),
		profiles:     table(profilesTable),
	}
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	transaction.GenerateID()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, amount, category, type, created_at)
		VALUES ($1::text::uuid, $2, $3::text::numeric, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`, r.transactions)

	tag, err := r.pool.Exec(ctx, query,
		transaction.ID,
		transaction.UserID,
		transaction.Amount.String(),
		transaction.Category,
		string(transaction.Type),
		transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"component", "storage",
		"id", transaction.ID,
		"user_id", transaction.UserID,
		"amount", transaction.Amount.String(),
		"duplicate", tag.RowsAffected() == 0)
	return nil
}

func (r *PostgresRepository) GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	var (
		conditions = []string{"user_id = $1"}
		args       = []any{userID}
	)
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id::text, user_id, amount::text, category, type, created_at
		FROM %s
		WHERE %s
		ORDER BY created_at DESC`, r.transactions, strings.Join(conditions, " AND "))
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			amount string
			typ    string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &amount, &t.Category, &typ, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		t.Type = model.TransactionType(typ)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return transactions, nil
}

func (r *PostgresRepository) ResolveUserID(ctx context.Context, telegramUsername string) (string, error) {
	username := normalizeUsername(telegramUsername)
	if username == "" {
		return "", ErrNotFound
	}

	var id string
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id::text FROM %s WHERE telegram_username = $1 LIMIT 1", r.profiles),
		username,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return id, nil
}
