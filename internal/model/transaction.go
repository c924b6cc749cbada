package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction строка таблицы transactions.
// ID служит ключом идемпотентности: повторная запись с тем же ID не создает дубликат.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// GenerateID генерирует новый UUID для транзакции, если он еще не установлен
func (t *Transaction) GenerateID() {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
}

// Validate проверяет, что транзакцию можно сохранить
func (t Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", t.Amount)
	}
	if t.Category == "" {
		return errors.New("category is required")
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

// TransactionFilter фильтр выборки транзакций
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      TransactionType // пустой тип означает все типы
	Limit     int
}
