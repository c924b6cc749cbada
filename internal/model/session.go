package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method способ ввода суммы
type Method string

const (
	MethodNone   Method = ""
	MethodManual Method = "manual"
	MethodPhoto  Method = "photo"
)

// State последний пройденный шаг диалога добавления транзакции
type State string

const (
	StateIdle           State = "idle"
	StateMethodChosen   State = "method_chosen"
	StateTypeChosen     State = "type_chosen"
	StateCategoryChosen State = "category_chosen"
	StateAmountCaptured State = "amount_captured"
)

// Session хранит незавершенную транзакцию пользователя.
// Нулевая сумма означает, что сумма еще не введена.
type Session struct {
	UserID    int64           `json:"user_id"`
	ChatID    int64           `json:"chat_id"`
	State     State           `json:"state"`
	Method    Method          `json:"method,omitempty"`
	Type      TransactionType `json:"type,omitempty"`
	Category  string          `json:"category,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CommitKey string          `json:"commit_key"`
	// CommitAttempted выставляется перед сохранением и сбрасывается при изменении полей
	CommitAttempted bool      `json:"commit_attempted,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSession создает пустую сессию с новым ключом коммита
func NewSession(userID, chatID int64, now time.Time) Session {
	return Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     StateIdle,
		Amount:    decimal.Zero,
		CommitKey: newCommitKey(),
		UpdatedAt: now,
	}
}

// MarkEdited вызывается при изменении полей транзакции.
// После попытки сохранения ключ коммита заменяется: прежний ключ мог уже
// попасть в хранилище с другими значениями. Повтор без изменений идет со старым ключом.
func (s *Session) MarkEdited() {
	if s.CommitAttempted {
		s.CommitKey = newCommitKey()
		s.CommitAttempted = false
	}
}

func newCommitKey() string {
	t := Transaction{}
	t.GenerateID()
	return t.ID
}

func (s Session) HasAmount() bool {
	return s.Amount.IsPositive()
}

// Complete сообщает, собраны ли все поля, необходимые для сохранения
func (s Session) Complete() bool {
	return s.HasAmount() && s.Category != "" && s.Type != ""
}

// Expired сообщает, истек ли срок жизни сессии. ttl <= 0 отключает истечение.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}
