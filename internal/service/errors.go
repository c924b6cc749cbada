package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionAbsent событие шага диалога пришло без начатой транзакции
	ErrSessionAbsent = errors.New("no transaction in progress")
	// ErrSessionExpired незавершенная транзакция удалена по таймауту
	ErrSessionExpired = errors.New("transaction in progress expired")
)

// InputError ошибка ввода пользователя: шаг повторяется, сессия не меняется
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Err)
	}
	return "invalid input: " + e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ExternalServiceError сбой внешнего сервиса (Telegram, OCR, хранилище)
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func external(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}
