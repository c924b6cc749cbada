// Package ocr распознает сумму на фотографии чека.
//
// Распознавание текста выполняет Google Cloud Vision, а ExtractAmount выбирает
// из текста первое число, похожее на денежную сумму. Это эвристика: на чеке
// бывают количества, даты и промежуточные итоги, поэтому результат показывается
// пользователю как предложение, а не как окончательное значение.
package ocr

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	// ErrAmountNotFound в тексте нет ни одного числа
	ErrAmountNotFound = errors.New("amount not found in recognized text")
	// ErrAmountInvalid найденное число не является положительной суммой
	ErrAmountInvalid = errors.New("recognized amount is not valid")
)

// Знак перед числом не входит в совпадение и игнорируется.
var amountPattern = regexp.MustCompile(`\d+(\.\d{1,2})?`)

// ExtractAmount возвращает первое число из распознанного текста
func ExtractAmount(text string) (decimal.Decimal, error) {
	match := amountPattern.FindString(text)
	if match == "" {
		return decimal.Zero, ErrAmountNotFound
	}

	amount, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountInvalid
	}
	return amount, nil
}
