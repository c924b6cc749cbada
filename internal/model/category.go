package model

import "fmt"

// TransactionType тип транзакции: расход, доход или накопление
type TransactionType string

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
	Saving  TransactionType = "saving"
)

// TransactionTypes возвращает все типы в порядке показа пользователю
func TransactionTypes() []TransactionType {
	return []TransactionType{Expense, Income, Saving}
}

// ParseTransactionType проверяет строку и возвращает тип транзакции
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case Expense, Income, Saving:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

func (t TransactionType) String() string {
	return string(t)
}

type Category struct {
	Name string          `json:"name"`
	Type TransactionType `json:"type"` // expense, income или saving
}

// Catalog фиксированный справочник категорий, порядок объявления сохраняется
type Catalog struct {
	categories []Category
	byName     map[string]Category
}

// NewCatalog создает справочник. Имена категорий должны быть уникальны.
func NewCatalog(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byName:     make(map[string]Category, len(categories)),
	}
	for _, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category name is empty")
		}
		if _, err := ParseTransactionType(string(cat.Type)); err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		if _, exists := c.byName[cat.Name]; exists {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		c.byName[cat.Name] = cat
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

// DefaultCatalog возвращает встроенный справочник категорий
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultCategories)
	if err != nil {
		panic(err)
	}
	return c
}

// ByType возвращает категории заданного типа в порядке справочника
func (c *Catalog) ByType(t TransactionType) []Category {
	result := make([]Category, 0)
	for _, cat := range c.categories {
		if cat.Type == t {
			result = append(result, cat)
		}
	}
	return result
}

// Lookup ищет категорию по имени
func (c *Catalog) Lookup(name string) (Category, bool) {
	cat, ok := c.byName[name]
	return cat, ok
}

// All возвращает копию всего справочника
func (c *Catalog) All() []Category {
	return append([]Category(nil), c.categories...)
}

var defaultCategories = []Category{
	{Name: "Entertainment", Type: Expense},
	{Name: "Side Hustle", Type: Income},
	{Name: "Personal Care", Type: Expense},
	{Name: "Food & Dining", Type: Expense},
	{Name: "Gifts & Donations", Type: Expense},
	{Name: "Groceries", Type: Expense},
	{Name: "Subscriptions", Type: Expense},
	{Name: "Shopping", Type: Expense},
	{Name: "Emergency Fund", Type: Saving},
	{Name: "Business", Type: Income},
	{Name: "Rent/Mortgage", Type: Expense},
	{Name: "Education Fund", Type: Saving},
	{Name: "Fuel", Type: Expense},
	{Name: "Vacation Fund", Type: Saving},
	{Name: "Health & Medical", Type: Expense},
	{Name: "Insurance", Type: Expense},
	{Name: "Other Income", Type: Income},
	{Name: "Other Expenses", Type: Expense},
	{Name: "Freelance", Type: Income},
	{Name: "Investment", Type: Saving},
	{Name: "Retirement", Type: Saving},
	{Name: "Transportation", Type: Expense},
	{Name: "Utilities", Type: Expense},
	{Name: "Salary", Type: Income},
}
