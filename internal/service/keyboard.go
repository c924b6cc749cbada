package service

import "github.com/ivanoskov/fintrack_bot/internal/model"

// Данные callback-кнопок
const (
	ActionNewTransaction = "new_transaction"
	ActionBackToMenu     = "back_to_menu"
	ActionMethodManual   = "method_manual"
	ActionMethodPhoto    = "method_photo"
	ActionBackToMethod   = "back_to_method"
	ActionBackToType     = "back_to_type"
	ActionAmountManual   = "amount_manual"
	ActionCommitRetry    = "commit_retry"
	ActionViewSummary    = "view_summary"
	ActionAnalytics      = "analytics"
	ActionSettings       = "settings"

	typePrefix     = "type_"
	categoryPrefix = "category_"
)

// Button inline-кнопка: текст и callback data
type Button struct {
	Text string
	Data string
}

func row(buttons ...Button) []Button {
	return buttons
}

var backToMenuButton = Button{Text: "🔙 Back to Menu", Data: ActionBackToMenu}

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "💸 New Transaction", Data: ActionNewTransaction}),
		row(Button{Text: "📊 View Summary", Data: ActionViewSummary}),
		row(Button{Text: "📈 Analytics", Data: ActionAnalytics}),
		row(Button{Text: "⚙️ Settings", Data: ActionSettings}),
	}
}

func methodKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "✍️ Manual Entry", Data: ActionMethodManual}),
		row(Button{Text: "📷 Photo Entry", Data: ActionMethodPhoto}),
		row(backToMenuButton),
	}
}

func postSaveKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "➕ Add Another Transaction", Data: ActionNewTransaction}),
		row(Button{Text: "🏠 Back to Main Menu", Data: ActionBackToMenu}),
	}
}

var typeButtons = map[model.TransactionType]string{
	model.Expense: "💸 Expense",
	model.Income:  "💰 Income",
	model.Saving:  "🏦 Saving",
}

func typeKeyboard() [][]Button {
	keyboard := make([][]Button, 0, 4)
	for _, t := range model.TransactionTypes() {
		keyboard = append(keyboard, row(Button{Text: typeButtons[t], Data: typePrefix + string(t)}))
	}
	return append(keyboard, row(Button{Text: "🔙 Back", Data: ActionBackToMethod}))
}

// categoryKeyboard одна кнопка в строке, порядок справочника
func categoryKeyboard(catalog *model.Catalog, t model.TransactionType) [][]Button {
	categories := catalog.ByType(t)
	keyboard := make([][]Button, 0, len(categories)+1)
	for _, cat := range categories {
		keyboard = append(keyboard, row(Button{Text: cat.Name, Data: categoryPrefix + cat.Name}))
	}
	return append(keyboard, row(Button{Text: "🔙 Back", Data: ActionBackToType}))
}

func photoPromptKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "🔙 Back", Data: ActionBackToMethod}),
		row(backToMenuButton),
	}
}

func amountPromptKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "🔙 Back", Data: ActionBackToType}),
		row(backToMenuButton),
	}
}

// photoFailureKeyboard предлагает ввести сумму вручную после неудачного распознавания
func photoFailureKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "✍️ Enter amount manually", Data: ActionAmountManual}),
		row(backToMenuButton),
	}
}

func retryKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "🔁 Retry saving", Data: ActionCommitRetry}),
		row(backToMenuButton),
	}
}

func backToMenuKeyboard() [][]Button {
	return [][]Button{row(backToMenuButton)}
}
