package service

import (
	"context"
	"fmt"
	"log/slog"
)

func (f *TransactionFlow) viewSummary(ctx context.Context, ev Event) (Reply, error) {
	report, err := f.monthlyReport(ctx, ev)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: report.Text, Keyboard: backToMenuKeyboard()}, nil
}

func (f *TransactionFlow) analytics(ctx context.Context, ev Event) (Reply, error) {
	report, err := f.monthlyReport(ctx, ev)
	if err != nil {
		return Reply{}, err
	}
	if !report.HasExpenses() {
		return Reply{
			Text:     fmt.Sprintf("📈 %s\n\nNo expenses recorded this month yet.", report.Period),
			Keyboard: backToMenuKeyboard(),
		}, nil
	}

	caption := fmt.Sprintf("📈 Expenses for %s: %s", report.Period, report.Current.TotalExpenses.StringFixed(2))
	if f.charts == nil {
		return Reply{Text: caption, Keyboard: backToMenuKeyboard()}, nil
	}

	image, err := f.charts.RenderReport(report)
	if err != nil {
		// Без графика отвечаем текстом
		slog.ErrorContext(ctx, "Failed to render chart", "component", "flow", "user_id", ev.UserID, "error", err)
		return Reply{Text: report.Text, Keyboard: backToMenuKeyboard()}, nil
	}
	return Reply{Text: caption, Keyboard: backToMenuKeyboard(), Image: image}, nil
}

func (f *TransactionFlow) settings(ctx context.Context, ev Event) (Reply, error) {
	text := "⚙️ Settings\n\n"
	if ev.Username == "" {
		text += "Your Telegram account has no username. Set one and add it to your dashboard profile " +
			"to see bot transactions in the dashboard."
		return Reply{Text: text, Keyboard: backToMenuKeyboard()}, nil
	}

	text += fmt.Sprintf("Telegram: @%s\n", ev.Username)
	userID, err := f.resolveUserID(ctx, ev)
	if err != nil {
		return Reply{}, err
	}
	if userID == fmt.Sprint(ev.UserID) {
		text += "Dashboard profile: not linked. Add your Telegram username in the dashboard settings."
	} else {
		text += "Dashboard profile: linked ✅"
	}
	return Reply{Text: text, Keyboard: backToMenuKeyboard()}, nil
}

func (f *TransactionFlow) monthlyReport(ctx context.Context, ev Event) (*MonthlyReport, error) {
	userID, err := f.resolveUserID(ctx, ev)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := f.withTimeout(ctx)
	defer cancel()

	report, err := f.tracker.GetMonthlyReport(callCtx, userID)
	if err != nil {
		return nil, external("storage", err)
	}
	return report, nil
}
