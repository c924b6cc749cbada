package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/repository"
	"github.com/ivanoskov/fintrack_bot/internal/session"
)

const (
	welcomeText = "🌟 Welcome to Finance Tracker Bot!\n\n" +
		"📱 Your personal finance assistant to track expenses, income, and savings.\n\n" +
		"Choose an option below to get started:"
	mainMenuText       = "🏠 Main Menu"
	chooseMethodText   = "Select input method:"
	chooseTypeText     = "Select transaction type:"
	chooseCategoryText = "Select a category:"
	sendPhotoText      = "Send a photo of your receipt or transaction document."
	startFirstText     = "Please start a new transaction by clicking \"New Transaction\"."
	photoFirstText     = "Please choose photo input method first by clicking \"New Transaction\"."
	followMenuText     = "Please follow the menu options or type /menu."
	invalidAmountText  = "Please enter a valid positive amount."
	expiredText        = "⌛ Your unfinished transaction expired. Start a new one from the menu."
	saveFailedText     = "Failed to save transaction. Please try again later."
	unavailableText    = "Something went wrong. Please try again later."
	unknownOptionText  = "Please select one of the options below."
)

// EventKind вид входящего события
type EventKind int

const (
	EventCommand EventKind = iota
	EventAction
	EventText
	EventPhoto
)

// Event входящее событие от пользователя без привязки к транспорту
type Event struct {
	Kind     EventKind
	UserID   int64
	ChatID   int64
	Username string
	// Data имя команды без "/", callback data или текст сообщения
	Data   string
	Photos []PhotoSize
}

// PhotoSize один из размеров присланного фото
type PhotoSize struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

// Reply ответ пользователю. Если задан Image, Text отправляется подписью.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Image    []byte
}

// FileFetcher скачивает файл, присланный пользователем
type FileFetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// TextDetector распознает текст на изображении
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// UserResolver находит профиль веб-кабинета по username в Telegram
type UserResolver interface {
	ResolveUserID(ctx context.Context, telegramUsername string) (string, error)
}

// ChartRenderer рисует график по отчету
type ChartRenderer interface {
	RenderReport(report *MonthlyReport) ([]byte, error)
}

type FlowConfig struct {
	Sessions session.Store
	Catalog  *model.Catalog
	Tracker  *ExpenseTracker
	Files    FileFetcher
	OCR      TextDetector
	Users    UserResolver  // может быть nil
	Charts   ChartRenderer // может быть nil
	Timeout  time.Duration // на каждый вызов внешнего сервиса
	Now      func() time.Time
}

// TransactionFlow ведет диалог ввода транзакции
type TransactionFlow struct {
	sessions session.Store
	catalog  *model.Catalog
	tracker  *ExpenseTracker
	files    FileFetcher
	ocr      TextDetector
	users    UserResolver
	charts   ChartRenderer
	timeout  time.Duration
	now      func() time.Time
	locks    *userLocks
}

func NewTransactionFlow(cfg FlowConfig) *TransactionFlow {
	if cfg.Catalog == nil {
		cfg.Catalog = model.DefaultCatalog()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TransactionFlow{
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		tracker:  cfg.Tracker,
		files:    cfg.Files,
		ocr:      cfg.OCR,
		users:    cfg.Users,
		charts:   cfg.Charts,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
		locks:    newUserLocks(),
	}
}

// Handle обрабатывает событие. События одного пользователя выполняются последовательно.
func (f *TransactionFlow) Handle(ctx context.Context, ev Event) Reply {
	unlock := f.locks.Lock(ev.UserID)
	defer unlock()

	reply, err := f.dispatch(ctx, ev)
	if err != nil {
		return f.errorReply(ctx, ev, err)
	}
	return reply
}

// LockUser блокирует обработку событий пользователя до вызова unlock
func (f *TransactionFlow) LockUser(userID int64) (unlock func()) {
	return f.locks.Lock(userID)
}

// ExpiredNotice сообщение пользователю о сессии, удаленной по таймауту
func (f *TransactionFlow) ExpiredNotice(model.Session) Reply {
	return Reply{Text: expiredText, Keyboard: mainMenuKeyboard()}
}

func (f *TransactionFlow) dispatch(ctx context.Context, ev Event) (Reply, error) {
	switch ev.Kind {
	case EventCommand:
		return f.handleCommand(ctx, ev)
	case EventAction:
		return f.handleAction(ctx, ev)
	case EventText:
		return f.handleText(ctx, ev)
	case EventPhoto:
		return f.handlePhoto(ctx, ev)
	default:
		return Reply{Text: followMenuText}, nil
	}
}

func (f *TransactionFlow) handleCommand(ctx context.Context, ev Event) (Reply, error) {
	switch ev.Data {
	case "start":
		return Reply{Text: welcomeText, Keyboard: mainMenuKeyboard()}, nil
	case "menu":
		return Reply{Text: mainMenuText, Keyboard: mainMenuKeyboard()}, nil
	case "new":
		return f.newTransaction(ctx, ev)
	case "cancel":
		return f.cancel(ctx, ev)
	default:
		return Reply{Text: followMenuText}, nil
	}
}

func (f *TransactionFlow) handleAction(ctx context.Context, ev Event) (Reply, error) {
	switch data := ev.Data; {
	case data == ActionNewTransaction:
		return f.newTransaction(ctx, ev)
	case data == ActionBackToMenu:
		return f.cancel(ctx, ev)
	case data == ActionMethodManual:
		return f.chooseMethod(ctx, ev, model.MethodManual)
	case data == ActionMethodPhoto:
		return f.chooseMethod(ctx, ev, model.MethodPhoto)
	case data == ActionBackToMethod:
		return f.backToMethod(ctx, ev)
	case data == ActionBackToType:
		return f.backToType(ctx, ev)
	case data == ActionAmountManual:
		return f.amountManual(ctx, ev)
	case data == ActionCommitRetry:
		return f.commitRetry(ctx, ev)
	case data == ActionViewSummary:
		return f.viewSummary(ctx, ev)
	case data == ActionAnalytics:
		return f.analytics(ctx, ev)
	case data == ActionSettings:
		return f.settings(ctx, ev)
	case strings.HasPrefix(data, typePrefix):
		return f.chooseType(ctx, ev, strings.TrimPrefix(data, typePrefix))
	case strings.HasPrefix(data, categoryPrefix):
		return f.chooseCategory(ctx, ev, strings.TrimPrefix(data, categoryPrefix))
	default:
		slog.WarnContext(ctx, "Unknown callback", "component", "flow", "user_id", ev.UserID, "data", data)
		return Reply{Text: followMenuText, Keyboard: mainMenuKeyboard()}, nil
	}
}

func (f *TransactionFlow) loadSession(ctx context.Context, userID int64) (model.Session, error) {
	s, err := f.sessions.Get(ctx, userID)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, session.ErrNotFound):
		return model.Session{}, ErrSessionAbsent
	case errors.Is(err, session.ErrExpired):
		return model.Session{}, ErrSessionExpired
	default:
		return model.Session{}, external("session store", err)
	}
}

func (f *TransactionFlow) saveSession(ctx context.Context, s model.Session) error {
	if err := f.sessions.Put(ctx, s); err != nil {
		return external("session store", err)
	}
	return nil
}

func (f *TransactionFlow) newTransaction(ctx context.Context, ev Event) (Reply, error) {
	if err := f.saveSession(ctx, model.NewSession(ev.UserID, ev.ChatID, f.now())); err != nil {
		return Reply{}, err
	}
	return Reply{Text: chooseMethodText, Keyboard: methodKeyboard()}, nil
}

func (f *TransactionFlow) cancel(ctx context.Context, ev Event) (Reply, error) {
	if err := f.sessions.Delete(ctx, ev.UserID); err != nil {
		return Reply{}, external("session store", err)
	}
	return Reply{Text: mainMenuText, Keyboard: mainMenuKeyboard()}, nil
}

func (f *TransactionFlow) chooseMethod(ctx context.Context, ev Event, method model.Method) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if errors.Is(err, ErrSessionAbsent) || errors.Is(err, ErrSessionExpired) {
		s, err = model.NewSession(ev.UserID, ev.ChatID, f.now()), nil
	}
	if err != nil {
		return Reply{}, err
	}

	s.MarkEdited()
	s.Method = method
	s.Type = ""
	s.Category = ""
	s.Amount = decimal.Zero
	s.State = model.StateMethodChosen
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}

	if method == model.MethodPhoto {
		return Reply{Text: sendPhotoText, Keyboard: photoPromptKeyboard()}, nil
	}
	return Reply{Text: chooseTypeText, Keyboard: typeKeyboard()}, nil
}

func (f *TransactionFlow) chooseType(ctx context.Context, ev Event, value string) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if s.Method == model.MethodNone {
		return Reply{Text: chooseMethodText, Keyboard: methodKeyboard()}, nil
	}

	t, err := model.ParseTransactionType(value)
	if err != nil {
		return Reply{Text: unknownOptionText, Keyboard: typeKeyboard()}, nil
	}

	s.MarkEdited()
	s.Type = t
	s.Category = ""
	s.State = model.StateTypeChosen
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}
	return f.categoryPrompt(s, ""), nil
}

func (f *TransactionFlow) chooseCategory(ctx context.Context, ev Event, name string) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if s.Type == "" {
		return Reply{Text: chooseTypeText, Keyboard: typeKeyboard()}, nil
	}

	category, ok := f.catalog.Lookup(name)
	if !ok || category.Type != s.Type {
		return Reply{Text: unknownOptionText, Keyboard: categoryKeyboard(f.catalog, s.Type)}, nil
	}

	s.MarkEdited()
	s.Category = category.Name
	s.State = model.StateCategoryChosen
	if s.HasAmount() {
		s.State = model.StateAmountCaptured
		return f.commit(ctx, ev, s)
	}
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}
	return f.amountPrompt(s), nil
}

func (f *TransactionFlow) handleText(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if s.Method != model.MethodManual || s.Category == "" || s.HasAmount() {
		return Reply{Text: followMenuText}, nil
	}

	amount, err := model.ParseAmount(ev.Data)
	if err != nil {
		return Reply{}, &InputError{Message: invalidAmountText, Err: err}
	}

	s.MarkEdited()
	s.Amount = amount
	s.State = model.StateAmountCaptured
	return f.commit(ctx, ev, s)
}

func (f *TransactionFlow) amountManual(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}

	s.MarkEdited()
	s.Method = model.MethodManual
	s.Amount = decimal.Zero
	if err := f.saveSession(ctx, f.rewind(s)); err != nil {
		return Reply{}, err
	}

	switch {
	case s.Category != "":
		return f.amountPrompt(s), nil
	case s.Type != "":
		return f.categoryPrompt(s, ""), nil
	default:
		return Reply{Text: chooseTypeText, Keyboard: typeKeyboard()}, nil
	}
}

func (f *TransactionFlow) backToMethod(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}

	s.MarkEdited()
	s.Method = model.MethodNone
	s.Type = ""
	s.Category = ""
	s.Amount = decimal.Zero
	s.State = model.StateIdle
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}
	return Reply{Text: chooseMethodText, Keyboard: methodKeyboard()}, nil
}

func (f *TransactionFlow) backToType(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if s.Method == model.MethodNone {
		return Reply{Text: chooseMethodText, Keyboard: methodKeyboard()}, nil
	}

	s.MarkEdited()
	s.Type = ""
	s.Category = ""
	// Распознанная с фото сумма сохраняется, введенная вручную вводится заново
	if s.Method == model.MethodManual {
		s.Amount = decimal.Zero
	}
	if err := f.saveSession(ctx, f.rewind(s)); err != nil {
		return Reply{}, err
	}
	return Reply{Text: chooseTypeText, Keyboard: typeKeyboard()}, nil
}

func (f *TransactionFlow) commitRetry(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if !s.Complete() {
		return Reply{Text: followMenuText, Keyboard: mainMenuKeyboard()}, nil
	}
	return f.commit(ctx, ev, s)
}

// rewind выставляет State по заполненным полям
func (f *TransactionFlow) rewind(s model.Session) model.Session {
	switch {
	case s.Method == model.MethodNone:
		s.State = model.StateIdle
	case s.HasAmount():
		s.State = model.StateAmountCaptured
	case s.Category != "":
		s.State = model.StateCategoryChosen
	case s.Type != "":
		s.State = model.StateTypeChosen
	default:
		s.State = model.StateMethodChosen
	}
	return s
}

func (f *TransactionFlow) categoryPrompt(s model.Session, prefix string) Reply {
	return Reply{Text: prefix + chooseCategoryText, Keyboard: categoryKeyboard(f.catalog, s.Type)}
}

func (f *TransactionFlow) amountPrompt(s model.Session) Reply {
	if s.Method == model.MethodPhoto {
		return Reply{
			Text:     fmt.Sprintf("Please send the photo now to detect the amount for %s.", s.Category),
			Keyboard: photoPromptKeyboard(),
		}
	}
	return Reply{
		Text:     fmt.Sprintf("Enter the amount for %s:", s.Category),
		Keyboard: amountPromptKeyboard(),
	}
}

// commit сохраняет транзакцию из заполненной сессии.
// При ошибке хранилища сессия остается, commit_retry идет с тем же CommitKey,
// а любое изменение полей до повтора выдает новый ключ.
func (f *TransactionFlow) commit(ctx context.Context, ev Event, s model.Session) (Reply, error) {
	s.CommitAttempted = true
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}

	userID, err := f.resolveUserID(ctx, ev)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve user", "component", "flow", "user_id", ev.UserID, "error", err)
		return Reply{Text: saveFailedText, Keyboard: retryKeyboard()}, nil
	}

	callCtx, cancel := f.withTimeout(ctx)
	defer cancel()

	saved, err := f.tracker.AddTransaction(callCtx, model.Transaction{
		ID:        s.CommitKey,
		UserID:    userID,
		Amount:    s.Amount,
		Category:  s.Category,
		Type:      s.Type,
		CreatedAt: f.now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save transaction",
			"component", "flow",
			"user_id", ev.UserID,
			"commit_key", s.CommitKey,
			"error", err)
		return Reply{Text: saveFailedText, Keyboard: retryKeyboard()}, nil
	}

	if err := f.sessions.Delete(ctx, ev.UserID); err != nil {
		slog.WarnContext(ctx, "Failed to delete session", "component", "flow", "user_id", ev.UserID, "error", err)
	}

	return Reply{
		Text: fmt.Sprintf("Transaction saved successfully:\nAmount: %s\nCategory: %s\nType: %s",
			saved.Amount.StringFixed(2), saved.Category, saved.Type),
		Keyboard: postSaveKeyboard(),
	}, nil
}

// resolveUserID возвращает id профиля веб-кабинета или id пользователя Telegram
func (f *TransactionFlow) resolveUserID(ctx context.Context, ev Event) (string, error) {
	fallback := strconv.FormatInt(ev.UserID, 10)
	if f.users == nil || ev.Username == "" {
		return fallback, nil
	}

	callCtx, cancel := f.withTimeout(ctx)
	defer cancel()

	id, err := f.users.ResolveUserID(callCtx, ev.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", external("storage", err)
	}
	return id, nil
}

func (f *TransactionFlow) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func (f *TransactionFlow) errorReply(ctx context.Context, ev Event, err error) Reply {
	var (
		inputErr    *InputError
		externalErr *ExternalServiceError
	)
	switch {
	case errors.As(err, &inputErr):
		return Reply{Text: inputErr.Message, Keyboard: amountPromptKeyboard()}
	case errors.Is(err, ErrSessionExpired):
		return Reply{Text: expiredText, Keyboard: mainMenuKeyboard()}
	case errors.Is(err, ErrSessionAbsent):
		if ev.Kind == EventPhoto {
			return Reply{Text: photoFirstText, Keyboard: mainMenuKeyboard()}
		}
		return Reply{Text: startFirstText, Keyboard: mainMenuKeyboard()}
	case errors.As(err, &externalErr):
		slog.ErrorContext(ctx, "External service failed",
			"component", "flow",
			"service", externalErr.Service,
			"user_id", ev.UserID,
			"error", externalErr.Err)
		return Reply{Text: unavailableText, Keyboard: backToMenuKeyboard()}
	default:
		slog.ErrorContext(ctx, "Failed to handle event", "component", "flow", "user_id", ev.UserID, "error", err)
		return Reply{Text: unavailableText, Keyboard: backToMenuKeyboard()}
	}
}
