package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/session"
)

const (
	testUserID = int64(42)
	testChatID = int64(420)
)

type flowFixture struct {
	flow     *TransactionFlow
	store    *session.MemoryStore
	repo     *fakeRepo
	fetcher  *fakeFetcher
	ocr      *fakeOCR
	resolver *fakeResolver
	clock    *testClock
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	store := session.NewMemory(30 * time.Minute).WithClock(clock.now)
	repo := newFakeRepo()
	catalog := model.DefaultCatalog()
	tracker := NewExpenseTracker(repo, catalog)
	tracker.now = clock.now

	fx := &flowFixture{
		store:    store,
		repo:     repo,
		fetcher:  &fakeFetcher{data: []byte("jpeg")},
		ocr:      &fakeOCR{},
		resolver: &fakeResolver{ids: map[string]string{}},
		clock:    clock,
	}
	fx.flow = NewTransactionFlow(FlowConfig{
		Sessions: store,
		Catalog:  catalog,
		Tracker:  tracker,
		Files:    fx.fetcher,
		OCR:      fx.ocr,
		Users:    fx.resolver,
		Charts:   &fakeCharts{},
		Timeout:  time.Second,
		Now:      clock.now,
	})
	return fx
}

func (fx *flowFixture) send(t *testing.T, ev Event) Reply {
	t.Helper()
	if ev.UserID == 0 {
		ev.UserID = testUserID
	}
	if ev.ChatID == 0 {
		ev.ChatID = testChatID
	}
	return fx.flow.Handle(context.Background(), ev)
}

func (fx *flowFixture) action(t *testing.T, data string) Reply {
	t.Helper()
	return fx.send(t, Event{Kind: EventAction, Data: data})
}

func (fx *flowFixture) text(t *testing.T, text string) Reply {
	t.Helper()
	return fx.send(t, Event{Kind: EventText, Data: text})
}

func (fx *flowFixture) photo(t *testing.T) Reply {
	t.Helper()
	return fx.send(t, Event{Kind: EventPhoto, Photos: []PhotoSize{
		{FileID: "small", Width: 90, Height: 120},
		{FileID: "large", Width: 960, Height: 1280},
		{FileID: "medium", Width: 320, Height: 480},
	}})
}

func (fx *flowFixture) session(t *testing.T) model.Session {
	t.Helper()
	s, err := fx.store.Get(context.Background(), testUserID)
	require.NoError(t, err)
	return s
}

func (fx *flowFixture) assertNoSession(t *testing.T) {
	t.Helper()
	_, err := fx.store.Get(context.Background(), testUserID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func buttonData(reply Reply) []string {
	var data []string
	for _, r := range reply.Keyboard {
		for _, b := range r {
			data = append(data, b.Data)
		}
	}
	return data
}

func TestManualEntryCommitsOnce(t *testing.T) {
	fx := newFlowFixture(t)

	reply := fx.action(t, ActionNewTransaction)
	assert.Equal(t, chooseMethodText, reply.Text)
	assert.Equal(t, []string{ActionMethodManual, ActionMethodPhoto, ActionBackToMenu}, buttonData(reply))

	reply = fx.action(t, ActionMethodManual)
	assert.Equal(t, chooseTypeText, reply.Text)
	assert.Equal(t, []string{"type_expense", "type_income", "type_saving", ActionBackToMethod}, buttonData(reply))

	reply = fx.action(t, "type_expense")
	assert.Equal(t, chooseCategoryText, reply.Text)
	data := buttonData(reply)
	require.Len(t, data, 15)
	assert.Equal(t, "category_Entertainment", data[0])
	assert.Equal(t, ActionBackToType, data[len(data)-1])

	reply = fx.action(t, "category_Groceries")
	assert.Equal(t, "Enter the amount for Groceries:", reply.Text)
	commitKey := fx.session(t).CommitKey

	reply = fx.text(t, "45.50")
	assert.Equal(t, "Transaction saved successfully:\nAmount: 45.50\nCategory: Groceries\nType: expense", reply.Text)
	assert.Equal(t, []string{ActionNewTransaction, ActionBackToMenu}, buttonData(reply))

	saved := fx.repo.savedList()
	require.Len(t, saved, 1)
	assert.Equal(t, commitKey, saved[0].ID)
	assert.Equal(t, "42", saved[0].UserID)
	assert.True(t, decimal.RequireFromString("45.5").Equal(saved[0].Amount))
	assert.Equal(t, "Groceries", saved[0].Category)
	assert.Equal(t, model.Expense, saved[0].Type)
	assert.Equal(t, fx.clock.now(), saved[0].CreatedAt)
	fx.assertNoSession(t)
}

func TestPhotoEntryCommitsDetectedAmount(t *testing.T) {
	fx := newFlowFixture(t)
	fx.ocr.text = "SUPERMARKET\nTOTAL 123.45\nTHANK YOU"

	fx.action(t, ActionNewTransaction)
	reply := fx.action(t, ActionMethodPhoto)
	assert.Equal(t, sendPhotoText, reply.Text)

	reply = fx.photo(t)
	assert.Equal(t, "Detected amount: 123.45\nNow select transaction type:", reply.Text)
	assert.Equal(t, "large", fx.fetcher.lastID)
	assert.Equal(t, model.StateAmountCaptured, fx.session(t).State)

	reply = fx.action(t, "type_income")
	assert.Equal(t, []string{
		"category_Side Hustle",
		"category_Business",
		"category_Other Income",
		"category_Freelance",
		"category_Salary",
		ActionBackToType,
	}, buttonData(reply))

	reply = fx.action(t, "category_Salary")
	assert.Equal(t, "Transaction saved successfully:\nAmount: 123.45\nCategory: Salary\nType: income", reply.Text)

	saved := fx.repo.savedList()
	require.Len(t, saved, 1)
	assert.True(t, decimal.RequireFromString("123.45").Equal(saved[0].Amount))
	fx.assertNoSession(t)
}

func TestPhotoAfterCategoryCommits(t *testing.T) {
	fx := newFlowFixture(t)
	fx.ocr.text = "Fuel 60.10"

	fx.action(t, ActionMethodPhoto)
	fx.action(t, "type_expense")
	reply := fx.action(t, "category_Fuel")
	assert.Equal(t, "Please send the photo now to detect the amount for Fuel.", reply.Text)

	reply = fx.photo(t)
	assert.Equal(t, "Transaction saved successfully:\nAmount: 60.10\nCategory: Fuel\nType: expense", reply.Text)
	assert.Len(t, fx.repo.savedList(), 1)
}

func TestInvalidAmountLeavesSessionUnchanged(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionNewTransaction)
	fx.action(t, ActionMethodManual)
	fx.action(t, "type_saving")
	fx.action(t, "category_Emergency Fund")
	before := fx.session(t)

	for _, input := range []string{"abc", "-5", "0", "", "1e3", "45.505"} {
		reply := fx.text(t, input)
		assert.Equal(t, invalidAmountText, reply.Text, "input %q", input)

		after := fx.session(t)
		assert.Equal(t, before.State, after.State)
		assert.Equal(t, before.Category, after.Category)
		assert.False(t, after.HasAmount())
	}
	assert.Empty(t, fx.repo.savedList())

	reply := fx.text(t, "12,5")
	assert.Equal(t, "Transaction saved successfully:\nAmount: 12.50\nCategory: Emergency Fund\nType: saving", reply.Text)
}

func TestNoSessionMakesNoExternalCalls(t *testing.T) {
	fx := newFlowFixture(t)

	reply := fx.text(t, "100")
	assert.Equal(t, startFirstText, reply.Text)

	reply = fx.photo(t)
	assert.Equal(t, photoFirstText, reply.Text)

	reply = fx.action(t, "type_expense")
	assert.Equal(t, startFirstText, reply.Text)

	reply = fx.action(t, "category_Groceries")
	assert.Equal(t, startFirstText, reply.Text)

	assert.Zero(t, fx.fetcher.calls)
	assert.Zero(t, fx.ocr.calls)
	assert.Zero(t, fx.repo.createCalls)
	fx.assertNoSession(t)
}

func TestPhotoWithoutPhotoMethod(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionMethodManual)
	reply := fx.photo(t)
	assert.Equal(t, photoFirstText, reply.Text)
	assert.Zero(t, fx.fetcher.calls)
}

func TestOCRWithoutAmountOffersManualEntry(t *testing.T) {
	fx := newFlowFixture(t)
	fx.ocr.text = "THANK YOU FOR SHOPPING"

	fx.action(t, ActionNewTransaction)
	fx.action(t, ActionMethodPhoto)
	before := fx.session(t)

	reply := fx.photo(t)
	assert.Equal(t, "Could not find an amount in the photo text. Please enter manually.", reply.Text)
	assert.Equal(t, []string{ActionAmountManual, ActionBackToMenu}, buttonData(reply))

	after := fx.session(t)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, model.MethodPhoto, after.Method)
	assert.False(t, after.HasAmount())

	reply = fx.action(t, ActionAmountManual)
	assert.Equal(t, chooseTypeText, reply.Text)
	assert.Equal(t, model.MethodManual, fx.session(t).Method)

	fx.action(t, "type_expense")
	reply = fx.action(t, "category_Shopping")
	assert.Equal(t, "Enter the amount for Shopping:", reply.Text)

	reply = fx.text(t, "19.99")
	assert.Equal(t, "Transaction saved successfully:\nAmount: 19.99\nCategory: Shopping\nType: expense", reply.Text)
}

func TestAmountManualKeepsCategory(t *testing.T) {
	fx := newFlowFixture(t)
	fx.ocr.text = "   "

	fx.action(t, ActionMethodPhoto)
	fx.action(t, "type_expense")
	fx.action(t, "category_Utilities")

	reply := fx.photo(t)
	assert.Equal(t, "Could not detect any text in the photo. Please try again or enter manually.", reply.Text)

	reply = fx.action(t, ActionAmountManual)
	assert.Equal(t, "Enter the amount for Utilities:", reply.Text)

	s := fx.session(t)
	assert.Equal(t, model.StateCategoryChosen, s.State)
	assert.Equal(t, model.Expense, s.Type)
}

func TestPhotoFailures(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		ocrText  string
		ocrErr   error
		want     string
	}{
		{
			name:     "download failed",
			fetchErr: errors.New("telegram timeout"),
			want:     "Error processing the photo. Please try again or enter manually.",
		},
		{
			name:   "vision failed",
			ocrErr: errors.New("quota exceeded"),
			want:   "Error processing the photo. Please try again or enter manually.",
		},
		{
			name:    "zero amount",
			ocrText: "TOTAL 0.00",
			want:    "Amount detected is not valid. Please enter manually.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFlowFixture(t)
			fx.fetcher.err = tt.fetchErr
			fx.ocr.text = tt.ocrText
			fx.ocr.err = tt.ocrErr

			fx.action(t, ActionMethodPhoto)
			reply := fx.photo(t)
			assert.Equal(t, tt.want, reply.Text)
			assert.Contains(t, buttonData(reply), ActionAmountManual)
			assert.False(t, fx.session(t).HasAmount())
		})
	}
}

func TestBackNavigationClearsLaterSteps(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionNewTransaction)
	fx.action(t, ActionMethodManual)
	fx.action(t, "type_expense")
	fx.action(t, "category_Insurance")

	reply := fx.action(t, ActionBackToType)
	assert.Equal(t, chooseTypeText, reply.Text)
	s := fx.session(t)
	assert.Equal(t, model.StateMethodChosen, s.State)
	assert.Empty(t, s.Type)
	assert.Empty(t, s.Category)
	assert.Equal(t, model.MethodManual, s.Method)

	fx.action(t, "type_income")
	reply = fx.action(t, ActionBackToMethod)
	assert.Equal(t, chooseMethodText, reply.Text)
	s = fx.session(t)
	assert.Equal(t, model.StateIdle, s.State)
	assert.Equal(t, model.MethodNone, s.Method)
	assert.Empty(t, s.Type)

	reply = fx.action(t, ActionBackToMenu)
	assert.Equal(t, mainMenuText, reply.Text)
	fx.assertNoSession(t)
}

func TestBackToTypeKeepsPhotoAmount(t *testing.T) {
	fx := newFlowFixture(t)
	fx.ocr.text = "77.70"

	fx.action(t, ActionMethodPhoto)
	fx.photo(t)
	fx.action(t, "type_expense")

	fx.action(t, ActionBackToType)
	s := fx.session(t)
	assert.Equal(t, model.StateAmountCaptured, s.State)
	assert.True(t, decimal.RequireFromString("77.7").Equal(s.Amount))
}

func TestCategoryOfOtherTypeIsRejected(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionMethodManual)
	fx.action(t, "type_expense")
	reply := fx.action(t, "category_Salary")
	assert.Equal(t, unknownOptionText, reply.Text)
	assert.Empty(t, fx.session(t).Category)

	reply = fx.action(t, "category_Unknown")
	assert.Equal(t, unknownOptionText, reply.Text)
}

func TestTextOutsideAmountStep(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionMethodManual)
	reply := fx.text(t, "100")
	assert.Equal(t, followMenuText, reply.Text)
	assert.Empty(t, fx.repo.savedList())
}

func TestExpiredSession(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionNewTransaction)
	fx.action(t, ActionMethodManual)
	fx.clock.advance(31 * time.Minute)

	reply := fx.action(t, "type_expense")
	assert.Equal(t, expiredText, reply.Text)
	assert.Contains(t, buttonData(reply), ActionNewTransaction)

	reply = fx.text(t, "10")
	assert.Equal(t, startFirstText, reply.Text)
}

func TestCommitRetryUsesSameKey(t *testing.T) {
	fx := newFlowFixture(t)
	fx.repo.createErr = errStorageDown

	fx.action(t, ActionNewTransaction)
	fx.action(t, ActionMethodManual)
	fx.action(t, "type_expense")
	fx.action(t, "category_Fuel")
	commitKey := fx.session(t).CommitKey

	reply := fx.text(t, "50")
	assert.Equal(t, saveFailedText, reply.Text)
	assert.Equal(t, []string{ActionCommitRetry, ActionBackToMenu}, buttonData(reply))

	s := fx.session(t)
	assert.True(t, s.Complete())
	assert.Equal(t, commitKey, s.CommitKey)

	fx.repo.createErr = nil
	reply = fx.action(t, ActionCommitRetry)
	assert.Equal(t, "Transaction saved successfully:\nAmount: 50.00\nCategory: Fuel\nType: expense", reply.Text)

	saved := fx.repo.savedList()
	require.Len(t, saved, 1)
	assert.Equal(t, commitKey, saved[0].ID)
	assert.Equal(t, 2, fx.repo.createCalls)
	fx.assertNoSession(t)
}

func TestAmbiguousFailureDoesNotDuplicate(t *testing.T) {
	fx := newFlowFixture(t)
	fx.repo.createErr = errStorageDown
	fx.repo.failAfterSave = true

	fx.action(t, ActionMethodManual)
	fx.action(t, "type_income")
	fx.action(t, "category_Freelance")
	reply := fx.text(t, "300")
	assert.Equal(t, saveFailedText, reply.Text)

	fx.repo.createErr = nil
	fx.action(t, ActionCommitRetry)
	assert.Len(t, fx.repo.savedList(), 1)
}

func TestEditAfterFailedCommitUsesNewKey(t *testing.T) {
	fx := newFlowFixture(t)
	fx.repo.createErr = errStorageDown
	fx.repo.failAfterSave = true

	fx.action(t, ActionMethodManual)
	fx.action(t, "type_expense")
	fx.action(t, "category_Fuel")
	reply := fx.text(t, "50")
	assert.Equal(t, saveFailedText, reply.Text)
	failedKey := fx.session(t).CommitKey

	fx.repo.createErr = nil
	fx.action(t, ActionBackToType)
	assert.NotEqual(t, failedKey, fx.session(t).CommitKey)

	fx.action(t, "type_expense")
	fx.action(t, "category_Groceries")
	reply = fx.text(t, "80")
	assert.Equal(t, "Transaction saved successfully:\nAmount: 80.00\nCategory: Groceries\nType: expense", reply.Text)

	saved := fx.repo.savedList()
	require.Len(t, saved, 2)
	byCategory := make(map[string]model.Transaction)
	for _, tr := range saved {
		byCategory[tr.Category] = tr
	}
	require.Contains(t, byCategory, "Groceries")
	assert.True(t, decimal.RequireFromString("80").Equal(byCategory["Groceries"].Amount))
	assert.NotEqual(t, failedKey, byCategory["Groceries"].ID)
	assert.Equal(t, failedKey, byCategory["Fuel"].ID)
}

func TestNewPhotoAfterFailedCommitUsesNewKey(t *testing.T) {
	fx := newFlowFixture(t)
	fx.repo.createErr = errStorageDown
	fx.repo.failAfterSave = true
	fx.ocr.text = "TOTAL 60.10"

	fx.action(t, ActionMethodPhoto)
	fx.action(t, "type_expense")
	fx.action(t, "category_Fuel")
	reply := fx.photo(t)
	assert.Equal(t, saveFailedText, reply.Text)

	fx.repo.createErr = nil
	fx.ocr.text = "TOTAL 70.00"
	reply = fx.photo(t)
	assert.Equal(t, "Transaction saved successfully:\nAmount: 70.00\nCategory: Fuel\nType: expense", reply.Text)

	saved := fx.repo.savedList()
	require.Len(t, saved, 2)
	var amounts []string
	for _, tr := range saved {
		amounts = append(amounts, tr.Amount.StringFixed(2))
	}
	assert.ElementsMatch(t, []string{"60.10", "70.00"}, amounts)
}

func TestCommitRetryWithoutCompleteSession(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionMethodManual)
	reply := fx.action(t, ActionCommitRetry)
	assert.Equal(t, followMenuText, reply.Text)
	assert.Zero(t, fx.repo.createCalls)
}

func TestCommitUsesLinkedProfile(t *testing.T) {
	fx := newFlowFixture(t)
	fx.resolver.ids["alice"] = "profile-1"

	for _, data := range []string{ActionMethodManual, "type_expense", "category_Groceries"} {
		fx.send(t, Event{Kind: EventAction, Data: data, Username: "alice"})
	}
	fx.send(t, Event{Kind: EventText, Data: "10", Username: "alice"})

	saved := fx.repo.savedList()
	require.Len(t, saved, 1)
	assert.Equal(t, "profile-1", saved[0].UserID)
}

func TestResolverFailureKeepsSession(t *testing.T) {
	fx := newFlowFixture(t)
	fx.resolver.err = errStorageDown

	for _, data := range []string{ActionMethodManual, "type_expense", "category_Groceries"} {
		fx.send(t, Event{Kind: EventAction, Data: data, Username: "bob"})
	}
	reply := fx.send(t, Event{Kind: EventText, Data: "10", Username: "bob"})
	assert.Equal(t, saveFailedText, reply.Text)
	assert.True(t, fx.session(t).Complete())
	assert.Zero(t, fx.repo.createCalls)
}

func TestNewTransactionResetsSession(t *testing.T) {
	fx := newFlowFixture(t)

	fx.action(t, ActionMethodManual)
	fx.action(t, "type_expense")
	first := fx.session(t).CommitKey

	fx.action(t, ActionNewTransaction)
	s := fx.session(t)
	assert.Equal(t, model.StateIdle, s.State)
	assert.Empty(t, s.Type)
	assert.NotEqual(t, first, s.CommitKey)
}

func TestCommands(t *testing.T) {
	fx := newFlowFixture(t)

	reply := fx.send(t, Event{Kind: EventCommand, Data: "start"})
	assert.Equal(t, welcomeText, reply.Text)
	assert.Equal(t, []string{ActionNewTransaction, ActionViewSummary, ActionAnalytics, ActionSettings}, buttonData(reply))

	reply = fx.send(t, Event{Kind: EventCommand, Data: "new"})
	assert.Equal(t, chooseMethodText, reply.Text)
	fx.session(t)

	reply = fx.send(t, Event{Kind: EventCommand, Data: "cancel"})
	assert.Equal(t, mainMenuText, reply.Text)
	fx.assertNoSession(t)

	reply = fx.send(t, Event{Kind: EventCommand, Data: "unknown"})
	assert.Equal(t, followMenuText, reply.Text)
}

func TestViewSummaryAndAnalytics(t *testing.T) {
	fx := newFlowFixture(t)
	at := func(day int) time.Time { return time.Date(2026, 10, day, 9, 0, 0, 0, time.UTC) }
	fx.repo.list = []model.Transaction{
		{ID: "1", UserID: "42", Amount: decimal.NewFromInt(1000), Category: "Salary", Type: model.Income, CreatedAt: at(1)},
		{ID: "2", UserID: "42", Amount: decimal.NewFromInt(100), Category: "Groceries", Type: model.Expense, CreatedAt: at(3)},
		{ID: "3", UserID: "42", Amount: decimal.NewFromInt(50), Category: "Fuel", Type: model.Expense, CreatedAt: at(5)},
		{ID: "4", UserID: "7", Amount: decimal.NewFromInt(999), Category: "Fuel", Type: model.Expense, CreatedAt: at(5)},
	}

	reply := fx.action(t, ActionViewSummary)
	assert.Contains(t, reply.Text, "October 2026")
	assert.Contains(t, reply.Text, "Income: 1000.00")
	assert.Contains(t, reply.Text, "Expenses: 150.00")
	assert.Contains(t, reply.Text, "• Groceries: 100.00 (66.7%)")
	assert.Nil(t, reply.Image)

	reply = fx.action(t, ActionAnalytics)
	assert.Equal(t, []byte("png"), reply.Image)
	assert.Equal(t, "📈 Expenses for October 2026: 150.00", reply.Text)
}

func TestAnalyticsWithoutExpenses(t *testing.T) {
	fx := newFlowFixture(t)

	reply := fx.action(t, ActionAnalytics)
	assert.Nil(t, reply.Image)
	assert.Contains(t, reply.Text, "No expenses recorded this month yet.")
}

func TestSettingsShowsProfileLink(t *testing.T) {
	fx := newFlowFixture(t)
	fx.resolver.ids["alice"] = "profile-1"

	reply := fx.send(t, Event{Kind: EventAction, Data: ActionSettings, Username: "alice"})
	assert.Contains(t, reply.Text, "Dashboard profile: linked")

	reply = fx.send(t, Event{Kind: EventAction, Data: ActionSettings, Username: "carol"})
	assert.Contains(t, reply.Text, "not linked")
}

func TestEventsOfOneUserAreSerialized(t *testing.T) {
	fx := newFlowFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fx.action(t, ActionNewTransaction)
			fx.action(t, ActionMethodManual)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, fx.flow.locks.size())
	fx.session(t)
}

func TestJanitorWaitsForEventInProgress(t *testing.T) {
	fx := newFlowFixture(t)
	detector := newBlockingOCR("TOTAL 12.00")
	fx.flow.ocr = detector

	var (
		mu       sync.Mutex
		notified []int64
	)
	janitor := &session.Janitor{
		Store: fx.store,
		Lock:  fx.flow.LockUser,
		OnExpire: func(_ context.Context, s model.Session) {
			mu.Lock()
			defer mu.Unlock()
			notified = append(notified, s.UserID)
		},
	}

	fx.action(t, ActionMethodPhoto)

	replies := make(chan Reply, 1)
	go func() { replies <- fx.photo(t) }()
	<-detector.started
	fx.clock.advance(31 * time.Minute)

	swept := make(chan int, 1)
	go func() { swept <- janitor.SweepOnce(context.Background(), fx.clock.now()) }()
	require.Eventually(t, func() bool {
		return fx.flow.locks.holders(testUserID) == 2
	}, time.Second, time.Millisecond)
	close(detector.release)

	reply := <-replies
	assert.Equal(t, "Detected amount: 12.00\nNow select transaction type:", reply.Text)
	assert.Equal(t, 0, <-swept)

	mu.Lock()
	assert.Empty(t, notified)
	mu.Unlock()
	assert.True(t, decimal.RequireFromString("12").Equal(fx.session(t).Amount))
}

func TestJanitorExpiresIdleSession(t *testing.T) {
	fx := newFlowFixture(t)
	var notified []int64
	janitor := &session.Janitor{
		Store: fx.store,
		Lock:  fx.flow.LockUser,
		OnExpire: func(_ context.Context, s model.Session) {
			notified = append(notified, s.ChatID)
		},
	}

	fx.action(t, ActionMethodManual)
	fx.clock.advance(31 * time.Minute)

	assert.Equal(t, 1, janitor.SweepOnce(context.Background(), fx.clock.now()))
	assert.Equal(t, []int64{testChatID}, notified)
	fx.assertNoSession(t)
	assert.Equal(t, 0, fx.flow.locks.size())
}

func TestLargestPhoto(t *testing.T) {
	_, ok := largestPhoto(nil)
	assert.False(t, ok)

	p, ok := largestPhoto([]PhotoSize{
		{FileID: "a", Width: 100, Height: 100},
		{FileID: "b", Width: 50, Height: 50},
	})
	require.True(t, ok)
	assert.Equal(t, "a", p.FileID)
}

func TestInputErrorUnwrap(t *testing.T) {
	var inputErr *InputError
	err := error(&InputError{Message: invalidAmountText, Err: model.ErrInvalidAmount})
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}
