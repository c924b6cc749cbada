package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/repository"
)

type fakeRepo struct {
	mu            sync.Mutex
	saved         map[string]model.Transaction
	list          []model.Transaction
	createErr     error
	failAfterSave bool
	createCalls   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: make(map[string]model.Transaction)}
}

func (r *fakeRepo) CreateTransaction(_ context.Context, t *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.createCalls++
	if r.createErr != nil && !r.failAfterSave {
		return r.createErr
	}
	// как ON CONFLICT (id) DO NOTHING
	if _, exists := r.saved[t.ID]; !exists {
		r.saved[t.ID] = *t
	}
	return r.createErr
}

func (r *fakeRepo) GetTransactions(_ context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Transaction
	for _, t := range r.list {
		if t.UserID != userID {
			continue
		}
		if filter.StartDate != nil && t.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.CreatedAt.After(*filter.EndDate) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeRepo) savedList() []model.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.Transaction, 0, len(r.saved))
	for _, t := range r.saved {
		result = append(result, t)
	}
	return result
}

type fakeFetcher struct {
	data   []byte
	err    error
	calls  int
	lastID string
}

func (f *fakeFetcher) Fetch(_ context.Context, fileID string) ([]byte, error) {
	f.calls++
	f.lastID = fileID
	return f.data, f.err
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (o *fakeOCR) DetectText(_ context.Context, _ []byte) (string, error) {
	o.calls++
	return o.text, o.err
}

// blockingOCR держит вызов, пока тест не закроет release
type blockingOCR struct {
	text    string
	started chan struct{}
	release chan struct{}
}

func newBlockingOCR(text string) *blockingOCR {
	return &blockingOCR{text: text, started: make(chan struct{}), release: make(chan struct{})}
}

func (o *blockingOCR) DetectText(_ context.Context, _ []byte) (string, error) {
	close(o.started)
	<-o.release
	return o.text, nil
}

type fakeResolver struct {
	ids map[string]string
	err error
}

func (r *fakeResolver) ResolveUserID(_ context.Context, username string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	id, ok := r.ids[username]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

type fakeCharts struct {
	err error
}

func (c *fakeCharts) RenderReport(*MonthlyReport) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []byte("png"), nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errStorageDown = errors.New("storage is down")
