package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hijack-notifier/internal/domain"
	"github.com/tbourn/hijack-notifier/internal/push"
	"github.com/tbourn/hijack-notifier/internal/sms"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	// Runs write from their own goroutine; one connection avoids table locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&domain.DeliveryTrackingEntry{}, &domain.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, users ...domain.User) {
	t.Helper()
	for i := range users {
		if users[i].Email == "" {
			users[i].Email = users[i].ID + "@example.org"
		}
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
}

func runEntries(t *testing.T, db *gorm.DB, hijackKey string) map[string]domain.DeliveryTrackingEntry {
	t.Helper()
	var rows []domain.DeliveryTrackingEntry
	if err := db.Where("hijack_key = ?", hijackKey).Find(&rows).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	out := make(map[string]domain.DeliveryTrackingEntry, len(rows))
	for _, r := range rows {
		out[r.UserID] = r
	}
	return out
}

// fakeGateway answers submissions with a canned pipe-delimited body so the
// real positional parser is exercised.
type fakeGateway struct {
	mu         sync.Mutex
	submitBody string
	submitErr  error
	reports    []sms.DeliveryReport
	fetchErr   error

	submitted [][]string
	texts     []string
	fetches   int
}

func (f *fakeGateway) Submit(_ context.Context, phones []string, text string) ([]sms.Acceptance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, append([]string(nil), phones...))
	f.texts = append(f.texts, text)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return sms.ParseAcceptances(phones, f.submitBody), nil
}

func (f *fakeGateway) FetchDeliveryReports(context.Context) ([]sms.DeliveryReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.reports, nil
}

func (f *fakeGateway) submissions() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

func (f *fakeGateway) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type pushCall struct{ key, token string }

type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
	err   error
}

func (f *fakePush) Send(_ context.Context, hijackKey, runToken string) push.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{hijackKey, runToken})
	if f.err != nil {
		return push.Result{Err: f.err}
	}
	return push.Result{MessageID: "msg-" + runToken}
}

func (f *fakePush) sent() []pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSleep returns immediately, remembers durations and runs hook
// (if any) on the n-th call, 1-based.
type recordingSleep struct {
	mu    sync.Mutex
	durs  []time.Duration
	hooks map[int]func()
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.durs = append(r.durs, d)
	hook := r.hooks[len(r.durs)]
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

func (r *recordingSleep) calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durs
}
