package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"rewardbot/internal/repository"
	"rewardbot/internal/testutil"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		sent:    make(map[int64][]string),
		failFor: make(map[int64]bool),
	}
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return errors.New("发送失败")
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

func (f *fakeNotifier) sentTo(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[userID]...)
}

type testEnv struct {
	db       *gorm.DB
	notifier *fakeNotifier

	users     *repository.UserRepository
	codes     *repository.CodeRepository
	withdraws *repository.WithdrawRepository
	links     *repository.LinkRepository
	settings  *repository.SettingRepository
	bans      *repository.BanRepository
	events    *repository.EventRepository

	wallet   *WalletService
	withdraw *WithdrawService
	admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.OpenTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		db:        db,
		notifier:  newFakeNotifier(),
		users:     repository.NewUserRepository(db),
		codes:     repository.NewCodeRepository(db),
		withdraws: repository.NewWithdrawRepository(db),
		links:     repository.NewLinkRepository(db),
		settings:  repository.NewSettingRepository(db),
		bans:      repository.NewBanRepository(db),
		events:    repository.NewEventRepository(db),
	}
	env.wallet = NewWalletService(db, log, env.users, env.codes, env.events)
	env.withdraw = NewWithdrawService(db, log, nil, env.users, env.withdraws, env.settings, env.events, env.notifier)
	env.admin = NewAdminService(log, env.users, env.codes, env.withdraws, env.links, env.settings, env.bans, env.notifier)
	return env
}
