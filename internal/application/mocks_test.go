package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/materials-store-api/config"
	"github.com/oksasatya/materials-store-api/internal/domain/entity"
	"github.com/oksasatya/materials-store-api/pkg/helpers"
	"github.com/oksasatya/materials-store-api/pkg/mailer"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*entity.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByPhone(ctx context.Context, phone string, t entity.UserType) (*entity.User, error) {
	return m.user(m.Called(ctx, phone, t))
}

func (m *MockUserRepository) Update(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id, token string, at time.Time) error {
	return m.Called(ctx, id, token, at).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockUserRepository) SetVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) AddToList(ctx context.Context, id string, list entity.CustomerList, itemID string) error {
	return m.Called(ctx, id, list, itemID).Error(0)
}

func (m *MockUserRepository) RemoveFromList(ctx context.Context, id string, list entity.CustomerList, itemID string) error {
	return m.Called(ctx, id, list, itemID).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, f entity.UserFilter, skip, limit int64) ([]*entity.User, int64, error) {
	args := m.Called(ctx, f, skip, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Search(ctx context.Context, q string, limit int64) ([]*entity.User, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockRateRepository struct {
	mock.Mock
}

func (m *MockRateRepository) Upsert(ctx context.Context, r *entity.MaterialRate) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRateRepository) Latest(ctx context.Context) ([]entity.RateQuote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RateQuote), args.Error(1)
}

func (m *MockRateRepository) History(ctx context.Context, material string, since time.Time) ([]entity.MaterialRate, error) {
	args := m.Called(ctx, material, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MaterialRate), args.Error(1)
}

func (m *MockRateRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockUserIndex struct {
	mock.Mock
}

func (m *MockUserIndex) Index(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserIndex) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	args := m.Called(ctx, q, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// recordingQueue keeps published jobs in memory.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (q *recordingQueue) PublishJSON(_ context.Context, body any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, body.(mailer.EmailJob))
	return nil
}

func (q *recordingQueue) last() mailer.EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return mailer.EmailJob{}
	}
	return q.jobs[len(q.jobs)-1]
}

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

type fixture struct {
	deps  Deps
	users *MockUserRepository
	rates *MockRateRepository
	queue *recordingQueue
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger, _ := logtest.NewNullLogger()
	f := &fixture{
		users: new(MockUserRepository),
		rates: new(MockRateRepository),
		queue: &recordingQueue{},
		redis: mr,
	}
	f.deps = Deps{
		Config: &config.Config{
			AppName:          "materials-store-api",
			CompanyName:      "Materials Store",
			VerifyEmailURL:   "http://shop.test/verify-email",
			ResetPasswordURL: "http://shop.test/reset-password",
		},
		Logger: logger,
		Users:  f.users,
		Rates:  f.rates,
		JWT:    helpers.NewJWTManager(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour),
		Redis:  rdb,
		Mail:   f.queue,
	}
	return f
}

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := helpers.HashPassword(plain)
	if err != nil {
		t.Fatal(err)
	}
	return h
}
