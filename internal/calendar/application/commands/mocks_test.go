package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type txKey struct{}

// mockEventRepo is a mock implementation of domain.EventRepository.
type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Save(ctx context.Context, ev domain.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *mockEventRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockOutboxRepo is a mock implementation of outbox.Repository.
type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *mockOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, err, nextRetryAt)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockOutboxRepo) DeleteOld(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// mockCorrectionStore is a mock implementation of domain.CorrectionStore.
type mockCorrectionStore struct {
	mock.Mock
}

func (m *mockCorrectionStore) Load(ctx context.Context, userID uuid.UUID) (domain.Corrections, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Corrections), args.Error(1)
}

func (m *mockCorrectionStore) Save(ctx context.Context, userID uuid.UUID, normalizedTitle, category string) error {
	args := m.Called(ctx, userID, normalizedTitle, category)
	return args.Error(0)
}

type fixture struct {
	repo       *mockEventRepo
	outboxRepo *mockOutboxRepo
	uow        *mockUnitOfWork
	ctx        context.Context
	txCtx      context.Context
}

func newFixture() *fixture {
	ctx := context.Background()
	return &fixture{
		repo:       new(mockEventRepo),
		outboxRepo: new(mockOutboxRepo),
		uow:        new(mockUnitOfWork),
		ctx:        ctx,
		txCtx:      context.WithValue(ctx, txKey{}, "transaction"),
	}
}

// committing expects a unit of work that commits.
func (f *fixture) committing() {
	f.uow.On("Begin", f.ctx).Return(f.txCtx, nil)
	f.uow.On("Commit", f.txCtx).Return(nil)
}

// rollingBack expects a unit of work that rolls back.
func (f *fixture) rollingBack() {
	f.uow.On("Begin", f.ctx).Return(f.txCtx, nil)
	f.uow.On("Rollback", f.txCtx).Return(nil)
}

// captureSaves records every saved event.
func (f *fixture) captureSaves() *[]domain.Event {
	var saved []domain.Event
	f.repo.On("Save", f.txCtx, mock.AnythingOfType("domain.Event")).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(domain.Event)) }).
		Return(nil)
	return &saved
}

// captureOutbox records every outbox batch.
func (f *fixture) captureOutbox() *[]*outbox.Message {
	var msgs []*outbox.Message
	f.outboxRepo.On("SaveBatch", f.txCtx, mock.AnythingOfType("[]*outbox.Message")).
		Run(func(args mock.Arguments) { msgs = append(msgs, args.Get(1).([]*outbox.Message)...) }).
		Return(nil)
	return &msgs
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.repo.AssertExpectations(t)
	f.outboxRepo.AssertExpectations(t)
	f.uow.AssertExpectations(t)
}

func routingKeys(msgs []*outbox.Message) []string {
	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = m.RoutingKey
	}
	return keys
}

// dailyStandup is a daily 09:00 UTC series starting Monday 2024-03-04.
func dailyStandup(userID uuid.UUID) *domain.Event {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	ev := domain.Event{
		ID:       "series-1",
		UserID:   userID,
		Title:    "Standup",
		StartsAt: start,
		EndsAt:   start.Add(15 * time.Minute),
		TimeZone: "UTC",
		Category: domain.CategoryMeeting,
	}
	ev.SetRecurrence(&domain.RecurrenceRule{Frequency: domain.FrequencyDaily, Interval: 1})
	return &ev
}

func singleEvent(userID uuid.UUID) *domain.Event {
	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	return &domain.Event{
		ID:       "single-1",
		UserID:   userID,
		Title:    "Dentist",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
		TimeZone: "UTC",
		Category: domain.CategoryHealth,
	}
}

// detachedStandup is the child a single edit of dailyStandup on dateKey
// stored, together with the parent that lists the date as an exception.
func detachedStandup(userID uuid.UUID, dateKey, title string) (*domain.Event, *domain.Event) {
	parent := dailyStandup(userID)
	parent.RecurrenceExceptions = []string{dateKey}

	day, _ := domain.ParseDateKey(dateKey, time.UTC)
	start := day.Add(9 * time.Hour)
	child := &domain.Event{
		ID:                 domain.DerivedID(parent.ID, "single", dateKey),
		UserID:             userID,
		Title:              title,
		StartsAt:           start,
		EndsAt:             start.Add(15 * time.Minute),
		TimeZone:           "UTC",
		Category:           domain.CategoryMeeting,
		RecurrenceParentID: parent.ID,
	}
	return parent, child
}

// truncatedStandup is dailyStandup after a thisAndFuture split at day.
func truncatedStandup(userID uuid.UUID, day time.Time) *domain.Event {
	ev := dailyStandup(userID)
	rule := ev.RecurrenceRule.WithEndDate(day.AddDate(0, 0, -1))
	ev.RecurrenceRule = &rule
	return ev
}
